package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository stores the history of delivered route posts.
type Repository struct {
	q   Querier
	now func() time.Time
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool, now: time.Now}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q, now: time.Now}
}

// Ping reports whether the database answers. Used by the health endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.q.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// RecordPost inserts p, assigning an id and timestamp when they are unset.
// The stored values are written back into p.
func (r *Repository) RecordPost(ctx context.Context, p *Post) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PostedAt.IsZero() {
		p.PostedAt = r.now().UTC()
	}

	const q = `
		INSERT INTO route_posts
			(id, channel_id, origin_id, origin_code, destination_id, destination_code, itineraries, message, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if _, err := r.q.Exec(ctx, q,
		p.ID.String(),
		p.ChannelID,
		p.OriginID,
		p.OriginCode,
		p.DestinationID,
		p.DestinationCode,
		p.Itineraries,
		p.Message,
		p.PostedAt,
	); err != nil {
		return fmt.Errorf("inserting route post for channel %s: %w", p.ChannelID, err)
	}

	return nil
}

// RecentPosts returns up to limit posts, newest first.
func (r *Repository) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	const q = `
		SELECT id::text, channel_id, origin_id, origin_code, destination_id, destination_code,
		       itineraries, message, posted_at
		FROM route_posts
		ORDER BY posted_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent route posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		var id string

		if err := rows.Scan(
			&id,
			&p.ChannelID,
			&p.OriginID,
			&p.OriginCode,
			&p.DestinationID,
			&p.DestinationCode,
			&p.Itineraries,
			&p.Message,
			&p.PostedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning route post row: %w", err)
		}

		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing route post id %q: %w", id, err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating route post rows: %w", err)
	}

	return posts, nil
}
