// Package cache tracks which channels have already received today's route.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "routebot:posted:"
	dayLayout  = "2006-01-02"
	defaultTTL = 48 * time.Hour
)

// Ledger records daily post claims in Redis. A claim lives for two days so
// that it outlasts its UTC day regardless of when it was taken.
type Ledger struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewLedger constructs a Ledger with a 48-hour TTL.
func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client, ttl: defaultTTL, now: time.Now}
}

// NewLedgerWithClock is used by tests to pin the current day.
func NewLedgerWithClock(client *redis.Client, now func() time.Time) *Ledger {
	return &Ledger{client: client, ttl: defaultTTL, now: now}
}

// key returns the Redis key for channelID on the current UTC day.
func (l *Ledger) key(channelID string) string {
	return keyPrefix + channelID + ":" + l.now().UTC().Format(dayLayout)
}

// Claim marks today's post for channelID as taken. It reports false when the
// slot was already claimed.
func (l *Ledger) Claim(ctx context.Context, channelID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(channelID), l.now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ledger claim for channel %s: %w", channelID, err)
	}
	return ok, nil
}

// Release drops today's claim so a failed post can be retried.
func (l *Ledger) Release(ctx context.Context, channelID string) error {
	if err := l.client.Del(ctx, l.key(channelID)).Err(); err != nil {
		return fmt.Errorf("ledger release for channel %s: %w", channelID, err)
	}
	return nil
}

// Posted reports whether today's slot for channelID is claimed.
func (l *Ledger) Posted(ctx context.Context, channelID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(channelID)).Result()
	if err != nil {
		return false, fmt.Errorf("ledger lookup for channel %s: %w", channelID, err)
	}
	return n > 0, nil
}

// Ping reports whether Redis answers. Used by the health endpoint.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
