package api

import (
	"context"

	"github.com/neexbeast/routebot/internal/discovery"
	"github.com/neexbeast/routebot/internal/storage"
)

// RoutePoster defines the compose/deliver operations needed by handlers.
// *bot.Poster satisfies this interface.
type RoutePoster interface {
	Compose(ctx context.Context) (string, *discovery.Result, error)
	Post(ctx context.Context, force bool) (string, error)
	PostedToday(ctx context.Context) (bool, error)
}

// PostHistory defines the storage operations needed by handlers.
type PostHistory interface {
	RecentPosts(ctx context.Context, limit int) ([]storage.Post, error)
}

// Pinger is a dependency whose connectivity is reported by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}
