package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics are unauthenticated; all route and history endpoints
// require bearer auth. Rate limiting is applied globally: 60 requests per
// minute per IP.
func NewRouter(handlers *Handlers, token string, db, redis Pinger, gatherer prometheus.Gatherer, log *zap.SugaredLogger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(db, redis, log))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Get("/api/v1/routes/preview", handlers.Preview)
		r.Post("/api/v1/routes/post", handlers.Post)
		r.Get("/api/v1/posts", handlers.RecentPosts)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
