package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/neexbeast/routebot/internal/bot"
)

const (
	previewKey = "preview"
	previewTTL = 10 * time.Minute

	defaultPostsLimit = 20
	maxPostsLimit     = 100
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	poster   RoutePoster
	history  PostHistory
	previews *gocache.Cache
	log      *zap.SugaredLogger
}

// NewHandlers constructs Handlers. history may be nil when post history is
// not configured.
func NewHandlers(poster RoutePoster, history PostHistory, log *zap.SugaredLogger) *Handlers {
	return &Handlers{
		poster:   poster,
		history:  history,
		previews: gocache.New(previewTTL, 2*previewTTL),
		log:      log,
	}
}

// PreviewResponse is the body of GET /api/v1/routes/preview.
type PreviewResponse struct {
	Message     string    `json:"message"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Attempts    int       `json:"attempts"`
	GeneratedAt time.Time `json:"generated_at"`
	Cached      bool      `json:"cached"`
	PostedToday bool      `json:"posted_today"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Preview handles GET /api/v1/routes/preview.
// Cached preview → return. Otherwise discover + format, cache for 10 minutes.
// ?refresh=true skips the cache.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	if !refresh {
		if cached, ok := h.previews.Get(previewKey); ok {
			resp := cached.(PreviewResponse)
			resp.Cached = true
			resp.PostedToday = h.postedToday(r.Context())
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	msg, res, err := h.poster.Compose(r.Context())
	if err != nil {
		h.log.Errorw("preview compose failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to discover a route")
		return
	}

	resp := PreviewResponse{
		Message:     msg,
		Origin:      res.Origin.Display(),
		Destination: res.Destination.Display(),
		Attempts:    res.Attempts,
		GeneratedAt: time.Now().UTC(),
	}
	h.previews.SetDefault(previewKey, resp)

	resp.PostedToday = h.postedToday(r.Context())
	writeJSON(w, http.StatusOK, resp)
}

// postedToday is looked up on every request; a ledger error reports false.
func (h *Handlers) postedToday(ctx context.Context) bool {
	posted, err := h.poster.PostedToday(ctx)
	if err != nil {
		h.log.Warnw("daily ledger lookup failed", "error", err)
		return false
	}
	return posted
}

// Post handles POST /api/v1/routes/post.
// Delivers today's route; 409 if it was already posted unless ?force=true.
func (h *Handlers) Post(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	msg, err := h.poster.Post(r.Context(), force)
	if err != nil {
		if errors.Is(err, bot.ErrAlreadyPosted) {
			writeError(w, http.StatusConflict, "route already posted today, use ?force=true to post again")
			return
		}
		h.log.Errorw("manual post failed", "force", force, "error", err)
		writeError(w, http.StatusBadGateway, "failed to post route")
		return
	}

	h.previews.Delete(previewKey)
	writeJSON(w, http.StatusOK, map[string]string{"status": "posted", "message": msg})
}

// RecentPosts handles GET /api/v1/posts.
// Returns the newest posts; ?limit=N (default 20, capped at 100).
func (h *Handlers) RecentPosts(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "post history is not enabled")
		return
	}

	limit := defaultPostsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxPostsLimit)
	}

	posts, err := h.history.RecentPosts(r.Context(), limit)
	if err != nil {
		h.log.Errorw("history query failed", "limit", limit, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HealthHandlerFunc returns an http.HandlerFunc that checks the configured
// dependencies. A nil Pinger is reported as "disabled" and does not affect
// the status.
func HealthHandlerFunc(db, redis Pinger, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		check := func(name string, p Pinger) string {
			if p == nil {
				return "disabled"
			}
			if err := p.Ping(ctx); err != nil {
				log.Errorw("health check: ping failed", "dependency", name, "error", err)
				status = http.StatusServiceUnavailable
				return "error"
			}
			return "ok"
		}

		body := map[string]string{
			"db":    check("db", db),
			"redis": check("redis", redis),
		}
		body["status"] = "ok"
		if status != http.StatusOK {
			body["status"] = "degraded"
		}

		writeJSON(w, status, body)
	}
}
