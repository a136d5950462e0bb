package myfly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/neexbeast/routebot/internal/metrics"
)

const (
	// DefaultBaseURL is the public MyFly Club game server.
	DefaultBaseURL = "https://play.myfly.club"
	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 30 * time.Second

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/129.0.0.0 Safari/537.36"

	maxErrorBody = 200
)

// Endpoint labels used in logs and metrics.
const (
	endpointAirports     = "airports"
	endpointAirport      = "airport"
	endpointSearchRoute  = "search-route"
	endpointResearchLink = "research-link"
)

// APIError is returned when the MyFly API answers with a non-200 status or a
// body that is not JSON.
type APIError struct {
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GET %s failed with status %d: %s", e.Path, e.Status, e.Body)
}

// Config configures a Client. Zero values select the defaults.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls; 0 means unlimited.
	RequestsPerSecond float64
	Metrics           *metrics.Registry
}

// Client wraps the MyFly Club endpoints. The airport catalogue is downloaded
// once and kept for the lifetime of the client.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	metrics *metrics.Registry
	log     *zap.SugaredLogger

	mu       sync.Mutex
	airports atomic.Pointer[[]Airport]
}

// NewClient constructs a Client from cfg.
func NewClient(cfg Config, log *zap.SugaredLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		metrics: cfg.Metrics,
		log:     log,
	}
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL string, log *zap.SugaredLogger) *Client {
	return NewClient(Config{BaseURL: baseURL}, log)
}

// getJSON performs a GET request and decodes the JSON body into a generic value.
func (c *Client) getJSON(ctx context.Context, endpoint, path string) (any, error) {
	start := time.Now()
	v, err := c.doGet(ctx, path)

	outcome := "ok"
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		outcome = strconv.Itoa(apiErr.Status)
	case err != nil:
		outcome = "transport_error"
	}
	c.metrics.ObserveRequest(endpoint, outcome, time.Since(start))

	return v, err
}

func (c *Client) doGet(ctx context.Context, path string) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	rawURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Path: path, Status: resp.StatusCode, Body: truncate(body)}
	}

	var v any
	if err := json.Unmarshal(bytes.TrimSpace(body), &v); err != nil {
		return nil, &APIError{Path: path, Status: resp.StatusCode, Body: "response is not JSON: " + truncate(body)}
	}

	return v, nil
}

func truncate(body []byte) string {
	r := []rune(string(body))
	if len(r) > maxErrorBody {
		r = r[:maxErrorBody]
	}
	return string(r)
}

// ListAirports returns the cached catalogue filtered to size >= minSize. The
// catalogue is downloaded on first use, or again when forceRefresh is set;
// concurrent callers share a single download.
func (c *Client) ListAirports(ctx context.Context, minSize int, forceRefresh bool) ([]Airport, error) {
	all := c.airports.Load()
	if all == nil || forceRefresh {
		var err error
		if all, err = c.loadAirports(ctx, forceRefresh); err != nil {
			return nil, err
		}
	}

	out := make([]Airport, 0, len(*all))
	for _, a := range *all {
		if a.Size() >= minSize {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (c *Client) loadAirports(ctx context.Context, forceRefresh bool) (*[]Airport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have finished the download while we waited.
	if cached := c.airports.Load(); cached != nil && !forceRefresh {
		return cached, nil
	}

	c.log.Infow("downloading airport catalogue", "base_url", c.baseURL)
	data, err := c.getJSON(ctx, endpointAirports, "/airports")
	if err != nil {
		return nil, fmt.Errorf("listing airports: %w", err)
	}

	raw := AsList(data)
	if m := AsMap(data); m != nil {
		raw = AsList(m["airports"])
	}

	airports := make([]Airport, 0, len(raw))
	for _, item := range raw {
		if m := AsMap(item); m != nil {
			airports = append(airports, Airport(m))
		}
	}

	c.log.Infow("airport catalogue loaded", "airports", len(airports))
	c.airports.Store(&airports)
	return &airports, nil
}

// GetAirport fetches the detail record of one airport. It is never cached.
func (c *Client) GetAirport(ctx context.Context, id int) (Airport, error) {
	data, err := c.getJSON(ctx, endpointAirport, "/airports/"+strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("fetching airport %d: %w", id, err)
	}
	m := AsMap(data)
	if m == nil {
		return Airport{}, nil
	}
	return Airport(m), nil
}

// GetRoute fetches the ticket search for a pair and merges the research-link
// data into it. A failed research fetch is logged and the search result is
// returned as is.
func (c *Client) GetRoute(ctx context.Context, originID, destinationID int) (RoutePayload, error) {
	pair := strconv.Itoa(originID) + "/" + strconv.Itoa(destinationID)

	data, err := c.getJSON(ctx, endpointSearchRoute, "/search-route/"+pair)
	if err != nil {
		return RoutePayload{}, fmt.Errorf("searching route %d -> %d: %w", originID, destinationID, err)
	}
	route := decodeRoute(data)

	research, err := c.research(ctx, pair)
	if err != nil {
		c.log.Warnw("research fetch failed",
			"origin_id", originID,
			"destination_id", destinationID,
			"err", err,
		)
		return route, nil
	}
	if research == nil {
		return route, nil
	}

	return route.WithResearch(research), nil
}

// research returns the research-link object, or nil when the endpoint answers
// with something other than an object.
func (c *Client) research(ctx context.Context, pair string) (map[string]any, error) {
	data, err := c.getJSON(ctx, endpointResearchLink, "/research-link/"+pair)
	if err != nil {
		return nil, err
	}
	return AsMap(data), nil
}
