package discovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/neexbeast/routebot/internal/metrics"
	"github.com/neexbeast/routebot/internal/myfly"
)

const (
	// DefaultMinAirportSize excludes the smallest airstrips from sampling.
	DefaultMinAirportSize = 3
	// DefaultMaxAttempts bounds the number of pairs tried per discovery run.
	DefaultMaxAttempts = 200
)

var (
	// ErrNotEnoughAirports is returned when fewer than two airports qualify.
	ErrNotEnoughAirports = errors.New("not enough airports to generate a random route")
	// ErrAttemptsExhausted is returned when no sampled pair had itineraries.
	ErrAttemptsExhausted = errors.New("unable to locate a random route with available flights")
)

// RouteSource is the subset of the MyFly client used by the Finder.
type RouteSource interface {
	ListAirports(ctx context.Context, minSize int, forceRefresh bool) ([]myfly.Airport, error)
	GetAirport(ctx context.Context, id int) (myfly.Airport, error)
	GetRoute(ctx context.Context, originID, destinationID int) (myfly.RoutePayload, error)
}

// Options tunes a discovery run.
type Options struct {
	MinAirportSize int
	MaxAttempts    int
	// RetryDelay is slept after a failed or empty attempt. 0 disables throttling.
	RetryDelay time.Duration
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MinAirportSize: DefaultMinAirportSize,
		MaxAttempts:    DefaultMaxAttempts,
	}
}

// Result is an accepted origin/destination pair with its route payload.
// Both airports carry the fields of their detail records.
type Result struct {
	Origin      myfly.Airport
	Destination myfly.Airport
	Route       myfly.RoutePayload
	Attempts    int
}

// Finder draws random airport pairs until one has bookable itineraries.
type Finder struct {
	source  RouteSource
	opts    Options
	rnd     *rand.Rand
	metrics *metrics.Registry
	log     *zap.SugaredLogger
}

// NewFinder constructs a Finder seeded from the runtime's random source.
func NewFinder(source RouteSource, opts Options, m *metrics.Registry, log *zap.SugaredLogger) *Finder {
	return NewFinderWithRand(source, opts, m, log, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

// NewFinderWithRand constructs a Finder with a caller-supplied random source (for tests).
func NewFinderWithRand(source RouteSource, opts Options, m *metrics.Registry, log *zap.SugaredLogger, rnd *rand.Rand) *Finder {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Finder{source: source, opts: opts, rnd: rnd, metrics: m, log: log}
}

// Find runs the bounded search. Per-attempt failures are logged and skipped;
// only ErrNotEnoughAirports, ErrAttemptsExhausted, a catalogue download failure
// or context cancellation end the search early.
func (f *Finder) Find(ctx context.Context) (*Result, error) {
	airports, err := f.source.ListAirports(ctx, f.opts.MinAirportSize, false)
	if err != nil {
		f.metrics.ObserveDiscovery("error", 0)
		return nil, fmt.Errorf("loading airports: %w", err)
	}
	if len(airports) < 2 {
		f.metrics.ObserveDiscovery("not_enough_airports", 0)
		return nil, ErrNotEnoughAirports
	}

	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		origin, destination := f.samplePair(airports)
		originID, destinationID := origin.ID(), destination.ID()
		// Duplicate catalogue entries can share an id.
		if originID <= 0 || destinationID <= 0 || originID == destinationID {
			continue
		}

		f.log.Infow("checking route",
			"attempt", attempt,
			"max_attempts", f.opts.MaxAttempts,
			"origin", origin.Display(),
			"destination", destination.Display(),
		)

		result, err := f.try(ctx, origin, destination)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.log.Warnw("unable to fetch route or airport details",
				"origin_id", originID,
				"destination_id", destinationID,
				"err", err,
			)
		case result != nil:
			result.Attempts = attempt
			f.metrics.ObserveDiscovery("found", attempt)
			return result, nil
		}

		if err := sleep(ctx, f.opts.RetryDelay); err != nil {
			return nil, err
		}
	}

	f.metrics.ObserveDiscovery("exhausted", f.opts.MaxAttempts)
	return nil, fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, f.opts.MaxAttempts)
}

// try checks one pair. It returns (nil, nil) when the route has no itineraries.
func (f *Finder) try(ctx context.Context, origin, destination myfly.Airport) (*Result, error) {
	route, err := f.source.GetRoute(ctx, origin.ID(), destination.ID())
	if err != nil {
		return nil, err
	}
	if !route.HasItineraries() {
		return nil, nil
	}

	originDetail, err := f.source.GetAirport(ctx, origin.ID())
	if err != nil {
		return nil, err
	}
	destinationDetail, err := f.source.GetAirport(ctx, destination.ID())
	if err != nil {
		return nil, err
	}

	return &Result{
		Origin:      origin.Enrich(originDetail),
		Destination: destination.Enrich(destinationDetail),
		Route:       route,
	}, nil
}

// samplePair draws two distinct entries uniformly without replacement.
func (f *Finder) samplePair(airports []myfly.Airport) (myfly.Airport, myfly.Airport) {
	i := f.rnd.IntN(len(airports))
	j := f.rnd.IntN(len(airports) - 1)
	if j >= i {
		j++
	}
	return airports[i], airports[j]
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
