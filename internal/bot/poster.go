// Package bot composes the daily route message and delivers it to a chat
// channel, once per UTC day.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neexbeast/routebot/internal/discovery"
	"github.com/neexbeast/routebot/internal/formatter"
	"github.com/neexbeast/routebot/internal/metrics"
	"github.com/neexbeast/routebot/internal/storage"
)

// ErrAlreadyPosted is returned by Post when today's message for the channel
// has already been claimed.
var ErrAlreadyPosted = errors.New("route already posted today")

// Finder produces an accepted route. *discovery.Finder satisfies this interface.
type Finder interface {
	Find(ctx context.Context) (*discovery.Result, error)
}

// Sink delivers a finished message to a channel.
type Sink interface {
	Send(ctx context.Context, channelID, content string) error
}

// Ledger guards against posting twice on the same day. *cache.Ledger
// satisfies this interface.
type Ledger interface {
	Claim(ctx context.Context, channelID string) (bool, error)
	Release(ctx context.Context, channelID string) error
	Posted(ctx context.Context, channelID string) (bool, error)
}

// History records delivered posts. *storage.Repository satisfies this interface.
type History interface {
	RecordPost(ctx context.Context, p *storage.Post) error
}

// Options carries the optional collaborators of a Poster. Nil fields are skipped.
type Options struct {
	Ledger  Ledger
	History History
	Metrics *metrics.Registry
}

// Poster runs discovery, formats the result and hands it to the Sink.
type Poster struct {
	finder    Finder
	sink      Sink
	channelID string
	ledger    Ledger
	history   History
	metrics   *metrics.Registry
	log       *zap.SugaredLogger
	now       func() time.Time

	// mu serializes discovery runs; the Finder's random source is not shared-safe.
	mu sync.Mutex
}

// NewPoster constructs a Poster for channelID. sink may be nil for a Poster
// that only composes.
func NewPoster(finder Finder, sink Sink, channelID string, opts Options, log *zap.SugaredLogger) *Poster {
	return &Poster{
		finder:    finder,
		sink:      sink,
		channelID: channelID,
		ledger:    opts.Ledger,
		history:   opts.History,
		metrics:   opts.Metrics,
		log:       log,
		now:       time.Now,
	}
}

// NewPosterWithClock is used by tests to pin the message date.
func NewPosterWithClock(finder Finder, sink Sink, channelID string, opts Options, log *zap.SugaredLogger, now func() time.Time) *Poster {
	p := NewPoster(finder, sink, channelID, opts, log)
	p.now = now
	return p
}

// Compose discovers a route and renders the message without delivering it.
func (p *Poster) Compose(ctx context.Context) (string, *discovery.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.finder.Find(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("discovering route: %w", err)
	}

	msg := formatter.FormatOn(res.Origin, res.Destination, res.Route, p.now().UTC())
	return msg, res, nil
}

// PostedToday reports whether today's slot for the channel is claimed. It is
// always false without a ledger.
func (p *Poster) PostedToday(ctx context.Context) (bool, error) {
	if p.ledger == nil {
		return false, nil
	}
	return p.ledger.Posted(ctx, p.channelID)
}

// Post composes and delivers today's message. Unless force is set, the daily
// slot is claimed first and ErrAlreadyPosted is returned when it is taken.
// The claim is released again if composing or sending fails.
func (p *Poster) Post(ctx context.Context, force bool) (string, error) {
	if p.sink == nil {
		return "", errors.New("poster has no sink configured")
	}

	claimed := false
	if !force && p.ledger != nil {
		ok, err := p.ledger.Claim(ctx, p.channelID)
		if err != nil {
			p.metrics.ObservePost("error")
			return "", fmt.Errorf("claiming daily slot: %w", err)
		}
		if !ok {
			p.metrics.ObservePost("skipped")
			return "", ErrAlreadyPosted
		}
		claimed = true
	}

	msg, res, err := p.Compose(ctx)
	if err == nil {
		err = p.sink.Send(ctx, p.channelID, msg)
		if err != nil {
			err = fmt.Errorf("sending message to channel %s: %w", p.channelID, err)
		}
	}
	if err != nil {
		p.metrics.ObservePost("error")
		if claimed {
			p.release()
		}
		return "", err
	}

	p.metrics.ObservePost("sent")
	p.log.Infow("posted random route",
		"channel", p.channelID,
		"origin", res.Origin.Display(),
		"destination", res.Destination.Display(),
		"attempts", res.Attempts,
	)
	p.record(ctx, res, msg)

	return msg, nil
}

// release drops the daily claim on a fresh context so a cancelled post can
// still free its slot.
func (p *Poster) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.ledger.Release(ctx, p.channelID); err != nil {
		p.log.Warnw("failed to release daily claim", "channel", p.channelID, "error", err)
	}
}

func (p *Poster) record(ctx context.Context, res *discovery.Result, msg string) {
	if p.history == nil {
		return
	}
	post := &storage.Post{
		ChannelID:       p.channelID,
		OriginID:        res.Origin.ID(),
		OriginCode:      res.Origin.Code(),
		DestinationID:   res.Destination.ID(),
		DestinationCode: res.Destination.Code(),
		Itineraries:     len(res.Route.Itineraries()),
		Message:         msg,
		PostedAt:        p.now().UTC(),
	}
	if err := p.history.RecordPost(ctx, post); err != nil {
		p.log.Warnw("failed to record post history", "channel", p.channelID, "error", err)
	}
}

// RunScheduled posts once at start and then every interval until ctx is
// cancelled. A slot already claimed in the ledger is skipped, so a restart on
// the same day does not post twice.
func (p *Poster) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.log.Infow("route scheduler started", "channel", p.channelID, "interval", interval)
	p.scheduledPost(ctx)

	for {
		select {
		case <-ticker.C:
			p.scheduledPost(ctx)
		case <-ctx.Done():
			p.log.Infow("route scheduler stopped", "channel", p.channelID)
			return
		}
	}
}

func (p *Poster) scheduledPost(ctx context.Context) {
	if _, err := p.Post(ctx, false); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyPosted):
			p.log.Infow("skipping scheduled post", "channel", p.channelID, "reason", err)
		case ctx.Err() != nil:
			// shutting down
		default:
			p.log.Errorw("scheduled post failed", "channel", p.channelID, "error", err)
		}
	}
}
