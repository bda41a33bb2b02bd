package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ernie/fragfeed/internal/domain"
)

var linesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fragfeed",
	Name:      "collector_lines_total",
	Help:      "Raw log lines seen by the decoder, by outcome.",
}, []string{"outcome"})

// Publisher receives every decoded event
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, ev domain.Event) error

// Publish calls f
func (f PublisherFunc) Publish(ctx context.Context, ev domain.Event) error {
	return f(ctx, ev)
}

// Collector follows a server log and publishes the events decoded from it
type Collector struct {
	tailer *Tailer
	pub    Publisher
	logger *zap.SugaredLogger
	loc    *time.Location
	now    func() time.Time
}

// Option configures a Collector
type Option func(*Collector)

// WithLocation sets the zone for log stamps that carry none
func WithLocation(loc *time.Location) Option {
	return func(c *Collector) { c.loc = loc }
}

// WithClock replaces time.Now as the arrival time of followed lines
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a collector reading from tailer
func New(tailer *Tailer, pub Publisher, logger *zap.SugaredLogger, opts ...Option) *Collector {
	c := &Collector{tailer: tailer, pub: pub, logger: logger, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run tails the log until ctx is cancelled
func (c *Collector) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.tailer.Run(ctx)
	})

	g.Go(func() error {
		for {
			select {
			case line, ok := <-c.tailer.Lines:
				if !ok {
					return nil
				}
				c.HandleLine(ctx, line)
			case err := <-c.tailer.Errors:
				c.logger.Warnw("Log tailer error", "path", c.tailer.path, "error", err)
			case <-ctx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

// HandleLine decodes one followed line and publishes the result. Lines
// stamped with a game clock get their arrival time. Decode failures are
// logged at the level their kind calls for and never stop the collector.
func (c *Collector) HandleLine(ctx context.Context, line string) {
	ev, ok := c.decode(line)
	if !ok {
		return
	}
	c.stamp(&ev, c.now())
	if err := c.pub.Publish(ctx, ev); err != nil {
		c.logger.Errorw("Failed to publish event", "action", ev.Kind.String(), "error", err)
	}
}

func (c *Collector) decode(line string) (domain.Event, bool) {
	ev, err := DecodeLine(line)
	switch {
	case err == nil:
		linesDecoded.WithLabelValues("event").Inc()
		return ev, true
	case errors.Is(err, ErrIgnored):
		linesDecoded.WithLabelValues("ignored").Inc()
	case errors.Is(err, ErrUnknownAction):
		linesDecoded.WithLabelValues("unknown").Inc()
		c.logger.Debugw("Unknown action", "line", line, "error", err)
	default:
		linesDecoded.WithLabelValues("malformed").Inc()
		c.logger.Warnw("Skipping malformed line", "line", line, "error", err)
	}
	return domain.Event{}, false
}

// Fill decodes a complete raw log from r and hands every event to pub in
// file order. It returns the number of events published. A finished log
// has no arrival times, so game clock stamps are kept as they are.
func (c *Collector) Fill(ctx context.Context, r io.Reader) (int, error) {
	n := 0
	var pubErr error
	err := ReadLines(r, func(line string) {
		if pubErr != nil {
			return
		}
		ev, ok := c.decode(line)
		if !ok {
			return
		}
		c.stamp(&ev, time.Time{})
		if err := c.pub.Publish(ctx, ev); err != nil {
			pubErr = fmt.Errorf("publishing %s: %w", ev.Kind, err)
			return
		}
		n++
	})
	if err != nil {
		return n, err
	}
	return n, pubErr
}

// stamp resolves the event time. Dated stamps are read in the collector's
// zone; game clock stamps take arrival unless it is zero. Resolved events
// carry their time as an RFC3339 timestamp.
func (c *Collector) stamp(ev *domain.Event, arrival time.Time) {
	if ts := domain.ParseTimestampIn(ev.Timestamp, c.loc); !ts.IsZero() {
		ev.Time = ts
	} else if !arrival.IsZero() {
		ev.Clock = ev.Timestamp
		ev.Time = arrival.In(c.loc)
	} else {
		return
	}
	ev.Timestamp = ev.Time.Format(time.RFC3339Nano)
}
