package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	notificationsQueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fragfeed",
		Name:      "notifications_queued_total",
		Help:      "Notifications produced by the live tracker.",
	})
	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fragfeed",
		Name:      "notifications_sent_total",
		Help:      "Notifications handed to the sink, by result.",
	}, []string{"result"})
)

// Queue is a FIFO of notification lines. Push never blocks.
type Queue struct {
	mu    sync.Mutex
	items []string
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends notifications in order
func (q *Queue) Push(msgs ...string) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, msgs...)
	q.mu.Unlock()
	notificationsQueued.Add(float64(len(msgs)))
}

// Pop removes the oldest notification
func (q *Queue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	msg := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return msg, true
}

// Len returns the number of queued notifications
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Sink delivers notifications to their audience
type Sink interface {
	Send(ctx context.Context, msg string) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, msg string) error

// Send calls f
func (f SinkFunc) Send(ctx context.Context, msg string) error {
	return f(ctx, msg)
}

// Drainer is the single consumer of a Queue. Every interval it sends at
// most one notification; when there is nothing to send it runs the idle
// action instead, at most once per idleInterval.
type Drainer struct {
	queue        *Queue
	sink         Sink
	interval     time.Duration
	idle         func(ctx context.Context)
	idleInterval time.Duration
	logger       *zap.SugaredLogger
}

// NewDrainer creates a drainer. idle may be nil.
func NewDrainer(queue *Queue, sink Sink, interval time.Duration, idle func(ctx context.Context), idleInterval time.Duration, logger *zap.SugaredLogger) *Drainer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Drainer{
		queue:        queue,
		sink:         sink,
		interval:     interval,
		idle:         idle,
		idleInterval: idleInterval,
		logger:       logger,
	}
}

// Run drains until ctx is cancelled
func (d *Drainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var lastIdle time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if msg, ok := d.queue.Pop(); ok {
				d.send(ctx, msg)
				continue
			}
			if d.idle != nil && now.Sub(lastIdle) >= d.idleInterval {
				lastIdle = now
				d.idle(ctx)
			}
		}
	}
}

func (d *Drainer) send(ctx context.Context, msg string) {
	if err := d.sink.Send(ctx, msg); err != nil {
		notificationsSent.WithLabelValues("error").Inc()
		d.logger.Warnw("Failed to send notification", "message", msg, "error", err)
		return
	}
	notificationsSent.WithLabelValues("ok").Inc()
}
