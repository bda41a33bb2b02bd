package tracker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
)

// Prober fetches the game server's own view of its status
type Prober func(ctx context.Context) (*domain.ServerStatus, error)

// Service connects the tracker to the transport: it decodes delivered
// records, applies them in order and queues the notifications.
type Service struct {
	queue  *Queue
	probe  Prober
	logger *zap.SugaredLogger

	mu      sync.Mutex
	tracker *Tracker
	server  *domain.ServerStatus
}

// NewService creates a service feeding queue. probe may be nil.
func NewService(tracker *Tracker, queue *Queue, probe Prober, logger *zap.SugaredLogger) *Service {
	return &Service{tracker: tracker, queue: queue, probe: probe, logger: logger}
}

// Handle applies one delivered record. Records with a payload that cannot
// be decoded are logged and skipped.
func (s *Service) Handle(_ context.Context, rec eventlog.Record) {
	ev, err := rec.Event()
	if err != nil {
		eventlog.PayloadsRejected.WithLabelValues("tracker").Inc()
		s.logger.Errorw("Skipping unparseable record", "action", rec.Action, "id", rec.ID, "error", err)
		return
	}

	s.mu.Lock()
	msgs := s.tracker.Apply(ev)
	s.mu.Unlock()

	s.queue.Push(msgs...)
}

// Status returns the live match snapshot with the last server probe
func (s *Service) Status() domain.LiveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := s.tracker.Status()
	status.Server = s.server
	return status
}

// Refresh is the drainer's idle action: it re-probes the game server
func (s *Service) Refresh(ctx context.Context) {
	if s.probe == nil {
		return
	}
	status, err := s.probe(ctx)
	if err != nil {
		s.logger.Debugw("Status probe failed", "error", err)
		return
	}
	s.mu.Lock()
	s.server = status
	s.mu.Unlock()
}
