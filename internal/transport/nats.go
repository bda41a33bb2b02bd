package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ernie/fragfeed/internal/domain"
	"github.com/ernie/fragfeed/internal/eventlog"
)

const (
	// idHeader carries the record id next to the content body
	idHeader     = "Fragfeed-Id"
	flushTimeout = 5 * time.Second
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fragfeed",
		Name:      "transport_events_published_total",
		Help:      "Events published, by action.",
	}, []string{"action"})

	messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fragfeed",
		Name:      "transport_messages_received_total",
		Help:      "Log messages delivered to subscribers.",
	})
)

// Connect dials the NATS server and logs connection state changes
func Connect(url, name string, logger *zap.SugaredLogger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnw("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infow("NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Errorw("NATS async error", "subject", subject, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Publisher sends decoded events to the log subjects of one namespace
type Publisher struct {
	conn      *nats.Conn
	namespace string
}

// NewPublisher creates a publisher on an open connection
func NewPublisher(conn *nats.Conn, namespace string) *Publisher {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Publisher{conn: conn, namespace: namespace}
}

// Publish encodes ev as a record and publishes its content
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := eventlog.FromEvent(ev)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: Subject(p.namespace, rec),
		Data:    rec.Content,
		Header:  nats.Header{},
	}
	msg.Header.Set(idHeader, rec.ID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", msg.Subject, err)
	}
	eventsPublished.WithLabelValues(rec.Action).Inc()
	return nil
}

// Flush waits until the server has processed everything published so far
func (p *Publisher) Flush() error {
	return p.conn.FlushTimeout(flushTimeout)
}

// Handler receives records one at a time, in arrival order
type Handler func(ctx context.Context, rec eventlog.Record)

// Subscriber delivers the log subjects of one namespace
type Subscriber struct {
	conn      *nats.Conn
	namespace string
	logger    *zap.SugaredLogger
}

// NewSubscriber creates a subscriber on an open connection
func NewSubscriber(conn *nats.Conn, namespace string, logger *zap.SugaredLogger) *Subscriber {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Subscriber{conn: conn, namespace: namespace, logger: logger}
}

// Subscribe listens on the namespace wildcard and calls handler for every
// message, sequentially, until ctx is done. Pending messages are not
// limited, so a slow handler delays delivery but never loses records.
// The subscription is ready when ready is closed, if ready is not nil.
func (s *Subscriber) Subscribe(ctx context.Context, handler Handler, ready chan<- struct{}) error {
	sub, err := s.conn.SubscribeSync(Wildcard(s.namespace))
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", Wildcard(s.namespace), err)
	}
	defer sub.Unsubscribe()

	if err := sub.SetPendingLimits(-1, -1); err != nil {
		return fmt.Errorf("lifting pending limits: %w", err)
	}

	if err := s.conn.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("flushing subscription: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving from %s: %w", sub.Subject, err)
		}
		rec, err := s.record(msg)
		if err != nil {
			s.logger.Warnw("Dropping message", "subject", msg.Subject, "error", err)
			continue
		}
		messagesReceived.Inc()
		handler(ctx, rec)
	}
}

func (s *Subscriber) record(msg *nats.Msg) (eventlog.Record, error) {
	action, clientID, err := ParseSubject(s.namespace, msg.Subject)
	if err != nil {
		return eventlog.Record{}, err
	}
	return eventlog.Record{
		ID:       msg.Header.Get(idHeader),
		Action:   action,
		ClientID: clientID,
		Content:  msg.Data,
	}, nil
}
