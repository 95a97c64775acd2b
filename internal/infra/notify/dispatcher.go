// Package notify delivers user notifications after the ledger has committed.
// Notify never blocks and never fails the caller: a full queue drops the
// message and a failing sink is logged and counted.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
	"github.com/sokohub/soko/internal/infra/observability"
)

// Sink is one delivery target.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n domain.Notification) error
}

// Config controls the dispatcher.
type Config struct {
	Buffer         int           // queued notifications before dropping (default: 256)
	DeliverTimeout time.Duration // per-sink delivery timeout (default: 5s)
}

// DefaultConfig returns dispatcher defaults.
func DefaultConfig() Config {
	return Config{Buffer: 256, DeliverTimeout: 5 * time.Second}
}

// Dispatcher queues notifications and fans them out to every sink.
type Dispatcher struct {
	cfg   Config
	queue chan domain.Notification
	sinks []Sink
	log   *slog.Logger
}

var _ domain.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. Nothing is delivered until Run is called.
func NewDispatcher(cfg Config, log *slog.Logger, sinks ...Sink) *Dispatcher {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = DefaultConfig().DeliverTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		cfg:   cfg,
		queue: make(chan domain.Notification, cfg.Buffer),
		sinks: sinks,
		log:   log.With("component", "notify"),
	}
}

// Notify enqueues n without blocking.
func (d *Dispatcher) Notify(_ context.Context, n domain.Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	select {
	case d.queue <- n:
	default:
		observability.NotificationsDropped.WithLabelValues("queue_full").Inc()
		d.log.Warn("notification dropped, queue full", "user_id", n.UserID, "title", n.Title)
	}
}

// Pending returns the number of queued notifications.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Run delivers queued notifications until ctx is cancelled, then flushes
// whatever is still buffered.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case n := <-d.queue:
			d.deliver(n)
		case <-ctx.Done():
			for {
				select {
				case n := <-d.queue:
					d.deliver(n)
				default:
					return nil
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n domain.Notification) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DeliverTimeout)
		err := s.Deliver(ctx, n)
		cancel()
		if err != nil {
			observability.NotificationsDropped.WithLabelValues(s.Name()).Inc()
			d.log.Warn("notification delivery failed", "sink", s.Name(), "user_id", n.UserID, "error", err)
			continue
		}
		observability.NotificationsSent.WithLabelValues(s.Name()).Inc()
	}
}

// ─── Store Sink ─────────────────────────────────────────────────────────────

// NotificationWriter is the slice of the store the StoreSink needs.
type NotificationWriter interface {
	InsertNotification(ctx context.Context, n domain.Notification) error
}

// StoreSink persists notifications for in-app display.
type StoreSink struct {
	W NotificationWriter
}

func (StoreSink) Name() string { return "store" }

func (s StoreSink) Deliver(ctx context.Context, n domain.Notification) error {
	return s.W.InsertNotification(ctx, n)
}
