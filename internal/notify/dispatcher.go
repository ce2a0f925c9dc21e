package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/interview-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultQueueSize   = 256
	defaultWorkers     = 2
	defaultSendTimeout = 10 * time.Second
)

// ErrClosed is returned by Run when the dispatcher was already closed.
var ErrClosed = errors.New("dispatcher closed")

// LogStore persists delivery attempts.
type LogStore interface {
	Create(ctx context.Context, l *model.NotificationLog) error
	MarkStatus(ctx context.Context, id, status string, at time.Time) error
}

// Deduper claims a key once; a false result means it was already claimed.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueSize bounds the number of pending events.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithSendTimeout bounds a single delivery.
func WithSendTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.sendTimeout = t
		}
	}
}

// WithLogStore records every attempt in the notification log.
func WithLogStore(s LogStore) Option {
	return func(d *Dispatcher) { d.logs = s }
}

// WithDeduper suppresses repeated deliveries of the same kind for a registration.
func WithDeduper(dd Deduper) Option {
	return func(d *Dispatcher) { d.dedupe = dd }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records delivery counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher is a bounded queue drained by a fixed pool of workers.
type Dispatcher struct {
	sender      Sender
	logs        LogStore
	dedupe      Deduper
	logger      *zap.Logger
	metrics     *metrics.Metrics
	queueSize   int
	workers     int
	sendTimeout time.Duration

	mu      sync.RWMutex
	started bool
	closed  bool
	events  chan Event
	wg      sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. Call Run to start delivering.
func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:      sender,
		logger:      zap.NewNop(),
		queueSize:   defaultQueueSize,
		workers:     defaultWorkers,
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.events = make(chan Event, d.queueSize)
	d.logger = d.logger.Named("notify")
	return d
}

// Publish enqueues ev without blocking. A full or closed queue drops the event.
func (d *Dispatcher) Publish(ctx context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ev, "dispatcher closed")
		return
	}
	select {
	case d.events <- ev:
	default:
		d.drop(ev, "queue full")
	}
}

func (d *Dispatcher) drop(ev Event, reason string) {
	d.metrics.NotificationDropped()
	d.logger.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("kind", string(ev.Kind)),
		zap.String("registration_id", ev.RegistrationID),
	)
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.started {
		return nil
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
	return nil
}

// Run starts the workers and blocks until ctx is cancelled, then stops
// accepting events and waits for the queue to drain.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Close()
	return nil
}

// Close stops accepting events and waits until queued events are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	// Deliveries outlive ctx so the queue can drain on shutdown.
	base := context.WithoutCancel(ctx)
	for ev := range d.events {
		d.deliver(base, ev)
	}
}

// deliver sends one event. Panics and errors stop here.
func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	log := d.logger.With(
		zap.String("kind", string(ev.Kind)),
		zap.String("registration_id", ev.RegistrationID),
	)
	defer func() {
		if r := recover(); r != nil {
			d.metrics.Notification(string(ev.Kind), "panic")
			log.Error("notification delivery panicked", zap.Any("panic", r))
		}
	}()

	if d.dedupe != nil {
		claimed, err := d.dedupe.Claim(ctx, DedupeKey(ev))
		switch {
		case err != nil:
			log.Warn("notification dedupe unavailable, sending anyway", zap.Error(err))
		case !claimed:
			d.metrics.Notification(string(ev.Kind), "duplicate")
			log.Debug("notification already delivered")
			return
		}
	}

	msg := Render(ev)
	entry := &model.NotificationLog{
		ID:             uuid.NewString(),
		UserID:         ev.UserID,
		RegistrationID: ev.RegistrationID,
		Kind:           string(ev.Kind),
		Content:        msg.Subject,
		Status:         model.NotificationPending,
		CreatedAt:      time.Now().UTC(),
	}
	logged := false
	if d.logs != nil {
		if err := d.logs.Create(ctx, entry); err != nil {
			log.Warn("notification log insert failed", zap.Error(err))
		} else {
			logged = true
		}
	}

	status := model.NotificationSent
	if err := d.sender.Send(ctx, msg); err != nil {
		status = model.NotificationFailed
		log.Error("notification send failed", zap.Error(err))
	}
	d.metrics.Notification(string(ev.Kind), status)

	if logged {
		if err := d.logs.MarkStatus(ctx, entry.ID, status, time.Now().UTC()); err != nil {
			log.Warn("notification log update failed", zap.Error(err))
		}
	}
}

// DedupeKey identifies one delivery of a kind for a registration.
func DedupeKey(ev Event) string {
	return fmt.Sprintf("notify:%s:%s", ev.Kind, ev.RegistrationID)
}
