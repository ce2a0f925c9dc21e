// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. Every mutating registration
// operation runs in a single transaction that combines slot-ledger and
// registration-store writes.
package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/interview-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultPassThreshold is the lowest score that passes an interview.
const DefaultPassThreshold = 60

// Transactor scopes a function to one all-or-nothing transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// InterviewStore persists interviews.
type InterviewStore interface {
	Create(ctx context.Context, iv *model.Interview) error
	GetByID(ctx context.Context, id string) (*model.Interview, error)
	List(ctx context.Context, status model.InterviewStatus) ([]model.Interview, error)
	UpdateStatus(ctx context.Context, id string, status model.InterviewStatus) error
}

// SlotStore persists interview slots. It never writes booked_count.
type SlotStore interface {
	Create(ctx context.Context, s *model.InterviewSlot) error
	GetByID(ctx context.Context, id string) (*model.InterviewSlot, error)
	GetByIDForUpdate(ctx context.Context, id string) (*model.InterviewSlot, error)
	ListByInterview(ctx context.Context, interviewID string, availableOnly bool) ([]model.InterviewSlot, error)
	UpdateCapacity(ctx context.Context, id string, capacity int) error
	Delete(ctx context.Context, id string) error
}

// Ledger is the only writer of a slot's booked_count.
type Ledger interface {
	Reserve(ctx context.Context, slotID string) error
	Release(ctx context.Context, slotID string) error
}

// RegistrationStore persists registrations. UpdateStatus does not enforce the
// state machine.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration) error
	FindByID(ctx context.Context, id string) (*model.Registration, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Registration, error)
	FindByCandidateAndInterview(ctx context.Context, candidateID, interviewID string) ([]model.Registration, error)
	FindByInterviewID(ctx context.Context, interviewID string, status model.RegistrationStatus) ([]model.Registration, error)
	FindByStatus(ctx context.Context, status model.RegistrationStatus) ([]model.Registration, error)
	FindByCandidate(ctx context.Context, candidateID string, status model.RegistrationStatus) ([]model.Registration, error)
	List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, int, error)
	CountActiveBySlot(ctx context.Context, slotID string) (int, error)
	UpdateStatus(ctx context.Context, id string, status model.RegistrationStatus) error
	UpdateScoreAndFeedback(ctx context.Context, id string, score int, feedback *string) error
	SetResultAnnounced(ctx context.Context, id string) error
}

// Stores groups the persistence dependencies shared by the services.
type Stores struct {
	Tx            Transactor
	Interviews    InterviewStore
	Slots         SlotStore
	Ledger        Ledger
	Registrations RegistrationStore
}

// Option configures a service.
type Option func(*options)

type options struct {
	passThreshold int
	publisher     notify.Publisher
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func defaultOptions() options {
	return options{
		passThreshold: DefaultPassThreshold,
		publisher:     discardPublisher{},
		logger:        zap.NewNop(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithPassThreshold sets the lowest passing score.
func WithPassThreshold(n int) Option {
	return func(o *options) { o.passThreshold = n }
}

// WithPublisher sets where post-commit notifications go.
func WithPublisher(p notify.Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithMetrics records registration counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source used for new rows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, notify.Event) {}

// validID reports whether id is a well-formed UUID. Malformed ids can never
// match a row, so callers report them as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
