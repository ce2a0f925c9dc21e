package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/notify"
	"github.com/Shivanand-hulikatti/interview-registration/internal/repository/memory"
	"github.com/Shivanand-hulikatti/interview-registration/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Event(nil), p.events...)
}

type fixture struct {
	store      *memory.Store
	stores     service.Stores
	regs       *service.RegistrationService
	interviews *service.InterviewService
	pub        *recordingPublisher
	admin      model.Actor
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store: store,
		stores: service.Stores{
			Tx:            store,
			Interviews:    store.Interviews(),
			Slots:         store.Slots(),
			Ledger:        store.Ledger(),
			Registrations: store.Registrations(),
		},
		pub:   &recordingPublisher{},
		admin: model.Actor{UserID: uuid.NewString(), Role: model.RoleAdmin},
	}
	opts = append([]service.Option{service.WithPublisher(f.pub)}, opts...)
	f.regs = service.NewRegistrationService(f.stores, opts...)
	f.interviews = service.NewInterviewService(f.stores, opts...)
	return f
}

func candidate() model.Actor {
	return model.Actor{UserID: uuid.NewString(), Role: model.RoleUser}
}

func interviewer() model.Actor {
	return model.Actor{UserID: uuid.NewString(), Role: model.RoleInterviewer}
}

func (f *fixture) interview(t *testing.T, status model.InterviewStatus) *model.Interview {
	t.Helper()
	starts := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	iv, err := f.interviews.CreateInterview(context.Background(), f.admin, model.CreateInterviewRequest{
		Title:    "Backend Engineer",
		Capacity: 20,
		StartsAt: starts,
		EndsAt:   starts.Add(4 * time.Hour),
	})
	require.NoError(t, err)
	if status != model.InterviewDraft {
		iv, err = f.interviews.UpdateInterviewStatus(context.Background(), f.admin, iv.ID, status)
		require.NoError(t, err)
	}
	return iv
}

func (f *fixture) slot(t *testing.T, interviewID string, capacity int, interviewers ...string) *model.InterviewSlot {
	t.Helper()
	starts := time.Now().Add(48 * time.Hour).Truncate(time.Minute)
	sl, err := f.interviews.CreateSlot(context.Background(), f.admin, interviewID, model.CreateSlotRequest{
		StartsAt:       starts,
		EndsAt:         starts.Add(30 * time.Minute),
		Capacity:       capacity,
		InterviewerIDs: interviewers,
	})
	require.NoError(t, err)
	return sl
}

func (f *fixture) register(t *testing.T, who model.Actor, interviewID string, slotID *string) *model.Registration {
	t.Helper()
	reg, err := f.regs.Register(context.Background(), who, model.RegisterRequest{InterviewID: interviewID, SlotID: slotID})
	require.NoError(t, err)
	return reg
}

func (f *fixture) booked(t *testing.T, slotID string) int {
	t.Helper()
	sl, err := f.store.Slots().GetByID(context.Background(), slotID)
	require.NoError(t, err)
	return sl.BookedCount
}

// assertLedger checks that booked_count stays within capacity and matches the
// number of non-cancelled registrations on the slot.
func (f *fixture) assertLedger(t *testing.T, slotID string) {
	t.Helper()
	sl, err := f.store.Slots().GetByID(context.Background(), slotID)
	require.NoError(t, err)
	live, err := f.store.Registrations().CountActiveBySlot(context.Background(), slotID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sl.BookedCount, 0)
	assert.LessOrEqual(t, sl.BookedCount, sl.Capacity)
	assert.Equal(t, live, sl.BookedCount, "booked_count must equal live registrations")
}

func (f *fixture) status(t *testing.T, regID string) model.RegistrationStatus {
	t.Helper()
	reg, err := f.store.Registrations().FindByID(context.Background(), regID)
	require.NoError(t, err)
	return reg.Status
}

func ptr[T any](v T) *T { return &v }
