package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Shivanand-hulikatti/interview-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/notify"
	"github.com/Shivanand-hulikatti/interview-registration/internal/repository/memory"
	"github.com/Shivanand-hulikatti/interview-registration/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRegister_FillsSlotThenRejects(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 2)

	a := f.register(t, candidate(), iv.ID, &sl.ID)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Equal(t, 1, f.booked(t, sl.ID))

	f.register(t, candidate(), iv.ID, &sl.ID)
	assert.Equal(t, 2, f.booked(t, sl.ID))

	_, err := f.regs.Register(context.Background(), candidate(), model.RegisterRequest{InterviewID: iv.ID, SlotID: &sl.ID})
	require.ErrorIs(t, err, service.ErrSlotFull)
	assert.Equal(t, service.KindConflict, service.KindOf(err))
	assert.Equal(t, "Slot is full", err.Error())
	assert.Equal(t, 2, f.booked(t, sl.ID))
	f.assertLedger(t, sl.ID)
}

func TestRegister_WithoutSlotReservesNothing(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)

	reg, err := f.regs.Register(context.Background(), candidate(), model.RegisterRequest{
		InterviewID: iv.ID,
		ResumeURL:   ptr("https://cv.example.com/a.pdf"),
		Answers:     json.RawMessage(`{"why":"curious"}`),
		Notes:       ptr("prefers mornings"),
	})
	require.NoError(t, err)
	assert.Nil(t, reg.SlotID)
	assert.JSONEq(t, `{"why":"curious"}`, string(reg.Answers))
	assert.False(t, reg.ResultAnnounced)
}

func TestRegister_Preconditions(t *testing.T) {
	f := newFixture(t)
	published := f.interview(t, model.InterviewPublished)
	draft := f.interview(t, model.InterviewDraft)
	other := f.interview(t, model.InterviewPublished)
	foreign := f.slot(t, other.ID, 5)

	tests := []struct {
		name string
		req  model.RegisterRequest
		want error
		kind service.Kind
	}{
		{"unknown interview", model.RegisterRequest{InterviewID: uuid.NewString()}, service.ErrInterviewNotFound, service.KindNotFound},
		{"malformed interview id", model.RegisterRequest{InterviewID: "42"}, service.ErrInterviewNotFound, service.KindNotFound},
		{"draft interview", model.RegisterRequest{InterviewID: draft.ID}, service.ErrInterviewNotOpen, service.KindConflict},
		{"unknown slot", model.RegisterRequest{InterviewID: published.ID, SlotID: ptr(uuid.NewString())}, service.ErrSlotNotFound, service.KindNotFound},
		{"slot of another interview", model.RegisterRequest{InterviewID: published.ID, SlotID: &foreign.ID}, service.ErrSlotWrongInterview, service.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.regs.Register(context.Background(), candidate(), tt.req)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, service.KindOf(err))
		})
	}

	t.Run("missing interview id", func(t *testing.T) {
		_, err := f.regs.Register(context.Background(), candidate(), model.RegisterRequest{})
		assert.Equal(t, service.KindInvalid, service.KindOf(err))
	})
	t.Run("answers not json", func(t *testing.T) {
		_, err := f.regs.Register(context.Background(), candidate(), model.RegisterRequest{
			InterviewID: published.ID,
			Answers:     json.RawMessage(`{nope`),
		})
		assert.Equal(t, service.KindInvalid, service.KindOf(err))
	})

	assert.Equal(t, 0, f.booked(t, foreign.ID))
	assert.Empty(t, f.pub.Events())
}

func TestRegister_DuplicateRejectedUntilCancelled(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 3)
	who := candidate()

	first := f.register(t, who, iv.ID, &sl.ID)

	_, err := f.regs.Register(context.Background(), who, model.RegisterRequest{InterviewID: iv.ID, SlotID: &sl.ID})
	require.ErrorIs(t, err, service.ErrAlreadyRegistered)
	assert.Equal(t, 1, f.booked(t, sl.ID))

	_, err = f.regs.Cancel(context.Background(), who, first.ID)
	require.NoError(t, err)

	second := f.register(t, who, iv.ID, &sl.ID)
	assert.NotEqual(t, first.ID, second.ID)
	f.assertLedger(t, sl.ID)
}

func TestRegister_ConcurrentLastSeat(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 1)

	const n = 50
	var ok, full atomic.Int32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := f.regs.Register(context.Background(), candidate(), model.RegisterRequest{InterviewID: iv.ID, SlotID: &sl.ID})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, service.ErrSlotFull):
				full.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), full.Load())
	assert.Equal(t, 1, f.booked(t, sl.ID))
	f.assertLedger(t, sl.ID)
}

func TestRegister_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 10)
	who := candidate()

	const n = 20
	var ok, dup atomic.Int32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := f.regs.Register(context.Background(), who, model.RegisterRequest{InterviewID: iv.ID, SlotID: &sl.ID})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, service.ErrAlreadyRegistered):
				dup.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), dup.Load())
	f.assertLedger(t, sl.ID)
}

type failingCreate struct {
	*memory.Registrations
}

func (failingCreate) Create(context.Context, *model.Registration) error {
	return errors.New("disk full")
}

func TestRegister_FailedInsertRollsBackReservation(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 1)

	stores := f.stores
	stores.Registrations = failingCreate{f.store.Registrations()}
	regs := service.NewRegistrationService(stores, service.WithPublisher(f.pub))

	_, err := regs.Register(context.Background(), candidate(), model.RegisterRequest{InterviewID: iv.ID, SlotID: &sl.ID})
	require.Error(t, err)
	assert.Equal(t, service.KindInternal, service.KindOf(err))
	assert.Equal(t, 0, f.booked(t, sl.ID))
	assert.Empty(t, f.pub.Events())
}

func TestRegister_PublishesConfirmationAfterCommit(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 1)
	who := candidate()

	reg := f.register(t, who, iv.ID, &sl.ID)

	events := f.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.KindRegistrationConfirmation, events[0].Kind)
	assert.Equal(t, reg.ID, events[0].RegistrationID)
	assert.Equal(t, who.UserID, events[0].UserID)
	assert.Equal(t, iv.Title, events[0].InterviewTitle)
	assert.True(t, events[0].StartsAt.Equal(sl.StartsAt))
}

func TestCancel_ReleasesOnceAndRejectsRepeat(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 1)
	who := candidate()

	reg := f.register(t, who, iv.ID, &sl.ID)
	require.Equal(t, 1, f.booked(t, sl.ID))

	out, err := f.regs.Cancel(context.Background(), who, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, out.Status)
	assert.Equal(t, 0, f.booked(t, sl.ID))

	_, err = f.regs.Cancel(context.Background(), who, reg.ID)
	require.ErrorIs(t, err, service.ErrAlreadyCancelled)
	assert.Equal(t, service.KindInvalidTransition, service.KindOf(err))
	assert.Equal(t, 0, f.booked(t, sl.ID))
	f.assertLedger(t, sl.ID)
}

func TestCancel_Authorization(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 2)
	owner := candidate()
	reg := f.register(t, owner, iv.ID, &sl.ID)

	_, err := f.regs.Cancel(context.Background(), candidate(), reg.ID)
	require.ErrorIs(t, err, service.ErrForbiddenCancel)
	_, err = f.regs.Cancel(context.Background(), interviewer(), reg.ID)
	require.ErrorIs(t, err, service.ErrForbiddenCancel)
	assert.Equal(t, 1, f.booked(t, sl.ID))

	_, err = f.regs.Cancel(context.Background(), f.admin, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.booked(t, sl.ID))

	_, err = f.regs.Cancel(context.Background(), owner, uuid.NewString())
	require.ErrorIs(t, err, service.ErrRegistrationNotFound)
}

func TestChangeStatus_SlotAccounting(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 2)
	a := f.register(t, candidate(), iv.ID, &sl.ID)
	f.register(t, candidate(), iv.ID, &sl.ID)
	ctx := context.Background()

	change, out, err := f.regs.ChangeStatus(ctx, f.admin, a.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, service.StatusUpdated, change)
	assert.Equal(t, model.StatusCancelled, out.Status)
	assert.Equal(t, 1, f.booked(t, sl.ID))

	change, _, err = f.regs.ChangeStatus(ctx, f.admin, a.ID, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, service.StatusUpdated, change)
	assert.Equal(t, 2, f.booked(t, sl.ID))

	change, _, err = f.regs.ChangeStatus(ctx, f.admin, a.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, service.StatusUpdated, change)
	assert.Equal(t, 1, f.booked(t, sl.ID))
	f.assertLedger(t, sl.ID)
}

func TestChangeStatus_Unchanged(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 1)
	reg := f.register(t, candidate(), iv.ID, &sl.ID)

	change, out, err := f.regs.ChangeStatus(context.Background(), interviewer(), reg.ID, model.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, service.StatusUnchanged, change)
	assert.Equal(t, "unchanged", change.String())
	assert.Equal(t, model.StatusPending, out.Status)
	assert.Equal(t, 1, f.booked(t, sl.ID))
}

func TestChangeStatus_NonCancelledMovesKeepSeat(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 1)
	reg := f.register(t, candidate(), iv.ID, &sl.ID)

	for _, st := range []model.RegistrationStatus{model.StatusConfirmed, model.StatusNoShow, model.StatusFailed, model.StatusCompleted} {
		_, _, err := f.regs.ChangeStatus(context.Background(), f.admin, reg.ID, st)
		require.NoError(t, err)
		assert.Equal(t, 1, f.booked(t, sl.ID), st)
	}
	f.assertLedger(t, sl.ID)
}

func TestChangeStatus_ReactivationNeedsCapacity(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 1)
	a := f.register(t, candidate(), iv.ID, &sl.ID)
	ctx := context.Background()

	_, _, err := f.regs.ChangeStatus(ctx, f.admin, a.ID, model.StatusCancelled)
	require.NoError(t, err)
	f.register(t, candidate(), iv.ID, &sl.ID)

	change, _, err := f.regs.ChangeStatus(ctx, f.admin, a.ID, model.StatusConfirmed)
	require.ErrorIs(t, err, service.ErrSlotFull)
	assert.Equal(t, service.StatusUnchanged, change)
	assert.Equal(t, model.StatusCancelled, f.status(t, a.ID))
	assert.Equal(t, 1, f.booked(t, sl.ID))
	f.assertLedger(t, sl.ID)
}

func TestChangeStatus_ReactivationBlockedByLiveRegistration(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 5)
	who := candidate()
	old := f.register(t, who, iv.ID, &sl.ID)
	_, err := f.regs.Cancel(context.Background(), who, old.ID)
	require.NoError(t, err)
	f.register(t, who, iv.ID, &sl.ID)

	_, _, err = f.regs.ChangeStatus(context.Background(), f.admin, old.ID, model.StatusPending)
	require.ErrorIs(t, err, service.ErrAlreadyRegistered)
	assert.Equal(t, 1, f.booked(t, sl.ID))
}

func TestChangeStatus_Rejections(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	reg := f.register(t, candidate(), iv.ID, nil)
	ctx := context.Background()

	_, _, err := f.regs.ChangeStatus(ctx, candidate(), reg.ID, model.StatusConfirmed)
	require.ErrorIs(t, err, service.ErrForbidden)

	_, _, err = f.regs.ChangeStatus(ctx, f.admin, reg.ID, "archived")
	assert.Equal(t, service.KindInvalid, service.KindOf(err))

	_, _, err = f.regs.ChangeStatus(ctx, f.admin, uuid.NewString(), model.StatusConfirmed)
	require.ErrorIs(t, err, service.ErrRegistrationNotFound)
}

func TestScore_CompletesRegistration(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	assigned := interviewer()
	sl := f.slot(t, iv.ID, 2, assigned.UserID)
	reg := f.register(t, candidate(), iv.ID, &sl.ID)
	ctx := context.Background()

	_, err := f.regs.Score(ctx, assigned, reg.ID, model.ScoreRequest{Score: ptr(75)})
	require.ErrorIs(t, err, service.ErrNotScorable)

	_, _, err = f.regs.ChangeStatus(ctx, f.admin, reg.ID, model.StatusConfirmed)
	require.NoError(t, err)

	_, err = f.regs.Score(ctx, interviewer(), reg.ID, model.ScoreRequest{Score: ptr(75)})
	require.ErrorIs(t, err, service.ErrForbiddenScore)
	_, err = f.regs.Score(ctx, candidate(), reg.ID, model.ScoreRequest{Score: ptr(75)})
	require.ErrorIs(t, err, service.ErrForbiddenScore)

	out, err := f.regs.Score(ctx, assigned, reg.ID, model.ScoreRequest{Score: ptr(75), Feedback: ptr("solid")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, out.Status)
	require.NotNil(t, out.Score)
	assert.Equal(t, 75, *out.Score)
	assert.Equal(t, "solid", *out.Feedback)

	// Completed registrations can be rescored.
	out, err = f.regs.Score(ctx, f.admin, reg.ID, model.ScoreRequest{Score: ptr(80)})
	require.NoError(t, err)
	assert.Equal(t, 80, *out.Score)
	f.assertLedger(t, sl.ID)
}

func TestScore_Validation(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	reg := f.register(t, candidate(), iv.ID, nil)

	for _, req := range []model.ScoreRequest{{}, {Score: ptr(-1)}, {Score: ptr(101)}} {
		_, err := f.regs.Score(context.Background(), f.admin, reg.ID, req)
		assert.Equal(t, service.KindInvalid, service.KindOf(err))
	}
}

func TestScore_UnslottedOnlyByAdmin(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	reg := f.register(t, candidate(), iv.ID, nil)
	_, _, err := f.regs.ChangeStatus(context.Background(), f.admin, reg.ID, model.StatusConfirmed)
	require.NoError(t, err)

	_, err = f.regs.Score(context.Background(), interviewer(), reg.ID, model.ScoreRequest{Score: ptr(90)})
	require.ErrorIs(t, err, service.ErrForbiddenScore)
	_, err = f.regs.Score(context.Background(), f.admin, reg.ID, model.ScoreRequest{Score: ptr(90)})
	require.NoError(t, err)
}

func scored(t *testing.T, f *fixture, score int) *model.Registration {
	t.Helper()
	iv := f.interview(t, model.InterviewPublished)
	reg := f.register(t, candidate(), iv.ID, nil)
	_, _, err := f.regs.ChangeStatus(context.Background(), f.admin, reg.ID, model.StatusConfirmed)
	require.NoError(t, err)
	out, err := f.regs.Score(context.Background(), f.admin, reg.ID, model.ScoreRequest{Score: ptr(score)})
	require.NoError(t, err)
	return out
}

func TestAnnounceResult_PassAndFail(t *testing.T) {
	f := newFixture(t)
	pass := scored(t, f, 75)
	fail := scored(t, f, 45)
	edge := scored(t, f, 60)

	out, err := f.regs.AnnounceResult(context.Background(), f.admin, pass.ID)
	require.NoError(t, err)
	assert.True(t, out.ResultAnnounced)
	assert.Equal(t, model.StatusCompleted, out.Status)

	out, err = f.regs.AnnounceResult(context.Background(), f.admin, fail.ID)
	require.NoError(t, err)
	assert.True(t, out.ResultAnnounced)
	assert.Equal(t, model.StatusFailed, out.Status)

	out, err = f.regs.AnnounceResult(context.Background(), f.admin, edge.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, out.Status)

	var results []notify.Event
	for _, ev := range f.pub.Events() {
		if ev.Kind == notify.KindInterviewResult {
			results = append(results, ev)
		}
	}
	require.Len(t, results, 3)
	assert.True(t, results[0].Passed)
	assert.Equal(t, 75, *results[0].Score)
	assert.False(t, results[1].Passed)
}

func TestAnnounceResult_ConfigurableThreshold(t *testing.T) {
	f := newFixture(t, service.WithPassThreshold(80))
	reg := scored(t, f, 75)

	out, err := f.regs.AnnounceResult(context.Background(), f.admin, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, out.Status)
}

func TestAnnounceResult_Rejections(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	unscored := f.register(t, candidate(), iv.ID, nil)
	ctx := context.Background()

	_, err := f.regs.AnnounceResult(ctx, f.admin, unscored.ID)
	require.ErrorIs(t, err, service.ErrNotScored)
	assert.Equal(t, "Cannot announce result before scoring", err.Error())
	assert.Equal(t, service.KindInvalidTransition, service.KindOf(err))

	reg := scored(t, f, 70)
	_, err = f.regs.AnnounceResult(ctx, interviewer(), reg.ID)
	require.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.regs.AnnounceResult(ctx, f.admin, reg.ID)
	require.NoError(t, err)
	_, err = f.regs.AnnounceResult(ctx, f.admin, reg.ID)
	require.ErrorIs(t, err, service.ErrAlreadyAnnounced)

	cancelled := scored(t, f, 90)
	_, _, err = f.regs.ChangeStatus(ctx, f.admin, cancelled.ID, model.StatusCancelled)
	require.NoError(t, err)
	_, err = f.regs.AnnounceResult(ctx, f.admin, cancelled.ID)
	require.ErrorIs(t, err, service.ErrCancelledResult)

	_, err = f.regs.AnnounceResult(ctx, f.admin, "not-a-uuid")
	require.ErrorIs(t, err, service.ErrRegistrationNotFound)
}

func TestLifecycle_RoundTripRestoresBookedCount(t *testing.T) {
	f := newFixture(t)
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 3)
	f.register(t, candidate(), iv.ID, &sl.ID)
	f.register(t, candidate(), iv.ID, &sl.ID)
	before := f.booked(t, sl.ID)

	who := candidate()
	reg := f.register(t, who, iv.ID, &sl.ID)
	assert.Equal(t, sl.Capacity, f.booked(t, sl.ID))

	_, err := f.regs.Cancel(context.Background(), who, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, before, f.booked(t, sl.ID))
	f.assertLedger(t, sl.ID)
}

func reservations(t *testing.T, m *metrics.Metrics, result string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "interview_slot_reservations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "result" && lp.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRegister_ReservationMetricOnlyAfterCommit(t *testing.T) {
	m := metrics.New()
	f := newFixture(t, service.WithMetrics(m))
	iv := f.interview(t, model.InterviewPublished)
	sl := f.slot(t, iv.ID, 2)
	ctx := context.Background()

	stores := f.stores
	stores.Registrations = failingCreate{f.store.Registrations()}
	broken := service.NewRegistrationService(stores, service.WithMetrics(m))
	_, err := broken.Register(ctx, candidate(), model.RegisterRequest{InterviewID: iv.ID, SlotID: &sl.ID})
	require.Error(t, err)
	assert.Zero(t, reservations(t, m, "reserved"), "rolled back reservation must not be counted")

	reg := f.register(t, candidate(), iv.ID, &sl.ID)
	assert.Equal(t, 1.0, reservations(t, m, "reserved"))

	_, err = f.regs.Cancel(ctx, f.admin, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, reservations(t, m, "released"))

	_, _, err = f.regs.ChangeStatus(ctx, f.admin, reg.ID, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 2.0, reservations(t, m, "reserved"))
}
