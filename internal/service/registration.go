package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/notify"
	"github.com/Shivanand-hulikatti/interview-registration/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusChange tells whether ChangeStatus wrote anything.
type StatusChange int

const (
	StatusUnchanged StatusChange = iota
	StatusUpdated
)

func (c StatusChange) String() string {
	if c == StatusUpdated {
		return "updated"
	}
	return "unchanged"
}

// RegistrationService is the registration lifecycle engine. It owns the
// state machine and keeps every slot's booked_count equal to the number of
// non-cancelled registrations referencing it.
type RegistrationService struct {
	stores Stores
	opts   options
	logger *zap.Logger
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(stores Stores, opts ...Option) *RegistrationService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RegistrationService{stores: stores, opts: o, logger: o.logger.Named("registrations")}
}

// Register books a candidate onto a published interview, reserving a seat in
// the requested slot when one is given.
func (s *RegistrationService) Register(ctx context.Context, actor model.Actor, req model.RegisterRequest) (*model.Registration, error) {
	req.InterviewID = strings.TrimSpace(req.InterviewID)
	if req.InterviewID == "" {
		return nil, invalidf("interview_id is required")
	}
	if !validID(req.InterviewID) {
		return nil, ErrInterviewNotFound
	}
	if req.SlotID != nil && strings.TrimSpace(*req.SlotID) == "" {
		req.SlotID = nil
	}
	if req.SlotID != nil && !validID(*req.SlotID) {
		return nil, ErrSlotNotFound
	}
	if len(req.Answers) > 0 && !json.Valid(req.Answers) {
		return nil, invalidf("answers must be valid JSON")
	}

	var (
		reg  *model.Registration
		iv   *model.Interview
		slot *model.InterviewSlot
	)
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if iv, err = s.interview(ctx, req.InterviewID); err != nil {
			return err
		}
		if iv.Status != model.InterviewPublished {
			return ErrInterviewNotOpen
		}
		if err := s.ensureNoLiveRegistration(ctx, actor.UserID, iv.ID, ""); err != nil {
			return err
		}

		if req.SlotID != nil {
			if slot, err = s.slot(ctx, *req.SlotID); err != nil {
				return err
			}
			if slot.InterviewID != iv.ID {
				return ErrSlotWrongInterview
			}
			if err := s.reserve(ctx, slot.ID); err != nil {
				return err
			}
		}

		now := s.opts.now()
		reg = &model.Registration{
			ID:          uuid.NewString(),
			CandidateID: actor.UserID,
			InterviewID: iv.ID,
			SlotID:      req.SlotID,
			Status:      model.StatusPending,
			ResumeURL:   req.ResumeURL,
			Answers:     req.Answers,
			Notes:       req.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.stores.Registrations.Create(ctx, reg); err != nil {
			if errors.Is(err, repository.ErrDuplicateActive) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("create registration: %w", err)
		}
		return nil
	})
	s.opts.metrics.RegistrationAttempt(registrationOutcome(err))
	if err != nil {
		return nil, err
	}
	if slot != nil {
		s.opts.metrics.Reservation("reserved")
	}

	s.logger.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.String("interview_id", reg.InterviewID),
		zap.Stringp("slot_id", reg.SlotID),
	)

	ev := notify.Event{
		Kind:           notify.KindRegistrationConfirmation,
		RegistrationID: reg.ID,
		UserID:         reg.CandidateID,
		InterviewID:    iv.ID,
		InterviewTitle: iv.Title,
		StartsAt:       iv.StartsAt,
		EndsAt:         iv.EndsAt,
	}
	if slot != nil {
		ev.StartsAt, ev.EndsAt = slot.StartsAt, slot.EndsAt
	}
	s.opts.publisher.Publish(ctx, ev)
	return reg, nil
}

// Cancel cancels a registration on behalf of its candidate or an admin and
// releases its seat. Cancelling twice is an error.
func (s *RegistrationService) Cancel(ctx context.Context, actor model.Actor, id string) (*model.Registration, error) {
	if !validID(id) {
		return nil, ErrRegistrationNotFound
	}

	var (
		out      *model.Registration
		from     model.RegistrationStatus
		released bool
	)
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reg, err := s.lockRegistration(ctx, id)
		if err != nil {
			return err
		}
		if !canCancel(actor, reg) {
			return ErrForbiddenCancel
		}
		if reg.Status == model.StatusCancelled {
			return ErrAlreadyCancelled
		}
		from = reg.Status

		if reg.SlotID != nil {
			if released, err = s.release(ctx, *reg.SlotID); err != nil {
				return err
			}
		}
		if err := s.stores.Registrations.UpdateStatus(ctx, reg.ID, model.StatusCancelled); err != nil {
			return fmt.Errorf("cancel registration: %w", err)
		}
		out, err = s.reload(ctx, reg.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if released {
		s.opts.metrics.Reservation("released")
	}
	s.opts.metrics.StatusTransition(string(from), string(model.StatusCancelled))
	s.logger.Info("registration cancelled",
		zap.String("registration_id", id),
		zap.String("actor_id", actor.UserID),
	)
	return out, nil
}

// ChangeStatus overwrites a registration's status. Moving into cancelled
// releases the seat; moving out of cancelled re-reserves it and fails when
// the slot has filled in the meantime.
func (s *RegistrationService) ChangeStatus(ctx context.Context, actor model.Actor, id string, status model.RegistrationStatus) (StatusChange, *model.Registration, error) {
	if !canChangeStatus(actor) {
		return StatusUnchanged, nil, ErrForbidden
	}
	if !status.Valid() {
		return StatusUnchanged, nil, invalidf("invalid status %q", status)
	}
	if !validID(id) {
		return StatusUnchanged, nil, ErrRegistrationNotFound
	}

	var (
		change = StatusUnchanged
		from   model.RegistrationStatus
		out    *model.Registration
		seat   string
	)
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reg, err := s.lockRegistration(ctx, id)
		if err != nil {
			return err
		}
		from = reg.Status
		if reg.Status == status {
			out = reg
			return nil
		}

		releasing := reg.Status.HoldsSeat() && !status.HoldsSeat()
		reactivating := !reg.Status.HoldsSeat() && status.HoldsSeat()
		if reactivating {
			if err := s.ensureNoLiveRegistration(ctx, reg.CandidateID, reg.InterviewID, reg.ID); err != nil {
				return err
			}
		}
		if reg.SlotID != nil {
			switch {
			case releasing:
				var released bool
				if released, err = s.release(ctx, *reg.SlotID); released {
					seat = "released"
				}
			case reactivating:
				if err = s.reserve(ctx, *reg.SlotID); err == nil {
					seat = "reserved"
				}
			}
			if err != nil {
				return err
			}
		}

		if err := s.stores.Registrations.UpdateStatus(ctx, reg.ID, status); err != nil {
			if errors.Is(err, repository.ErrDuplicateActive) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("update registration status: %w", err)
		}
		change = StatusUpdated
		out, err = s.reload(ctx, reg.ID)
		return err
	})
	if err != nil {
		return StatusUnchanged, nil, err
	}

	if seat != "" {
		s.opts.metrics.Reservation(seat)
	}
	if change == StatusUpdated {
		s.opts.metrics.StatusTransition(string(from), string(status))
		s.logger.Info("registration status changed",
			zap.String("registration_id", id),
			zap.String("from", string(from)),
			zap.String("to", string(status)),
			zap.String("actor_id", actor.UserID),
		)
	}
	return change, out, nil
}

// Score records an interview score and feedback and marks the registration completed.
func (s *RegistrationService) Score(ctx context.Context, actor model.Actor, id string, req model.ScoreRequest) (*model.Registration, error) {
	if req.Score == nil {
		return nil, invalidf("score is required")
	}
	if *req.Score < 0 || *req.Score > 100 {
		return nil, invalidf("score must be between 0 and 100")
	}
	if !actor.IsStaff() {
		return nil, ErrForbiddenScore
	}
	if !validID(id) {
		return nil, ErrRegistrationNotFound
	}

	var (
		out  *model.Registration
		from model.RegistrationStatus
	)
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reg, err := s.lockRegistration(ctx, id)
		if err != nil {
			return err
		}
		slot, err := s.slotOf(ctx, reg)
		if err != nil {
			return err
		}
		if !canScore(actor, slot) {
			return ErrForbiddenScore
		}
		if reg.Status != model.StatusConfirmed && reg.Status != model.StatusCompleted {
			return ErrNotScorable
		}
		from = reg.Status

		if err := s.stores.Registrations.UpdateScoreAndFeedback(ctx, reg.ID, *req.Score, req.Feedback); err != nil {
			return fmt.Errorf("score registration: %w", err)
		}
		if reg.Status != model.StatusCompleted {
			if err := s.stores.Registrations.UpdateStatus(ctx, reg.ID, model.StatusCompleted); err != nil {
				return fmt.Errorf("complete registration: %w", err)
			}
		}
		out, err = s.reload(ctx, reg.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if from != model.StatusCompleted {
		s.opts.metrics.StatusTransition(string(from), string(model.StatusCompleted))
	}
	s.logger.Info("registration scored",
		zap.String("registration_id", id),
		zap.Int("score", *req.Score),
		zap.String("actor_id", actor.UserID),
	)
	return out, nil
}

// AnnounceResult publishes the pass/fail outcome of a scored registration.
// Scores at or above the pass threshold complete it; anything lower fails it.
func (s *RegistrationService) AnnounceResult(ctx context.Context, actor model.Actor, id string) (*model.Registration, error) {
	if !canAnnounce(actor) {
		return nil, ErrForbidden
	}
	if !validID(id) {
		return nil, ErrRegistrationNotFound
	}

	var (
		out    *model.Registration
		iv     *model.Interview
		from   model.RegistrationStatus
		passed bool
	)
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		reg, err := s.lockRegistration(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case reg.Status == model.StatusCancelled:
			return ErrCancelledResult
		case reg.Score == nil:
			return ErrNotScored
		case reg.ResultAnnounced:
			return ErrAlreadyAnnounced
		}
		from = reg.Status

		passed = *reg.Score >= s.opts.passThreshold
		status := model.StatusFailed
		if passed {
			status = model.StatusCompleted
		}
		if err := s.stores.Registrations.UpdateStatus(ctx, reg.ID, status); err != nil {
			return fmt.Errorf("set result status: %w", err)
		}
		if err := s.stores.Registrations.SetResultAnnounced(ctx, reg.ID); err != nil {
			return fmt.Errorf("announce result: %w", err)
		}
		if iv, err = s.interview(ctx, reg.InterviewID); err != nil {
			return err
		}
		out, err = s.reload(ctx, reg.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	s.opts.metrics.ResultAnnounced(outcome)
	if from != out.Status {
		s.opts.metrics.StatusTransition(string(from), string(out.Status))
	}
	s.logger.Info("result announced",
		zap.String("registration_id", id),
		zap.String("outcome", outcome),
	)

	s.opts.publisher.Publish(ctx, notify.Event{
		Kind:           notify.KindInterviewResult,
		RegistrationID: out.ID,
		UserID:         out.CandidateID,
		InterviewID:    iv.ID,
		InterviewTitle: iv.Title,
		StartsAt:       iv.StartsAt,
		EndsAt:         iv.EndsAt,
		Passed:         passed,
		Score:          out.Score,
		Feedback:       out.Feedback,
	})
	return out, nil
}

// ensureNoLiveRegistration fails when the candidate holds a non-cancelled
// registration for the interview other than exceptID.
func (s *RegistrationService) ensureNoLiveRegistration(ctx context.Context, candidateID, interviewID, exceptID string) error {
	existing, err := s.stores.Registrations.FindByCandidateAndInterview(ctx, candidateID, interviewID)
	if err != nil {
		return fmt.Errorf("check existing registration: %w", err)
	}
	for _, r := range existing {
		if r.ID != exceptID && r.Status.HoldsSeat() {
			return ErrAlreadyRegistered
		}
	}
	return nil
}

func (s *RegistrationService) reserve(ctx context.Context, slotID string) error {
	if err := s.stores.Ledger.Reserve(ctx, slotID); err != nil {
		if errors.Is(err, repository.ErrSlotFull) {
			s.opts.metrics.Reservation("full")
			return ErrSlotFull
		}
		return fmt.Errorf("reserve slot: %w", err)
	}
	return nil
}

// release reports whether a seat was actually given back.
func (s *RegistrationService) release(ctx context.Context, slotID string) (bool, error) {
	if err := s.stores.Ledger.Release(ctx, slotID); err != nil {
		// A deleted slot has no seat left to give back.
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("release on missing slot", zap.String("slot_id", slotID))
			return false, nil
		}
		return false, fmt.Errorf("release slot: %w", err)
	}
	return true, nil
}

func (s *RegistrationService) lockRegistration(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := s.stores.Registrations.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("lock registration: %w", err)
	}
	return reg, nil
}

func (s *RegistrationService) reload(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := s.stores.Registrations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload registration: %w", err)
	}
	return reg, nil
}

func (s *RegistrationService) interview(ctx context.Context, id string) (*model.Interview, error) {
	iv, err := s.stores.Interviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInterviewNotFound
		}
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

func (s *RegistrationService) slot(ctx context.Context, id string) (*model.InterviewSlot, error) {
	sl, err := s.stores.Slots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return sl, nil
}

// slotOf returns the slot a registration is bound to, or nil when it has none.
func (s *RegistrationService) slotOf(ctx context.Context, reg *model.Registration) (*model.InterviewSlot, error) {
	if reg.SlotID == nil {
		return nil, nil
	}
	sl, err := s.stores.Slots.GetByID(ctx, *reg.SlotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return sl, nil
}

func registrationOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, ErrSlotFull):
		return "slot_full"
	case errors.Is(err, ErrAlreadyRegistered):
		return "duplicate"
	case KindOf(err) != KindInternal:
		return "rejected"
	default:
		return "error"
	}
}
