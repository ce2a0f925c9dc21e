package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCapacity = 100_000

// InterviewService administers interviews and their slots.
type InterviewService struct {
	stores Stores
	opts   options
	logger *zap.Logger
}

// NewInterviewService constructs an InterviewService with its dependencies.
func NewInterviewService(stores Stores, opts ...Option) *InterviewService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &InterviewService{stores: stores, opts: o, logger: o.logger.Named("interviews")}
}

// CreateInterview validates the request and stores a new draft interview.
func (s *InterviewService) CreateInterview(ctx context.Context, actor model.Actor, req model.CreateInterviewRequest) (*model.Interview, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, invalidf("title is required")
	}
	if err := validateCapacity(req.Capacity); err != nil {
		return nil, err
	}
	if req.StartsAt.IsZero() || !req.EndsAt.After(req.StartsAt) {
		return nil, invalidf("ends_at must be after starts_at")
	}

	now := s.opts.now()
	iv := &model.Interview{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Status:      model.InterviewDraft,
		Capacity:    req.Capacity,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.stores.Interviews.Create(ctx, iv); err != nil {
		return nil, fmt.Errorf("create interview: %w", err)
	}
	s.logger.Info("interview created", zap.String("interview_id", iv.ID))
	return iv, nil
}

// GetInterview returns a single interview.
func (s *InterviewService) GetInterview(ctx context.Context, id string) (*model.Interview, error) {
	if !validID(id) {
		return nil, ErrInterviewNotFound
	}
	iv, err := s.stores.Interviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInterviewNotFound
		}
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

// ListInterviews returns interviews ordered by start time. An empty status
// matches every status.
func (s *InterviewService) ListInterviews(ctx context.Context, status model.InterviewStatus) ([]model.Interview, error) {
	if status != "" && !status.Valid() {
		return nil, invalidf("invalid status %q", status)
	}
	return s.stores.Interviews.List(ctx, status)
}

// UpdateInterviewStatus moves an interview between draft, published, closed
// and completed.
func (s *InterviewService) UpdateInterviewStatus(ctx context.Context, actor model.Actor, id string, status model.InterviewStatus) (*model.Interview, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, invalidf("invalid status %q", status)
	}
	if !validID(id) {
		return nil, ErrInterviewNotFound
	}
	if err := s.stores.Interviews.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInterviewNotFound
		}
		return nil, fmt.Errorf("update interview status: %w", err)
	}
	return s.GetInterview(ctx, id)
}

// CreateSlot adds a bookable slot to an interview with zero seats booked.
func (s *InterviewService) CreateSlot(ctx context.Context, actor model.Actor, interviewID string, req model.CreateSlotRequest) (*model.InterviewSlot, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validateCapacity(req.Capacity); err != nil {
		return nil, err
	}
	if req.StartsAt.IsZero() || !req.EndsAt.After(req.StartsAt) {
		return nil, invalidf("ends_at must be after starts_at")
	}
	interviewers := make([]string, 0, len(req.InterviewerIDs))
	for _, id := range req.InterviewerIDs {
		if !validID(id) {
			return nil, invalidf("interviewer id %q is not a valid UUID", id)
		}
		interviewers = append(interviewers, id)
	}
	if _, err := s.GetInterview(ctx, interviewID); err != nil {
		return nil, err
	}

	now := s.opts.now()
	slot := &model.InterviewSlot{
		ID:             uuid.NewString(),
		InterviewID:    interviewID,
		ClassroomID:    req.ClassroomID,
		StartsAt:       req.StartsAt.UTC(),
		EndsAt:         req.EndsAt.UTC(),
		Capacity:       req.Capacity,
		InterviewerIDs: interviewers,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.stores.Slots.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	s.logger.Info("slot created",
		zap.String("slot_id", slot.ID),
		zap.String("interview_id", interviewID),
		zap.Int("capacity", slot.Capacity),
	)
	return slot, nil
}

// GetSlot returns a single slot.
func (s *InterviewService) GetSlot(ctx context.Context, id string) (*model.InterviewSlot, error) {
	if !validID(id) {
		return nil, ErrSlotNotFound
	}
	sl, err := s.stores.Slots.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return sl, nil
}

// ListSlots returns the slots of an interview ordered by start time. With
// availableOnly set, full slots are left out.
func (s *InterviewService) ListSlots(ctx context.Context, interviewID string, availableOnly bool) ([]model.InterviewSlot, error) {
	if _, err := s.GetInterview(ctx, interviewID); err != nil {
		return nil, err
	}
	return s.stores.Slots.ListByInterview(ctx, interviewID, availableOnly)
}

// UpdateSlotCapacity changes a slot's capacity. It never drops below the
// number of seats already booked.
func (s *InterviewService) UpdateSlotCapacity(ctx context.Context, actor model.Actor, id string, capacity int) (*model.InterviewSlot, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, ErrSlotNotFound
	}

	var out *model.InterviewSlot
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockSlot(ctx, id); err != nil {
			return err
		}
		if err := s.stores.Slots.UpdateCapacity(ctx, id, capacity); err != nil {
			switch {
			case errors.Is(err, repository.ErrCapacityBelowBooked):
				return ErrCapacityBelowBooked
			case errors.Is(err, repository.ErrNotFound):
				return ErrSlotNotFound
			}
			return fmt.Errorf("update slot capacity: %w", err)
		}
		var err error
		out, err = s.stores.Slots.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSlot removes a slot nobody holds a seat in. Cancelled registrations
// that referenced it keep no slot.
func (s *InterviewService) DeleteSlot(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if !validID(id) {
		return ErrSlotNotFound
	}

	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockSlot(ctx, id); err != nil {
			return err
		}
		live, err := s.stores.Registrations.CountActiveBySlot(ctx, id)
		if err != nil {
			return fmt.Errorf("count slot registrations: %w", err)
		}
		if live > 0 {
			return ErrSlotInUse
		}
		if err := s.stores.Slots.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSlotNotFound
			}
			return fmt.Errorf("delete slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("slot deleted", zap.String("slot_id", id))
	return nil
}

func (s *InterviewService) lockSlot(ctx context.Context, id string) (*model.InterviewSlot, error) {
	sl, err := s.stores.Slots.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("lock slot: %w", err)
	}
	return sl, nil
}

func validateCapacity(n int) error {
	if n <= 0 {
		return invalidf("capacity must be a positive integer")
	}
	if n > maxCapacity {
		return invalidf("capacity cannot exceed 100,000")
	}
	return nil
}
