package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Get returns a registration with its interview and slot. Candidates see only
// their own; interviewers see those on slots they are assigned to.
func (s *RegistrationService) Get(ctx context.Context, actor model.Actor, id string) (*model.RegistrationDetail, error) {
	if !validID(id) {
		return nil, ErrRegistrationNotFound
	}
	reg, err := s.stores.Registrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	slot, err := s.slotOf(ctx, reg)
	if err != nil {
		return nil, err
	}
	if !canView(actor, reg, slot) {
		return nil, ErrForbiddenView
	}

	detail := &model.RegistrationDetail{Registration: *reg, Slot: slot}
	iv, err := s.interview(ctx, reg.InterviewID)
	if err != nil && !errors.Is(err, ErrInterviewNotFound) {
		return nil, err
	}
	detail.Interview = iv
	return detail, nil
}

// ListMine returns the actor's own registrations, newest first. An empty
// status matches every status.
func (s *RegistrationService) ListMine(ctx context.Context, actor model.Actor, status model.RegistrationStatus) ([]model.RegistrationDetail, error) {
	if status != "" && !status.Valid() {
		return nil, invalidf("invalid status %q", status)
	}
	regs, err := s.stores.Registrations.FindByCandidate(ctx, actor.UserID, status)
	if err != nil {
		return nil, fmt.Errorf("list my registrations: %w", err)
	}
	return s.details(ctx, regs)
}

// List returns one page of registrations for staff. Interviewers only see
// registrations on slots they are assigned to.
func (s *RegistrationService) List(ctx context.Context, actor model.Actor, f model.RegistrationFilter) (*model.Page[model.RegistrationDetail], error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalidf("invalid status %q", f.Status)
	}
	if f.InterviewID != "" && !validID(f.InterviewID) {
		return nil, invalidf("invalid interview_id")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	f.PageSize = min(f.PageSize, maxPageSize)
	if f.Page > math.MaxInt/f.PageSize {
		return nil, invalidf("page out of range")
	}
	f.InterviewerID = ""
	if actor.Role == model.RoleInterviewer {
		f.InterviewerID = actor.UserID
	}

	regs, total, err := s.stores.Registrations.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	items, err := s.details(ctx, regs)
	if err != nil {
		return nil, err
	}
	return &model.Page[model.RegistrationDetail]{
		Items:      items,
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: (total + f.PageSize - 1) / f.PageSize,
	}, nil
}

// ListForInterview returns every registration of an interview, optionally
// narrowed to one status, newest first.
func (s *RegistrationService) ListForInterview(ctx context.Context, actor model.Actor, interviewID string, status model.RegistrationStatus) ([]model.RegistrationDetail, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, invalidf("invalid status %q", status)
	}
	if !validID(interviewID) {
		return nil, ErrInterviewNotFound
	}
	if _, err := s.interview(ctx, interviewID); err != nil {
		return nil, err
	}
	regs, err := s.stores.Registrations.FindByInterviewID(ctx, interviewID, status)
	if err != nil {
		return nil, fmt.Errorf("list interview registrations: %w", err)
	}
	return s.visible(ctx, actor, regs)
}

// ListByStatus returns every registration currently in status, e.g. the
// pending queue awaiting confirmation.
func (s *RegistrationService) ListByStatus(ctx context.Context, actor model.Actor, status model.RegistrationStatus) ([]model.RegistrationDetail, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, invalidf("invalid status %q", status)
	}
	regs, err := s.stores.Registrations.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list registrations by status: %w", err)
	}
	return s.visible(ctx, actor, regs)
}

// visible joins regs and drops the ones actor may not view.
func (s *RegistrationService) visible(ctx context.Context, actor model.Actor, regs []model.Registration) ([]model.RegistrationDetail, error) {
	all, err := s.details(ctx, regs)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, d := range all {
		if canView(actor, &d.Registration, d.Slot) {
			out = append(out, d)
		}
	}
	return out, nil
}

// details joins registrations with their interviews and slots, fetching each once.
func (s *RegistrationService) details(ctx context.Context, regs []model.Registration) ([]model.RegistrationDetail, error) {
	interviews := make(map[string]*model.Interview)
	slots := make(map[string]*model.InterviewSlot)

	out := make([]model.RegistrationDetail, 0, len(regs))
	for _, reg := range regs {
		d := model.RegistrationDetail{Registration: reg}

		iv, ok := interviews[reg.InterviewID]
		if !ok {
			var err error
			iv, err = s.interview(ctx, reg.InterviewID)
			if err != nil && !errors.Is(err, ErrInterviewNotFound) {
				return nil, err
			}
			interviews[reg.InterviewID] = iv
		}
		d.Interview = iv

		if reg.SlotID != nil {
			sl, ok := slots[*reg.SlotID]
			if !ok {
				var err error
				sl, err = s.slotOf(ctx, &reg)
				if err != nil {
					return nil, err
				}
				slots[*reg.SlotID] = sl
			}
			d.Slot = sl
		}
		out = append(out, d)
	}
	return out, nil
}
