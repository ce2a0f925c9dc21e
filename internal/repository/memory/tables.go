package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/Shivanand-hulikatti/interview-registration/internal/repository"
)

// Interviews is the in-memory interview table.
type Interviews struct{ s *Store }

func (t *Interviews) Create(ctx context.Context, iv *model.Interview) error {
	defer t.s.lock(ctx)()
	t.s.state.interviews[iv.ID] = *iv
	return nil
}

func (t *Interviews) GetByID(ctx context.Context, id string) (*model.Interview, error) {
	defer t.s.lock(ctx)()
	iv, ok := t.s.state.interviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &iv, nil
}

func (t *Interviews) List(ctx context.Context, status model.InterviewStatus) ([]model.Interview, error) {
	defer t.s.lock(ctx)()
	var out []model.Interview
	for _, iv := range t.s.state.interviews {
		if status == "" || iv.Status == status {
			out = append(out, iv)
		}
	}
	slices.SortFunc(out, func(a, b model.Interview) int {
		if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (t *Interviews) UpdateStatus(ctx context.Context, id string, status model.InterviewStatus) error {
	defer t.s.lock(ctx)()
	iv, ok := t.s.state.interviews[id]
	if !ok {
		return repository.ErrNotFound
	}
	iv.Status = status
	iv.UpdatedAt = time.Now().UTC()
	t.s.state.interviews[id] = iv
	return nil
}

// Slots is the in-memory slot table.
type Slots struct{ s *Store }

func (t *Slots) Create(ctx context.Context, sl *model.InterviewSlot) error {
	defer t.s.lock(ctx)()
	sl.BookedCount = 0
	t.s.state.slots[sl.ID] = *cloneSlot(*sl)
	return nil
}

func (t *Slots) GetByID(ctx context.Context, id string) (*model.InterviewSlot, error) {
	defer t.s.lock(ctx)()
	sl, ok := t.s.state.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSlot(sl), nil
}

// GetByIDForUpdate is GetByID; the store lock already serialises transactions.
func (t *Slots) GetByIDForUpdate(ctx context.Context, id string) (*model.InterviewSlot, error) {
	return t.GetByID(ctx, id)
}

func (t *Slots) ListByInterview(ctx context.Context, interviewID string, availableOnly bool) ([]model.InterviewSlot, error) {
	defer t.s.lock(ctx)()
	var out []model.InterviewSlot
	for _, sl := range t.s.state.slots {
		if sl.InterviewID != interviewID || (availableOnly && sl.IsFull()) {
			continue
		}
		out = append(out, *cloneSlot(sl))
	}
	slices.SortFunc(out, func(a, b model.InterviewSlot) int {
		return a.StartsAt.Compare(b.StartsAt)
	})
	return out, nil
}

func (t *Slots) UpdateCapacity(ctx context.Context, id string, capacity int) error {
	defer t.s.lock(ctx)()
	sl, ok := t.s.state.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	if sl.BookedCount > capacity {
		return repository.ErrCapacityBelowBooked
	}
	sl.Capacity = capacity
	sl.UpdatedAt = time.Now().UTC()
	t.s.state.slots[id] = sl
	return nil
}

func (t *Slots) Delete(ctx context.Context, id string) error {
	defer t.s.lock(ctx)()
	if _, ok := t.s.state.slots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.s.state.slots, id)
	for rid, reg := range t.s.state.registrations {
		if reg.SlotID != nil && *reg.SlotID == id {
			reg.SlotID = nil
			t.s.state.registrations[rid] = reg
		}
	}
	return nil
}

// Ledger is the in-memory booked_count writer.
type Ledger struct{ s *Store }

func (l *Ledger) Reserve(ctx context.Context, slotID string) error {
	defer l.s.lock(ctx)()
	sl, ok := l.s.state.slots[slotID]
	if !ok || sl.BookedCount >= sl.Capacity {
		return repository.ErrSlotFull
	}
	sl.BookedCount++
	sl.UpdatedAt = time.Now().UTC()
	l.s.state.slots[slotID] = sl
	return nil
}

func (l *Ledger) Release(ctx context.Context, slotID string) error {
	defer l.s.lock(ctx)()
	sl, ok := l.s.state.slots[slotID]
	if !ok {
		return repository.ErrNotFound
	}
	if sl.BookedCount > 0 {
		sl.BookedCount--
	}
	sl.UpdatedAt = time.Now().UTC()
	l.s.state.slots[slotID] = sl
	return nil
}

// Registrations is the in-memory registration table.
type Registrations struct{ s *Store }

// liveConflict reports whether another registration of the same pair holds a seat.
func (t *Registrations) liveConflict(reg model.Registration) bool {
	for id, other := range t.s.state.registrations {
		if id != reg.ID && other.CandidateID == reg.CandidateID &&
			other.InterviewID == reg.InterviewID && other.Status.HoldsSeat() {
			return true
		}
	}
	return false
}

func (t *Registrations) Create(ctx context.Context, reg *model.Registration) error {
	defer t.s.lock(ctx)()
	if reg.Status.HoldsSeat() && t.liveConflict(*reg) {
		return repository.ErrDuplicateActive
	}
	t.s.state.seq++
	t.s.state.regSeq[reg.ID] = t.s.state.seq
	t.s.state.registrations[reg.ID] = cloneRegistration(*reg)
	return nil
}

func (t *Registrations) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	defer t.s.lock(ctx)()
	reg, ok := t.s.state.registrations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneRegistration(reg)
	return &out, nil
}

// FindByIDForUpdate is FindByID; the store lock already serialises transactions.
func (t *Registrations) FindByIDForUpdate(ctx context.Context, id string) (*model.Registration, error) {
	return t.FindByID(ctx, id)
}

func (t *Registrations) filter(keep func(model.Registration) bool) []model.Registration {
	var out []model.Registration
	for _, reg := range t.s.state.registrations {
		if keep(reg) {
			out = append(out, cloneRegistration(reg))
		}
	}
	seq := t.s.state.regSeq
	slices.SortFunc(out, func(a, b model.Registration) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(seq[b.ID], seq[a.ID])
	})
	return out
}

func (t *Registrations) FindByCandidateAndInterview(ctx context.Context, candidateID, interviewID string) ([]model.Registration, error) {
	defer t.s.lock(ctx)()
	return t.filter(func(r model.Registration) bool {
		return r.CandidateID == candidateID && r.InterviewID == interviewID
	}), nil
}

func (t *Registrations) FindByInterviewID(ctx context.Context, interviewID string, status model.RegistrationStatus) ([]model.Registration, error) {
	defer t.s.lock(ctx)()
	return t.filter(func(r model.Registration) bool {
		return r.InterviewID == interviewID && (status == "" || r.Status == status)
	}), nil
}

func (t *Registrations) FindByStatus(ctx context.Context, status model.RegistrationStatus) ([]model.Registration, error) {
	defer t.s.lock(ctx)()
	return t.filter(func(r model.Registration) bool { return r.Status == status }), nil
}

func (t *Registrations) FindByCandidate(ctx context.Context, candidateID string, status model.RegistrationStatus) ([]model.Registration, error) {
	defer t.s.lock(ctx)()
	return t.filter(func(r model.Registration) bool {
		return r.CandidateID == candidateID && (status == "" || r.Status == status)
	}), nil
}

func (t *Registrations) List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, int, error) {
	defer t.s.lock(ctx)()
	all := t.filter(func(r model.Registration) bool {
		if f.InterviewID != "" && r.InterviewID != f.InterviewID {
			return false
		}
		if f.Status != "" && r.Status != f.Status {
			return false
		}
		if f.InterviewerID != "" {
			if r.SlotID == nil {
				return false
			}
			sl, ok := t.s.state.slots[*r.SlotID]
			if !ok || !sl.HasInterviewer(f.InterviewerID) {
				return false
			}
		}
		return true
	})
	start := min((f.Page-1)*f.PageSize, len(all))
	end := min(start+f.PageSize, len(all))
	return all[start:end], len(all), nil
}

func (t *Registrations) CountActiveBySlot(ctx context.Context, slotID string) (int, error) {
	defer t.s.lock(ctx)()
	n := 0
	for _, reg := range t.s.state.registrations {
		if reg.SlotID != nil && *reg.SlotID == slotID && reg.Status.HoldsSeat() {
			n++
		}
	}
	return n, nil
}

func (t *Registrations) update(ctx context.Context, id string, mutate func(*model.Registration) error) error {
	defer t.s.lock(ctx)()
	reg, ok := t.s.state.registrations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := mutate(&reg); err != nil {
		return err
	}
	reg.UpdatedAt = time.Now().UTC()
	t.s.state.registrations[id] = reg
	return nil
}

func (t *Registrations) UpdateStatus(ctx context.Context, id string, status model.RegistrationStatus) error {
	return t.update(ctx, id, func(r *model.Registration) error {
		if status.HoldsSeat() && !r.Status.HoldsSeat() {
			candidate := *r
			candidate.Status = status
			if t.liveConflict(candidate) {
				return repository.ErrDuplicateActive
			}
		}
		r.Status = status
		return nil
	})
}

func (t *Registrations) UpdateScoreAndFeedback(ctx context.Context, id string, score int, feedback *string) error {
	return t.update(ctx, id, func(r *model.Registration) error {
		r.Score = &score
		r.Feedback = feedback
		return nil
	})
}

func (t *Registrations) SetResultAnnounced(ctx context.Context, id string) error {
	return t.update(ctx, id, func(r *model.Registration) error {
		r.ResultAnnounced = true
		return nil
	})
}

// NotificationLogs is the in-memory notification log table.
type NotificationLogs struct{ s *Store }

func (t *NotificationLogs) Create(ctx context.Context, l *model.NotificationLog) error {
	defer t.s.lock(ctx)()
	t.s.state.logs[l.ID] = *l
	return nil
}

func (t *NotificationLogs) MarkStatus(ctx context.Context, id, status string, at time.Time) error {
	defer t.s.lock(ctx)()
	l, ok := t.s.state.logs[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Status = status
	if status == model.NotificationSent {
		l.SentAt = &at
	}
	t.s.state.logs[id] = l
	return nil
}

func (t *NotificationLogs) ListByUser(ctx context.Context, userID string) ([]model.NotificationLog, error) {
	defer t.s.lock(ctx)()
	var out []model.NotificationLog
	for _, l := range t.s.state.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b model.NotificationLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}
