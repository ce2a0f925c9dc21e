// Package memory is a single-process implementation of the repository
// contracts. A transaction holds the store lock for its whole duration and
// restores a snapshot when it fails, so no partial state is ever observable.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
)

type state struct {
	interviews    map[string]model.Interview
	slots         map[string]model.InterviewSlot
	registrations map[string]model.Registration
	regSeq        map[string]int64
	logs          map[string]model.NotificationLog
	seq           int64
}

func (s *state) clone() *state {
	return &state{
		interviews:    maps.Clone(s.interviews),
		slots:         maps.Clone(s.slots),
		registrations: maps.Clone(s.registrations),
		regSeq:        maps.Clone(s.regSeq),
		logs:          maps.Clone(s.logs),
		seq:           s.seq,
	}
}

// Store holds every table in memory behind one lock.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: &state{
		interviews:    make(map[string]model.Interview),
		slots:         make(map[string]model.InterviewSlot),
		registrations: make(map[string]model.Registration),
		regSeq:        make(map[string]int64),
		logs:          make(map[string]model.NotificationLog),
	}}
}

type txMarker struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txMarker{}).(*Store)
	return ok && owner == s
}

// lock acquires the store lock unless ctx already runs inside one of its transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx runs fn with exclusive access to the store. When fn returns an
// error or panics, every change it made is discarded.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	committed := false
	defer func() {
		if !committed {
			s.state = snapshot
		}
	}()

	if err := fn(context.WithValue(ctx, txMarker{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// Interviews returns the interview table.
func (s *Store) Interviews() *Interviews { return &Interviews{s: s} }

// Slots returns the slot table.
func (s *Store) Slots() *Slots { return &Slots{s: s} }

// Ledger returns the booked_count writer.
func (s *Store) Ledger() *Ledger { return &Ledger{s: s} }

// Registrations returns the registration table.
func (s *Store) Registrations() *Registrations { return &Registrations{s: s} }

// NotificationLogs returns the notification log table.
func (s *Store) NotificationLogs() *NotificationLogs { return &NotificationLogs{s: s} }

func cloneSlot(sl model.InterviewSlot) *model.InterviewSlot {
	sl.InterviewerIDs = slices.Clone(sl.InterviewerIDs)
	if sl.InterviewerIDs == nil {
		sl.InterviewerIDs = []string{}
	}
	return &sl
}

func cloneRegistration(r model.Registration) model.Registration {
	r.Answers = slices.Clone(r.Answers)
	return r
}
