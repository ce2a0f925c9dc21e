package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/interview-registration/internal/database"
	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `id, interview_id, classroom_id, starts_at, ends_at, capacity, booked_count, interviewer_ids, created_at, updated_at`

// SlotRepository handles persistence for interview slots. It never writes
// booked_count after insert; that column belongs to Ledger.
type SlotRepository struct {
	db *pgxpool.Pool
}

// NewSlotRepository constructs a SlotRepository.
func NewSlotRepository(db *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{db: db}
}

func scanSlot(row pgx.Row) (*model.InterviewSlot, error) {
	var s model.InterviewSlot
	err := row.Scan(&s.ID, &s.InterviewID, &s.ClassroomID, &s.StartsAt, &s.EndsAt,
		&s.Capacity, &s.BookedCount, &s.InterviewerIDs, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if s.InterviewerIDs == nil {
		s.InterviewerIDs = []string{}
	}
	return &s, nil
}

// Create inserts a new slot with booked_count = 0.
func (r *SlotRepository) Create(ctx context.Context, s *model.InterviewSlot) error {
	ids := s.InterviewerIDs
	if ids == nil {
		ids = []string{}
	}
	_, err := database.Conn(ctx, r.db).Exec(ctx,
		`INSERT INTO interview_slots (`+slotColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9)`,
		s.ID, s.InterviewID, s.ClassroomID, s.StartsAt, s.EndsAt, s.Capacity,
		ids, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	s.BookedCount = 0
	return nil
}

// GetByID returns a single slot or ErrNotFound.
func (r *SlotRepository) GetByID(ctx context.Context, id string) (*model.InterviewSlot, error) {
	return r.get(ctx, `SELECT `+slotColumns+` FROM interview_slots WHERE id = $1`, id)
}

// GetByIDForUpdate returns a slot and locks its row until the surrounding transaction ends.
func (r *SlotRepository) GetByIDForUpdate(ctx context.Context, id string) (*model.InterviewSlot, error) {
	return r.get(ctx, `SELECT `+slotColumns+` FROM interview_slots WHERE id = $1 FOR UPDATE`, id)
}

func (r *SlotRepository) get(ctx context.Context, query, id string) (*model.InterviewSlot, error) {
	s, err := scanSlot(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return s, nil
}

// ListByInterview returns the slots of an interview in chronological order.
// With availableOnly set, full slots are skipped.
func (r *SlotRepository) ListByInterview(ctx context.Context, interviewID string, availableOnly bool) ([]model.InterviewSlot, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT `+slotColumns+`
		 FROM interview_slots
		 WHERE interview_id = $1 AND (NOT $2 OR booked_count < capacity)
		 ORDER BY starts_at ASC`,
		interviewID, availableOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []model.InterviewSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// UpdateCapacity changes a slot's capacity, refusing values below booked_count.
func (r *SlotRepository) UpdateCapacity(ctx context.Context, id string, capacity int) error {
	q := database.Conn(ctx, r.db)
	tag, err := q.Exec(ctx,
		`UPDATE interview_slots
		 SET capacity = $2, updated_at = now()
		 WHERE id = $1 AND booked_count <= $2`,
		id, capacity,
	)
	if err != nil {
		return fmt.Errorf("update slot capacity: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrCapacityBelowBooked
}

// Delete removes a slot. Callers check for live registrations first.
func (r *SlotRepository) Delete(ctx context.Context, id string) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM interview_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
