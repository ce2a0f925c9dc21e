package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/interview-registration/internal/database"
	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const registrationColumns = `r.id, r.user_id, r.interview_id, r.slot_id, r.status, r.resume_url, r.answers,
	r.notes, r.interview_score, r.interview_feedback, r.result_announced, r.created_at, r.updated_at`

// RegistrationRepository handles persistence for registrations. It does not
// enforce the status state machine; that belongs to the lifecycle service.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var (
		reg     model.Registration
		answers []byte
	)
	err := row.Scan(&reg.ID, &reg.CandidateID, &reg.InterviewID, &reg.SlotID, &reg.Status,
		&reg.ResumeURL, &answers, &reg.Notes, &reg.Score, &reg.Feedback,
		&reg.ResultAnnounced, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		reg.Answers = answers
	}
	return &reg, nil
}

func collectRegistrations(rows pgx.Rows) ([]model.Registration, error) {
	defer rows.Close()
	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// Create inserts a new registration row. A live duplicate for the same
// (candidate, interview) pair is reported as ErrDuplicateActive.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx,
		`INSERT INTO registrations (id, user_id, interview_id, slot_id, status, resume_url,
		                            answers, notes, result_announced, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $10)`,
		reg.ID, reg.CandidateID, reg.InterviewID, reg.SlotID, reg.Status, reg.ResumeURL,
		nullableJSON(reg.Answers), reg.Notes, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActive
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// FindByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	return r.findOne(ctx, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, id)
}

// FindByIDForUpdate returns a registration and locks its row until the
// surrounding transaction ends.
func (r *RegistrationRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Registration, error) {
	return r.findOne(ctx, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1 FOR UPDATE`, id)
}

func (r *RegistrationRepository) findOne(ctx context.Context, query, id string) (*model.Registration, error) {
	reg, err := scanRegistration(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// FindByCandidateAndInterview returns every registration of a candidate for an
// interview, cancelled ones included, newest first.
func (r *RegistrationRepository) FindByCandidateAndInterview(ctx context.Context, candidateID, interviewID string) ([]model.Registration, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations r
		 WHERE r.user_id = $1 AND r.interview_id = $2
		 ORDER BY r.created_at DESC`,
		candidateID, interviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("find registrations by candidate: %w", err)
	}
	return collectRegistrations(rows)
}

// FindByInterviewID returns the registrations of an interview, newest first.
// An empty status matches every status.
func (r *RegistrationRepository) FindByInterviewID(ctx context.Context, interviewID string, status model.RegistrationStatus) ([]model.Registration, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations r
		 WHERE r.interview_id = $1 AND ($2 = '' OR r.status = $2)
		 ORDER BY r.created_at DESC`,
		interviewID, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("find registrations by interview: %w", err)
	}
	return collectRegistrations(rows)
}

// FindByStatus returns every registration in the given status, newest first.
func (r *RegistrationRepository) FindByStatus(ctx context.Context, status model.RegistrationStatus) ([]model.Registration, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations r
		 WHERE r.status = $1
		 ORDER BY r.created_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("find registrations by status: %w", err)
	}
	return collectRegistrations(rows)
}

// FindByCandidate returns a candidate's registrations, newest first.
// An empty status matches every status.
func (r *RegistrationRepository) FindByCandidate(ctx context.Context, candidateID string, status model.RegistrationStatus) ([]model.Registration, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations r
		 WHERE r.user_id = $1 AND ($2 = '' OR r.status = $2)
		 ORDER BY r.created_at DESC`,
		candidateID, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("find registrations by candidate: %w", err)
	}
	return collectRegistrations(rows)
}

// List returns one page of registrations matching the filter plus the total
// number of matches. The filter's Page and PageSize must already be normalised.
func (r *RegistrationRepository) List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, int, error) {
	var (
		conds []string
		args  []any
		from  = `registrations r`
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.InterviewID != "" {
		conds = append(conds, "r.interview_id = "+arg(f.InterviewID))
	}
	if f.Status != "" {
		conds = append(conds, "r.status = "+arg(string(f.Status)))
	}
	if f.InterviewerID != "" {
		from = `registrations r JOIN interview_slots s ON s.id = r.slot_id`
		conds = append(conds, arg(f.InterviewerID)+" = ANY(s.interviewer_ids)")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	q := database.Conn(ctx, r.db)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM `+from+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	limit := arg(f.PageSize)
	offset := arg((f.Page - 1) * f.PageSize)
	rows, err := q.Query(ctx,
		`SELECT `+registrationColumns+` FROM `+from+where+
			` ORDER BY r.created_at DESC LIMIT `+limit+` OFFSET `+offset,
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	regs, err := collectRegistrations(rows)
	if err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// CountActiveBySlot returns the number of non-cancelled registrations holding a seat in the slot.
func (r *RegistrationRepository) CountActiveBySlot(ctx context.Context, slotID string) (int, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE slot_id = $1 AND status <> 'cancelled'`,
		slotID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count slot registrations: %w", err)
	}
	return n, nil
}

// UpdateStatus overwrites a registration's status.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status model.RegistrationStatus) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE registrations SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActive
		}
		return fmt.Errorf("update registration status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScoreAndFeedback stores an interview score and optional feedback.
func (r *RegistrationRepository) UpdateScoreAndFeedback(ctx context.Context, id string, score int, feedback *string) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE registrations
		 SET interview_score = $2, interview_feedback = $3, updated_at = now()
		 WHERE id = $1`,
		id, score, feedback,
	)
	if err != nil {
		return fmt.Errorf("update registration score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResultAnnounced flags the registration's result as announced.
func (r *RegistrationRepository) SetResultAnnounced(ctx context.Context, id string) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE registrations SET result_announced = true, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("set result announced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
