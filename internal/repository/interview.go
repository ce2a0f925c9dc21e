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

const interviewColumns = `id, title, description, status, capacity, starts_at, ends_at, created_at, updated_at`

// InterviewRepository handles persistence for interviews.
type InterviewRepository struct {
	db *pgxpool.Pool
}

// NewInterviewRepository constructs an InterviewRepository.
func NewInterviewRepository(db *pgxpool.Pool) *InterviewRepository {
	return &InterviewRepository{db: db}
}

func scanInterview(row pgx.Row) (*model.Interview, error) {
	var iv model.Interview
	err := row.Scan(&iv.ID, &iv.Title, &iv.Description, &iv.Status, &iv.Capacity,
		&iv.StartsAt, &iv.EndsAt, &iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

// Create inserts a new interview.
func (r *InterviewRepository) Create(ctx context.Context, iv *model.Interview) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx,
		`INSERT INTO interviews (`+interviewColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		iv.ID, iv.Title, iv.Description, iv.Status, iv.Capacity,
		iv.StartsAt, iv.EndsAt, iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}
	return nil
}

// GetByID returns a single interview or ErrNotFound.
func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*model.Interview, error) {
	iv, err := scanInterview(database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

// List returns interviews ordered by start time, optionally filtered by status.
func (r *InterviewRepository) List(ctx context.Context, status model.InterviewStatus) ([]model.Interview, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT `+interviewColumns+`
		 FROM interviews
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY starts_at ASC, created_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []model.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		interviews = append(interviews, *iv)
	}
	return interviews, rows.Err()
}

// UpdateStatus overwrites an interview's status.
func (r *InterviewRepository) UpdateStatus(ctx context.Context, id string, status model.InterviewStatus) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE interviews SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update interview status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
