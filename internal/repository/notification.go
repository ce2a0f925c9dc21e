package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/interview-registration/internal/database"
	"github.com/Shivanand-hulikatti/interview-registration/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationLogRepository records notification delivery attempts.
type NotificationLogRepository struct {
	db *pgxpool.Pool
}

// NewNotificationLogRepository constructs a NotificationLogRepository.
func NewNotificationLogRepository(db *pgxpool.Pool) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Create inserts a log row.
func (r *NotificationLogRepository) Create(ctx context.Context, l *model.NotificationLog) error {
	_, err := database.Conn(ctx, r.db).Exec(ctx,
		`INSERT INTO notification_logs (id, user_id, registration_id, kind, content, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.UserID, l.RegistrationID, l.Kind, l.Content, l.Status, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

// MarkStatus moves a log row to sent or failed.
func (r *NotificationLogRepository) MarkStatus(ctx context.Context, id, status string, at time.Time) error {
	var sentAt *time.Time
	if status == model.NotificationSent {
		sentAt = &at
	}
	tag, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE notification_logs SET status = $2, sent_at = $3 WHERE id = $1`,
		id, status, sentAt,
	)
	if err != nil {
		return fmt.Errorf("update notification log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a user's notification history, newest first.
func (r *NotificationLogRepository) ListByUser(ctx context.Context, userID string) ([]model.NotificationLog, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx,
		`SELECT id, user_id, registration_id, kind, content, status, created_at, sent_at
		 FROM notification_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	defer rows.Close()

	var logs []model.NotificationLog
	for rows.Next() {
		var l model.NotificationLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.RegistrationID, &l.Kind, &l.Content,
			&l.Status, &l.CreatedAt, &l.SentAt); err != nil {
			return nil, fmt.Errorf("scan notification log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
