package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/interview-registration/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger is the only writer of interview_slots.booked_count.
//
// Reserve is a single conditional UPDATE rather than SELECT-then-UPDATE. Two
// transactions racing for the last seat both try to update the same row;
// PostgreSQL makes the second wait on the row lock and then re-evaluates
// "booked_count < capacity" against the committed value, so at most one of
// them modifies the row. The answer comes from RowsAffected, never from an
// earlier read.
type Ledger struct {
	db *pgxpool.Pool
}

// NewLedger constructs a Ledger.
func NewLedger(db *pgxpool.Pool) *Ledger {
	return &Ledger{db: db}
}

// Reserve takes one seat. It returns ErrSlotFull when no row was modified,
// which covers both a full slot and a missing one.
func (l *Ledger) Reserve(ctx context.Context, slotID string) error {
	tag, err := database.Conn(ctx, l.db).Exec(ctx,
		`UPDATE interview_slots
		 SET booked_count = booked_count + 1, updated_at = now()
		 WHERE id = $1 AND booked_count < capacity`,
		slotID,
	)
	if err != nil {
		return fmt.Errorf("reserve seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotFull
	}
	return nil
}

// Release gives one seat back, never going below zero.
func (l *Ledger) Release(ctx context.Context, slotID string) error {
	tag, err := database.Conn(ctx, l.db).Exec(ctx,
		`UPDATE interview_slots
		 SET booked_count = GREATEST(booked_count - 1, 0), updated_at = now()
		 WHERE id = $1`,
		slotID,
	)
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
