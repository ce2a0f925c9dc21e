// Package repository implements all database queries for the interview registration system.
// It uses pgx directly (no ORM) and joins the caller's transaction when one is bound to
// the context (see database.WithinTx).
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrSlotFull is returned when a conditional reservation modified no row: the slot is
// either at capacity or gone.
var ErrSlotFull = errors.New("slot is fully booked")

// ErrDuplicateActive is returned when a candidate already holds a live registration
// for the interview.
var ErrDuplicateActive = errors.New("candidate already registered for this interview")

// ErrCapacityBelowBooked is returned when a capacity change would drop below the
// number of seats already booked.
var ErrCapacityBelowBooked = errors.New("capacity below booked count")

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
