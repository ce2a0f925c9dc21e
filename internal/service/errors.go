package service

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so transports can map it without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidTransition
	KindForbidden
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Error is a domain rule violation. Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrInterviewNotFound    = newError(KindNotFound, "Interview not found")
	ErrSlotNotFound         = newError(KindNotFound, "Slot not found")
	ErrRegistrationNotFound = newError(KindNotFound, "Registration not found")

	ErrInterviewNotOpen   = newError(KindConflict, "Interview is not open for registration")
	ErrAlreadyRegistered  = newError(KindConflict, "Already registered for this interview")
	ErrSlotFull           = newError(KindConflict, "Slot is full")
	ErrSlotWrongInterview = newError(KindConflict, "Selected slot does not belong to this interview")
	ErrSlotInUse          = newError(KindConflict, "Slot has active registrations")

	ErrCapacityBelowBooked = newError(KindConflict, "Capacity cannot be lower than the number of booked seats")

	ErrAlreadyCancelled = newError(KindInvalidTransition, "Registration is already cancelled")
	ErrNotScorable      = newError(KindInvalidTransition, "Only confirmed/completed registrations can be scored")
	ErrNotScored        = newError(KindInvalidTransition, "Cannot announce result before scoring")
	ErrAlreadyAnnounced = newError(KindInvalidTransition, "Result already announced")
	ErrCancelledResult  = newError(KindInvalidTransition, "Cannot announce result for a cancelled registration")

	ErrForbiddenCancel = newError(KindForbidden, "Not authorized to cancel this registration")
	ErrForbiddenScore  = newError(KindForbidden, "Not authorized to score this registration")
	ErrForbiddenView   = newError(KindForbidden, "Not authorized to view this registration")
	ErrForbidden       = newError(KindForbidden, "Insufficient permissions")
)
