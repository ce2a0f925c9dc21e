// Package model defines the core domain types for the interview registration system.
package model

import (
	"encoding/json"
	"time"
)

// InterviewStatus is the publication state of an interview.
type InterviewStatus string

const (
	InterviewDraft     InterviewStatus = "draft"
	InterviewPublished InterviewStatus = "published"
	InterviewClosed    InterviewStatus = "closed"
	InterviewCompleted InterviewStatus = "completed"
)

// Valid reports whether s is a known interview status.
func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewDraft, InterviewPublished, InterviewClosed, InterviewCompleted:
		return true
	}
	return false
}

// Interview is a posting candidates register for.
type Interview struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      InterviewStatus `json:"status"`
	Capacity    int             `json:"capacity"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      time.Time       `json:"ends_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InterviewSlot is a bounded-capacity time window within an interview.
type InterviewSlot struct {
	ID             string    `json:"id"`
	InterviewID    string    `json:"interview_id"`
	ClassroomID    *string   `json:"classroom_id,omitempty"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	Capacity       int       `json:"capacity"`
	BookedCount    int       `json:"booked_count"`
	InterviewerIDs []string  `json:"interviewer_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Remaining returns the number of open seats.
func (s *InterviewSlot) Remaining() int {
	return s.Capacity - s.BookedCount
}

// IsFull returns true when no seats remain.
func (s *InterviewSlot) IsFull() bool {
	return s.BookedCount >= s.Capacity
}

// HasInterviewer reports whether userID is assigned to the slot.
func (s *InterviewSlot) HasInterviewer(userID string) bool {
	for _, id := range s.InterviewerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// RegistrationStatus is a state of the registration lifecycle.
type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
	StatusCompleted RegistrationStatus = "completed"
	StatusFailed    RegistrationStatus = "failed"
	StatusNoShow    RegistrationStatus = "no_show"
)

// Valid reports whether s is a known registration status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusFailed, StatusNoShow:
		return true
	}
	return false
}

// HoldsSeat reports whether a registration in this status counts against its slot.
func (s RegistrationStatus) HoldsSeat() bool {
	return s != StatusCancelled
}

// Registration is a candidate's application to an interview, optionally bound to a slot.
type Registration struct {
	ID              string             `json:"id"`
	CandidateID     string             `json:"candidate_id"`
	InterviewID     string             `json:"interview_id"`
	SlotID          *string            `json:"slot_id,omitempty"`
	Status          RegistrationStatus `json:"status"`
	ResumeURL       *string            `json:"resume_url,omitempty"`
	Answers         json.RawMessage    `json:"answers,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	Score           *int               `json:"interview_score,omitempty"`
	Feedback        *string            `json:"interview_feedback,omitempty"`
	ResultAnnounced bool               `json:"result_announced"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// RegistrationDetail is a registration joined with its interview and slot for display.
type RegistrationDetail struct {
	Registration
	Interview *Interview     `json:"interview,omitempty"`
	Slot      *InterviewSlot `json:"slot,omitempty"`
}

// Role is the caller's authorization role.
type Role string

const (
	RoleUser        Role = "user"
	RoleInterviewer Role = "interviewer"
	RoleAdmin       Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleInterviewer, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsStaff reports whether the actor is an admin or an interviewer.
func (a Actor) IsStaff() bool { return a.Role == RoleAdmin || a.Role == RoleInterviewer }

// NotificationLog records one attempt to deliver a notification.
type NotificationLog struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	RegistrationID string     `json:"registration_id"`
	Kind           string     `json:"kind"`
	Content        string     `json:"content"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
}

// Notification log states.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)
