package model

import (
	"encoding/json"
	"time"
)

// CreateInterviewRequest is the payload for creating a new interview.
type CreateInterviewRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

// UpdateInterviewStatusRequest changes an interview's publication state.
type UpdateInterviewStatusRequest struct {
	Status InterviewStatus `json:"status"`
}

// CreateSlotRequest is the payload for adding a slot to an interview.
type CreateSlotRequest struct {
	ClassroomID    *string   `json:"classroom_id,omitempty"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	Capacity       int       `json:"capacity"`
	InterviewerIDs []string  `json:"interviewer_ids"`
}

// UpdateSlotCapacityRequest changes a slot's capacity.
type UpdateSlotCapacityRequest struct {
	Capacity int `json:"capacity"`
}

// RegisterRequest is the payload for registering for an interview.
type RegisterRequest struct {
	InterviewID string          `json:"interview_id"`
	SlotID      *string         `json:"slot_id,omitempty"`
	ResumeURL   *string         `json:"resume_url,omitempty"`
	Answers     json.RawMessage `json:"answers,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

// ChangeStatusRequest is the payload for an admin status override.
type ChangeStatusRequest struct {
	Status RegistrationStatus `json:"status"`
}

// ScoreRequest is the payload for scoring a registration.
type ScoreRequest struct {
	Score    *int    `json:"score"`
	Feedback *string `json:"feedback,omitempty"`
}

// RegistrationFilter narrows registration listings.
type RegistrationFilter struct {
	InterviewID   string
	Status        RegistrationStatus
	InterviewerID string
	Page          int
	PageSize      int
}

// Page is a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// MessageResponse is an acknowledgement body, optionally carrying the affected resource.
type MessageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
