// Package notify delivers registration notifications outside of any database
// transaction. Publishing never blocks and delivery failures never reach the
// caller that published the event.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Kind names the purpose of a notification.
type Kind string

const (
	KindRegistrationConfirmation Kind = "registration_confirmation"
	KindInterviewResult          Kind = "interview_result"
)

// Event is emitted by the lifecycle service after a successful commit.
type Event struct {
	Kind           Kind
	RegistrationID string
	UserID         string
	InterviewID    string
	InterviewTitle string
	StartsAt       time.Time
	EndsAt         time.Time
	Passed         bool
	Score          *int
	Feedback       *string
}

// Message is a rendered notification handed to a Sender.
type Message struct {
	Kind           Kind
	RegistrationID string
	UserID         string
	Subject        string
	Body           string
}

// Sender is the external email/SMS delivery channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Render turns an event into a deliverable message.
func Render(ev Event) Message {
	msg := Message{Kind: ev.Kind, RegistrationID: ev.RegistrationID, UserID: ev.UserID}
	switch ev.Kind {
	case KindRegistrationConfirmation:
		msg.Subject = "Interview Registration Confirmation"
		msg.Body = fmt.Sprintf(
			"Your registration for %s has been received.\nDate: %s\nTime: %s - %s\nPlease arrive 10 minutes before your scheduled time.",
			ev.InterviewTitle,
			ev.StartsAt.Format("2006-01-02"),
			ev.StartsAt.Format("15:04"),
			ev.EndsAt.Format("15:04"),
		)
	case KindInterviewResult:
		outcome := "failed"
		if ev.Passed {
			outcome = "passed"
		}
		msg.Subject = "Interview Result: " + ev.InterviewTitle
		msg.Body = fmt.Sprintf("Result for %s: %s.", ev.InterviewTitle, outcome)
		if ev.Score != nil {
			msg.Body += fmt.Sprintf("\nScore: %d", *ev.Score)
		}
		if ev.Feedback != nil && *ev.Feedback != "" {
			msg.Body += "\nFeedback: " + *ev.Feedback
		}
	default:
		msg.Subject = string(ev.Kind)
	}
	return msg
}
