package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventUserLoggedOut  EventType = "user_logged_out"
	EventAccountDeleted EventType = "account_deleted"
	EventProjectSaved   EventType = "project_saved"
	EventProjectDeleted EventType = "project_deleted"
)

// AllEventTypes lists every type services publish.
var AllEventTypes = []EventType{
	EventUserRegistered,
	EventUserLoggedIn,
	EventUserLoggedOut,
	EventAccountDeleted,
	EventProjectSaved,
	EventProjectDeleted,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current UTC time.
func New(eventType EventType, userID int64, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserPayload accompanies account events.
type UserPayload struct {
	Email string `json:"email"`
}

// ProjectSavedPayload payload.
type ProjectSavedPayload struct {
	ProjectID int64  `json:"project_id"`
	Title     string `json:"title"`
	Created   bool   `json:"created"`
	HTMLSize  int    `json:"html_size"`
}

// ProjectDeletedPayload payload.
type ProjectDeletedPayload struct {
	ProjectID int64 `json:"project_id"`
}
