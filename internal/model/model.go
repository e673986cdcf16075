// Package model defines the core domain types for the event registration system.
package model

import "time"

// EventStatus is the lifecycle state of an event. Only confirmed events
// accept new registrations.
type EventStatus string

const (
	EventStatusConfirmed    EventStatus = "confirmed"
	EventStatusPending      EventStatus = "pending"
	EventStatusNotAccepting EventStatus = "not_accepting"
	EventStatusCancelled    EventStatus = "cancelled"
)

// Valid reports whether s is one of the known event statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusConfirmed, EventStatusPending, EventStatusNotAccepting, EventStatusCancelled:
		return true
	}
	return false
}

// Event represents a capacity-limited event created by an organizer.
// A nil Capacity means the event is unbounded.
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Capacity    *int        `json:"capacity"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Accepting reports whether the event currently accepts new registrations.
func (e *Event) Accepting() bool {
	return e.Status == EventStatusConfirmed
}

// Registration represents a participant's registration for an event.
// Status is the current status record; the full history is append-only
// and lives in the registration store.
type Registration struct {
	ID            string       `json:"id"`
	EventID       string       `json:"event_id"`
	ParticipantID string       `json:"participant_id"`
	RegisteredAt  time.Time    `json:"registered_at"`
	Seq           int64        `json:"-"`
	Status        StatusRecord `json:"status"`
}

// StatusRecord is one entry in a registration's status history. Records are
// immutable once written; a transition appends a new record and moves the
// registration's current-status pointer to it.
type StatusRecord struct {
	ID             string     `json:"id"`
	RegistrationID string     `json:"registration_id"`
	Kind           StatusKind `json:"kind"`
	ChangedAt      time.Time  `json:"changed_at"`
}

// CreateEventRequest is the payload for creating a new event.
// Capacity may be omitted for an unbounded event.
type CreateEventRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Capacity    *int        `json:"capacity"`
	Status      EventStatus `json:"status"`
}

// UpdateEventStatusRequest is the payload for changing an event's lifecycle status.
type UpdateEventStatusRequest struct {
	Status EventStatus `json:"status"`
}

// RegisterRequest is the payload for registering a participant for an event.
type RegisterRequest struct {
	ParticipantID string `json:"participant_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
