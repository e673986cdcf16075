package service

import (
	"errors"
	"fmt"

	"github.com/seatcount/admission/internal/model"
)

// ErrEventNotFound is returned when the target event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrRegistrationNotFound is returned when the target registration does not exist.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrDuplicateRegistration is returned when a participant already holds an
// active (pending or accepted) registration for the event.
var ErrDuplicateRegistration = errors.New("participant already has an active registration for this event")

// ErrAlreadyCancelled is returned when cancelling a registration that is
// already in its terminal state.
var ErrAlreadyCancelled = errors.New("registration is already cancelled")

// ErrAdmissionTimeout is returned when the per-event lock could not be
// acquired in time. The request was not admitted and may be retried.
var ErrAdmissionTimeout = errors.New("admission timed out, retry")

// ErrCapacityUnknown is returned by the capacity evaluator for events without
// a capacity bound. Unbounded events always have room.
var ErrCapacityUnknown = errors.New("event has no capacity bound")

// NotAcceptingError is returned when registering for an event that is not in
// the confirmed lifecycle status. It carries the actual status for diagnostics.
type NotAcceptingError struct {
	Status model.EventStatus
}

func (e *NotAcceptingError) Error() string {
	return fmt.Sprintf("event is not accepting registrations (status %s)", e.Status)
}

// ValidationError reports a malformed or incomplete request. It marks caller
// mistakes so the transport layer can keep them apart from failures completing
// a valid request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
