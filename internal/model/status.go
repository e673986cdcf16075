package model

// StatusKind is the lifecycle state of a single registration.
type StatusKind string

const (
	// StatusPending means the registration is on the waitlist.
	StatusPending StatusKind = "pending"
	// StatusAccepted means the registration holds one of the event's slots.
	StatusAccepted StatusKind = "accepted"
	// StatusCancelled is terminal; no transition leads out of it.
	StatusCancelled StatusKind = "cancelled"
)

// ActiveKinds are the statuses that count as an active registration for the
// one-active-registration-per-participant rule.
var ActiveKinds = []StatusKind{StatusPending, StatusAccepted}

// Valid reports whether k is one of the known status kinds.
func (k StatusKind) Valid() bool {
	switch k {
	case StatusPending, StatusAccepted, StatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether a registration in this status occupies the
// participant's single active slot for an event.
func (k StatusKind) IsActive() bool {
	return k == StatusPending || k == StatusAccepted
}

// IsTerminal reports whether the status admits no further transitions.
func (k StatusKind) IsTerminal() bool {
	return k == StatusCancelled
}

// CanTransition reports whether a registration may move from one status kind
// to another. Legal moves: pending→accepted (promotion), pending→cancelled,
// accepted→cancelled.
func CanTransition(from, to StatusKind) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusCancelled
	case StatusAccepted:
		return to == StatusCancelled
	default:
		return false
	}
}
