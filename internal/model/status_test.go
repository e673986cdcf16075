package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from StatusKind
		to   StatusKind
		want bool
	}{
		{"pending to accepted", StatusPending, StatusAccepted, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"accepted to cancelled", StatusAccepted, StatusCancelled, true},
		{"accepted to pending", StatusAccepted, StatusPending, false},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
		{"cancelled to accepted", StatusCancelled, StatusAccepted, false},
		{"self transition pending", StatusPending, StatusPending, false},
		{"self transition cancelled", StatusCancelled, StatusCancelled, false},
		{"unknown from", StatusKind("rejected"), StatusAccepted, false},
		{"unknown to", StatusPending, StatusKind("rejected"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

// TestCancelledIsTerminal is a property-based check that no sequence of legal
// transitions ever leaves the cancelled state.
func TestCancelledIsTerminal(t *testing.T) {
	kinds := []StatusKind{StatusPending, StatusAccepted, StatusCancelled}
	rapid.Check(t, func(rt *rapid.T) {
		state := StatusPending
		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			next := rapid.SampledFrom(kinds).Draw(rt, "next")
			if !CanTransition(state, next) {
				continue
			}
			require.False(t, state.IsTerminal(), "transitioned out of a terminal state")
			state = next
		}
	})
}

func TestStatusKindHelpers(t *testing.T) {
	assert.True(t, StatusPending.IsActive())
	assert.True(t, StatusAccepted.IsActive())
	assert.False(t, StatusCancelled.IsActive())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusKind("bogus").Valid())
}

func TestEventAccepting(t *testing.T) {
	ev := &Event{Status: EventStatusConfirmed}
	assert.True(t, ev.Accepting())
	for _, s := range []EventStatus{EventStatusPending, EventStatusNotAccepting, EventStatusCancelled} {
		ev.Status = s
		assert.False(t, ev.Accepting(), "status %s must not accept registrations", s)
	}
}
