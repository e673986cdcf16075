// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. AdmissionService owns the
// accept-or-waitlist engine; EventService covers catalog CRUD around it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/seatcount/admission/internal/model"
	"github.com/seatcount/admission/internal/repository"
)

// EventStore is the catalog persistence consumed by EventService.
type EventStore interface {
	EventCatalog
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	UpdateStatus(ctx context.Context, id string, status model.EventStatus) (*model.Event, error)
}

// EventService orchestrates event catalog operations.
type EventService struct {
	events        EventStore
	registrations RegistrationStore
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, registrations RegistrationStore) *EventService {
	return &EventService{events: events, registrations: registrations}
}

// CreateEvent validates the request and delegates to the store.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalidf("event name is required")
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, invalidf("capacity must be a positive integer")
		}
		if *req.Capacity > 100_000 {
			return nil, invalidf("capacity cannot exceed 100,000")
		}
	}
	if req.Status == "" {
		req.Status = model.EventStatusConfirmed
	}
	if !req.Status.Valid() {
		return nil, invalidf("unknown event status %q", req.Status)
	}
	return s.events.Create(ctx, req)
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, invalidf("event id is required")
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// UpdateEventStatus moves an event to a new lifecycle status.
func (s *EventService) UpdateEventStatus(ctx context.Context, id string, status model.EventStatus) (*model.Event, error) {
	if id == "" {
		return nil, invalidf("event id is required")
	}
	if !status.Valid() {
		return nil, invalidf("unknown event status %q", status)
	}
	event, err := s.events.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("update event status: %w", err)
	}
	return event, nil
}

// ListRegistrations returns all registrations for an event.
func (s *EventService) ListRegistrations(ctx context.Context, eventID string) ([]model.Registration, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return s.registrations.ListByEvent(ctx, eventID)
}
