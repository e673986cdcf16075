package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatcount/admission/internal/lock"
	"github.com/seatcount/admission/internal/model"
	"github.com/seatcount/admission/internal/repository"
)

// EventCatalog supplies event identity, capacity, and lifecycle status.
type EventCatalog interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	ListByStatus(ctx context.Context, status model.EventStatus) ([]model.Event, error)
}

// RegistrationStore provides durable storage and lookup of registrations and
// their status records. Save must write the registration and its new status
// record atomically and leave reg.Status referencing the new record.
// OldestPending and ActiveByParticipant return nil (and no error) when
// nothing matches.
type RegistrationStore interface {
	FindByID(ctx context.Context, id string) (*model.Registration, error)
	Save(ctx context.Context, reg *model.Registration, status *model.StatusRecord) error
	AcceptedCount(ctx context.Context, eventID string) (int, error)
	OldestPending(ctx context.Context, eventID string) (*model.Registration, error)
	ActiveByParticipant(ctx context.Context, participantID, eventID string) (*model.Registration, error)
	ListPending(ctx context.Context, eventID string) ([]model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// CounterCache is the optional fast free-slot counter. It is an optimization
// hint only; the lock-guarded store count decides every acceptance.
type CounterCache interface {
	TryReserve(ctx context.Context, eventID string) (bool, error)
	Initialize(ctx context.Context, eventID string, count int, ttl time.Duration) error
}

// AdmissionService decides, under concurrent load, whether a registration
// request is accepted or waitlisted, and promotes waitlisted registrations
// when a slot frees up. All decisions for one event are serialized by a
// per-event lock; decisions for distinct events proceed independently.
type AdmissionService struct {
	catalog EventCatalog
	store   RegistrationStore
	counter CounterCache // nil when no cache is configured
	locks   *lock.Keyed
	log     *zap.Logger

	newID func() string
	now   func() time.Time
}

// NewAdmissionService constructs an AdmissionService. counter may be nil.
func NewAdmissionService(
	catalog EventCatalog,
	store RegistrationStore,
	counter CounterCache,
	locks *lock.Keyed,
	logger *zap.Logger,
) *AdmissionService {
	return &AdmissionService{
		catalog: catalog,
		store:   store,
		counter: counter,
		locks:   locks,
		log:     logger,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Register admits a participant to an event: accepted while capacity remains,
// waitlisted otherwise. Exactly one of the two outcomes is persisted, or an
// error is returned.
func (s *AdmissionService) Register(ctx context.Context, participantID, eventID string) (*model.Registration, error) {
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return nil, invalidf("participant_id is required")
	}
	if eventID == "" {
		return nil, invalidf("event id is required")
	}

	ev, err := s.catalog.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !ev.Accepting() {
		return nil, &NotAcceptingError{Status: ev.Status}
	}

	// Cheap duplicate rejection before taking the lock. The authoritative
	// check runs again inside the locked section.
	active, err := s.store.ActiveByParticipant(ctx, participantID, eventID)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if active != nil {
		return nil, ErrDuplicateRegistration
	}

	// Fast path: an exhausted slot counter proves the event full, so the
	// locked section can skip the accepted-count query and waitlist directly.
	// The counter never decides an acceptance.
	fastFull := false
	if s.counter != nil && ev.Capacity != nil {
		ok, rerr := s.counter.TryReserve(ctx, eventID)
		switch {
		case rerr != nil:
			s.log.Warn("counter cache unavailable, falling back to store count",
				zap.String("event_id", eventID), zap.Error(rerr))
		case !ok:
			fastFull = true
		}
	}

	var reg *model.Registration
	err = s.locks.WithLock(ctx, eventID, func() error {
		active, err := s.store.ActiveByParticipant(ctx, participantID, eventID)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if active != nil {
			return ErrDuplicateRegistration
		}

		kind := model.StatusPending
		if !fastFull {
			available, err := s.availableSlots(ctx, ev)
			switch {
			case errors.Is(err, ErrCapacityUnknown):
				available = 1 // unbounded events always have room
			case err != nil:
				return err
			}
			if available > 0 {
				kind = model.StatusAccepted
			}
		}

		now := s.now().UTC()
		reg = &model.Registration{
			ID:            s.newID(),
			EventID:       eventID,
			ParticipantID: participantID,
			RegisteredAt:  now,
		}
		status := &model.StatusRecord{
			ID:             s.newID(),
			RegistrationID: reg.ID,
			Kind:           kind,
			ChangedAt:      now,
		}
		if err := s.store.Save(ctx, reg, status); err != nil {
			return fmt.Errorf("save registration: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrWaitTimeout) {
			return nil, ErrAdmissionTimeout
		}
		return nil, err
	}

	s.log.Debug("admission decision",
		zap.String("event_id", eventID),
		zap.String("registration_id", reg.ID),
		zap.String("status", string(reg.Status.Kind)))
	return reg, nil
}

// Cancel transitions a registration to its terminal cancelled status and
// promotes the oldest waitlisted registration for the same event if the
// cancellation freed a slot. Cancelling an already-cancelled registration
// returns ErrAlreadyCancelled.
func (s *AdmissionService) Cancel(ctx context.Context, registrationID string) (*model.Registration, error) {
	if registrationID == "" {
		return nil, invalidf("registration id is required")
	}

	reg, err := s.store.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.Status.Kind == model.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	ev, err := s.catalog.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	// The cancellation write and the promotion share one locked section, so
	// a concurrent registration can never slip into the freed slot between
	// the two.
	err = s.locks.WithLock(ctx, reg.EventID, func() error {
		cur, err := s.store.FindByID(ctx, registrationID)
		if err != nil {
			return fmt.Errorf("get registration: %w", err)
		}
		if !model.CanTransition(cur.Status.Kind, model.StatusCancelled) {
			return ErrAlreadyCancelled
		}

		status := &model.StatusRecord{
			ID:             s.newID(),
			RegistrationID: cur.ID,
			Kind:           model.StatusCancelled,
			ChangedAt:      s.now().UTC(),
		}
		if err := s.store.Save(ctx, cur, status); err != nil {
			return fmt.Errorf("save cancellation: %w", err)
		}
		reg = cur
		return s.promoteNext(ctx, ev)
	})
	if err != nil {
		if errors.Is(err, lock.ErrWaitTimeout) {
			return nil, ErrAdmissionTimeout
		}
		return nil, err
	}

	s.log.Debug("registration cancelled",
		zap.String("event_id", reg.EventID),
		zap.String("registration_id", reg.ID))
	return reg, nil
}

// promoteNext accepts the oldest pending registration for the event, if any
// slot is free. It is a no-op on an empty waitlist and is idempotent: a
// second call with no freed slot changes nothing. The caller must hold the
// event's admission lock.
func (s *AdmissionService) promoteNext(ctx context.Context, ev *model.Event) error {
	next, err := s.store.OldestPending(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("find oldest pending: %w", err)
	}
	if next == nil {
		return nil
	}

	// Cancelling a pending registration frees no slot; only promote into
	// real capacity.
	available, err := s.availableSlots(ctx, ev)
	switch {
	case errors.Is(err, ErrCapacityUnknown):
		// unbounded, always room
	case err != nil:
		return err
	case available <= 0:
		return nil
	}

	status := &model.StatusRecord{
		ID:             s.newID(),
		RegistrationID: next.ID,
		Kind:           model.StatusAccepted,
		ChangedAt:      s.now().UTC(),
	}
	if err := s.store.Save(ctx, next, status); err != nil {
		return fmt.Errorf("save promotion: %w", err)
	}

	s.log.Debug("promoted from waitlist",
		zap.String("event_id", ev.ID),
		zap.String("registration_id", next.ID))
	return nil
}

// Waitlist returns the event's pending registrations in promotion order.
func (s *AdmissionService) Waitlist(ctx context.Context, eventID string) ([]model.Registration, error) {
	if eventID == "" {
		return nil, invalidf("event id is required")
	}
	if _, err := s.catalog.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return s.store.ListPending(ctx, eventID)
}

// GetRegistration returns a registration by id.
func (s *AdmissionService) GetRegistration(ctx context.Context, registrationID string) (*model.Registration, error) {
	if registrationID == "" {
		return nil, invalidf("registration id is required")
	}
	reg, err := s.store.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// availableSlots computes how many accepted slots remain for the event from
// the authoritative accepted count. Decision-grade only when called under the
// event's admission lock. Returns ErrCapacityUnknown for unbounded events.
func (s *AdmissionService) availableSlots(ctx context.Context, ev *model.Event) (int, error) {
	if ev.Capacity == nil {
		return 0, ErrCapacityUnknown
	}
	accepted, err := s.store.AcceptedCount(ctx, ev.ID)
	if err != nil {
		return 0, fmt.Errorf("count accepted registrations: %w", err)
	}
	return *ev.Capacity - accepted, nil
}

// WarmCounterCache seeds the fast slot counters from the store for events
// that may still receive registrations. A no-op when no cache is configured;
// per-event failures are logged and skipped, since the counter only feeds an
// optimization.
func (s *AdmissionService) WarmCounterCache(ctx context.Context, ttl time.Duration) error {
	if s.counter == nil {
		return nil
	}

	for _, status := range []model.EventStatus{model.EventStatusConfirmed, model.EventStatusPending} {
		events, err := s.catalog.ListByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("list %s events: %w", status, err)
		}
		for _, ev := range events {
			if ev.Capacity == nil {
				continue
			}
			available, err := s.availableSlots(ctx, &ev)
			if err == nil && available < 0 {
				available = 0
			}
			if err == nil {
				err = s.counter.Initialize(ctx, ev.ID, available, ttl)
			}
			if err != nil {
				s.log.Warn("counter warm-up failed",
					zap.String("event_id", ev.ID), zap.Error(err))
			}
		}
	}
	return nil
}
