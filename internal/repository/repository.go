// Package repository implements all database queries for the event
// registration system. It uses pgx directly (no ORM) for transparency and
// performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatcount/admission/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		Status:      req.Status,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, description, capacity, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.Name, event.Description, event.Capacity, event.Status, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, capacity, status, created_at
		 FROM events
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByStatus returns all events in the given lifecycle status.
func (r *EventRepository) ListByStatus(ctx context.Context, status model.EventStatus) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, capacity, status, created_at
		 FROM events
		 WHERE status = $1
		 ORDER BY created_at DESC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by status: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Capacity, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, capacity, status, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Description, &e.Capacity, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// UpdateStatus moves an event to a new lifecycle status and returns the
// updated record, or ErrNotFound.
func (r *EventRepository) UpdateStatus(ctx context.Context, id string, status model.EventStatus) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`UPDATE events SET status = $2 WHERE id = $1
		 RETURNING id, name, description, capacity, status, created_at`,
		id, status,
	).Scan(&e.ID, &e.Name, &e.Description, &e.Capacity, &e.Status, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update event status: %w", err)
	}
	return &e, nil
}

// RegistrationRepository handles persistence for registrations and their
// append-only status history.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// regColumns selects a registration joined with its current status record.
const regColumns = `
	r.id, r.event_id, r.participant_id, r.registered_at, r.seq,
	s.id, s.registration_id, s.kind, s.changed_at`

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.ParticipantID, &reg.RegisteredAt, &reg.Seq,
		&reg.Status.ID, &reg.Status.RegistrationID, &reg.Status.Kind, &reg.Status.ChangedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// FindByID returns a single registration with its current status, or
// ErrNotFound.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+regColumns+`
		 FROM registrations r
		 JOIN registration_statuses s ON s.id = r.current_status_id
		 WHERE r.id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// Save durably writes a registration together with a new status record and
// moves the registration's current-status pointer to it, all in one
// transaction. Status records are never updated or deleted, so the history
// stays append-only. On return reg.Seq and reg.Status reflect the stored row.
func (r *RegistrationRepository) Save(ctx context.Context, reg *model.Registration, status *model.StatusRecord) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Insert the registration if it is new. The seq column is assigned by
	// the database and fixes the tie-break order for equal timestamps.
	err = tx.QueryRow(ctx,
		`INSERT INTO registrations (id, event_id, participant_id, registered_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		 RETURNING seq`,
		reg.ID, reg.EventID, reg.ParticipantID, reg.RegisteredAt,
	).Scan(&reg.Seq)
	if err != nil {
		return fmt.Errorf("upsert registration: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registration_statuses (id, registration_id, kind, changed_at)
		 VALUES ($1, $2, $3, $4)`,
		status.ID, status.RegistrationID, status.Kind, status.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status record: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE registrations SET current_status_id = $2 WHERE id = $1`,
		reg.ID, status.ID,
	)
	if err != nil {
		return fmt.Errorf("update current status: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	reg.Status = *status
	return nil
}

// AcceptedCount returns the authoritative number of registrations currently
// accepted for an event. Callers that need a decision-grade answer must hold
// the event's admission lock.
func (r *RegistrationRepository) AcceptedCount(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM registrations r
		 JOIN registration_statuses s ON s.id = r.current_status_id
		 WHERE r.event_id = $1 AND s.kind = $2`,
		eventID, model.StatusAccepted,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count accepted registrations: %w", err)
	}
	return count, nil
}

// OldestPending returns the head of the event's waitlist, ordered by
// registration time with insertion order breaking ties, or nil when the
// waitlist is empty.
func (r *RegistrationRepository) OldestPending(ctx context.Context, eventID string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+regColumns+`
		 FROM registrations r
		 JOIN registration_statuses s ON s.id = r.current_status_id
		 WHERE r.event_id = $1 AND s.kind = $2
		 ORDER BY r.registered_at ASC, r.seq ASC
		 LIMIT 1`,
		eventID, model.StatusPending,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find oldest pending: %w", err)
	}
	return reg, nil
}

// ActiveByParticipant returns the participant's active (pending or accepted)
// registration for the event, or nil when they have none.
func (r *RegistrationRepository) ActiveByParticipant(ctx context.Context, participantID, eventID string) (*model.Registration, error) {
	active := make([]string, len(model.ActiveKinds))
	for i, k := range model.ActiveKinds {
		active[i] = string(k)
	}
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+regColumns+`
		 FROM registrations r
		 JOIN registration_statuses s ON s.id = r.current_status_id
		 WHERE r.event_id = $1 AND r.participant_id = $2 AND s.kind = ANY($3)
		 LIMIT 1`,
		eventID, participantID, active,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active registration: %w", err)
	}
	return reg, nil
}

// ListPending returns the event's waitlist in promotion order.
func (r *RegistrationRepository) ListPending(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+regColumns+`
		 FROM registrations r
		 JOIN registration_statuses s ON s.id = r.current_status_id
		 WHERE r.event_id = $1 AND s.kind = $2
		 ORDER BY r.registered_at ASC, r.seq ASC`,
		eventID, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending registrations: %w", err)
	}
	defer rows.Close()

	return collectRegistrations(rows)
}

// ListByEvent returns all registrations for a given event, oldest first.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+regColumns+`
		 FROM registrations r
		 JOIN registration_statuses s ON s.id = r.current_status_id
		 WHERE r.event_id = $1
		 ORDER BY r.registered_at ASC, r.seq ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	return collectRegistrations(rows)
}

func collectRegistrations(rows pgx.Rows) ([]model.Registration, error) {
	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}
