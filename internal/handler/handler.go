// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seatcount/admission/internal/model"
	"github.com/seatcount/admission/internal/service"
)

// EventHandler holds all HTTP handlers for the registration API.
type EventHandler struct {
	events    *service.EventService
	admission *service.AdmissionService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *service.EventService, admission *service.AdmissionService) *EventHandler {
	return &EventHandler{events: events, admission: admission}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// ─── Event catalog handlers ───────────────────────────────────────────────────

// CreateEvent handles POST /events
// Creates a new event with the given name, description, capacity, and status.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Returns a JSON array of all events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
// Returns a single event by its UUID.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	event, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEventStatus handles PATCH /events/{id}/status
// Moves an event to a new lifecycle status.
func (h *EventHandler) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.UpdateEventStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.UpdateEventStatus(r.Context(), id, req.Status)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update event status")
		}
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// ListRegistrations handles GET /events/{id}/registrations
// Returns all registrations for a given event.
func (h *EventHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	regs, err := h.events.ListRegistrations(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}

// ─── Admission handlers ───────────────────────────────────────────────────────

// Register handles POST /events/{id}/register
// Admits a participant: accepted while capacity remains, waitlisted otherwise.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.admission.Register(r.Context(), req.ParticipantID, id)
	if err != nil {
		var (
			notAccepting *service.NotAcceptingError
			verr         *service.ValidationError
		)
		switch {
		case errors.Is(err, service.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "event not found")
		case errors.As(err, &notAccepting):
			writeError(w, http.StatusConflict, notAccepting.Error())
		case errors.Is(err, service.ErrDuplicateRegistration):
			writeError(w, http.StatusConflict, "you already have an active registration for this event")
		case errors.Is(err, service.ErrAdmissionTimeout):
			writeError(w, http.StatusServiceUnavailable, "admission timed out, please retry")
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to register")
		}
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// Cancel handles POST /registrations/{id}/cancel
// Cancels a registration and promotes the oldest waitlisted one, if any.
func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reg, err := h.admission.Cancel(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRegistrationNotFound):
			writeError(w, http.StatusNotFound, "registration not found")
		case errors.Is(err, service.ErrAlreadyCancelled):
			writeError(w, http.StatusConflict, "registration is already cancelled")
		case errors.Is(err, service.ErrAdmissionTimeout):
			writeError(w, http.StatusServiceUnavailable, "cancellation timed out, please retry")
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel registration")
		}
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// GetRegistration handles GET /registrations/{id}
func (h *EventHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	reg, err := h.admission.GetRegistration(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRegistrationNotFound) {
			writeError(w, http.StatusNotFound, "registration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get registration")
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// GetWaitlist handles GET /events/{id}/waitlist
// Returns the event's pending registrations in promotion order.
func (h *EventHandler) GetWaitlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	regs, err := h.admission.Waitlist(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get waitlist")
		return
	}

	if regs == nil {
		regs = []model.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
