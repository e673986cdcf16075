package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/seatcount/admission/internal/model"
	"github.com/seatcount/admission/internal/repository"
)

// memCatalog is an in-memory EventStore for tests.
type memCatalog struct {
	mu     sync.RWMutex
	events map[string]model.Event
}

func newMemCatalog() *memCatalog {
	return &memCatalog{events: make(map[string]model.Event)}
}

func (c *memCatalog) put(ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[ev.ID] = ev
}

func (c *memCatalog) GetByID(_ context.Context, id string) (*model.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ev, nil
}

func (c *memCatalog) ListByStatus(_ context.Context, status model.EventStatus) ([]model.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Event
	for _, ev := range c.events {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (c *memCatalog) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	ev := model.Event{
		ID:          "event-" + req.Name,
		Name:        req.Name,
		Description: req.Description,
		Capacity:    req.Capacity,
		Status:      req.Status,
		CreatedAt:   time.Now().UTC(),
	}
	c.put(ev)
	return &ev, nil
}

func (c *memCatalog) List(_ context.Context) ([]model.Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	return out, nil
}

func (c *memCatalog) UpdateStatus(_ context.Context, id string, status model.EventStatus) (*model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev, ok := c.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ev.Status = status
	c.events[id] = ev
	return &ev, nil
}

// memStore is an in-memory RegistrationStore for tests. Save is atomic under
// the store mutex, matching the durability contract the engine relies on.
type memStore struct {
	mu      sync.Mutex
	regs    map[string]*model.Registration
	order   []string
	history map[string][]model.StatusRecord
	seq     int64
	saveErr error // injectable failure
}

func newMemStore() *memStore {
	return &memStore{
		regs:    make(map[string]*model.Registration),
		history: make(map[string][]model.StatusRecord),
	}
}

func (s *memStore) FindByID(_ context.Context, id string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *memStore) Save(_ context.Context, reg *model.Registration, status *model.StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	stored, ok := s.regs[reg.ID]
	if !ok {
		s.seq++
		reg.Seq = s.seq
		cp := *reg
		stored = &cp
		s.regs[reg.ID] = stored
		s.order = append(s.order, reg.ID)
	}
	s.history[reg.ID] = append(s.history[reg.ID], *status)
	stored.Status = *status
	reg.Status = *status
	return nil
}

func (s *memStore) AcceptedCount(_ context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, reg := range s.regs {
		if reg.EventID == eventID && reg.Status.Kind == model.StatusAccepted {
			count++
		}
	}
	return count, nil
}

func (s *memStore) OldestPending(_ context.Context, eventID string) (*model.Registration, error) {
	pending := s.pendingSorted(eventID)
	if len(pending) == 0 {
		return nil, nil
	}
	return &pending[0], nil
}

func (s *memStore) ActiveByParticipant(_ context.Context, participantID, eventID string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.regs {
		if reg.EventID == eventID && reg.ParticipantID == participantID && reg.Status.Kind.IsActive() {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListPending(_ context.Context, eventID string) ([]model.Registration, error) {
	return s.pendingSorted(eventID), nil
}

func (s *memStore) ListByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Registration
	for _, id := range s.order {
		if reg := s.regs[id]; reg.EventID == eventID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (s *memStore) pendingSorted(eventID string) []model.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Registration
	for _, id := range s.order {
		if reg := s.regs[id]; reg.EventID == eventID && reg.Status.Kind == model.StatusPending {
			out = append(out, *reg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// fakeCounter is an in-memory CounterCache for tests.
type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int)}
}

func (c *fakeCounter) TryReserve(_ context.Context, eventID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	n, ok := c.counts[eventID]
	if !ok {
		return true, nil // no counter, cannot prove the event full
	}
	if n <= 0 {
		return false, nil
	}
	c.counts[eventID] = n - 1
	return true, nil
}

func (c *fakeCounter) Initialize(_ context.Context, eventID string, count int, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.counts[eventID] = count
	return nil
}
