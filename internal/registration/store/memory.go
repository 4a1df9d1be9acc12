package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"compass/internal/registration"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
)

// MemoryStore keeps events and registrations in memory for tests.
type MemoryStore struct {
	mu            sync.RWMutex
	events        map[id.EventID]*registration.Event
	registrations map[id.RegistrationID]*registration.Registration
}

// NewMemory constructs an empty in-memory registration store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		events:        make(map[id.EventID]*registration.Event),
		registrations: make(map[id.RegistrationID]*registration.Registration),
	}
}

func (s *MemoryStore) ListAttendance(_ context.Context, userID id.UserID) ([]*registration.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*registration.AttendanceRecord
	for _, reg := range s.registrations {
		if reg.UserID != userID {
			continue
		}
		event, ok := s.events[reg.EventID]
		if !ok {
			return nil, fmt.Errorf("registration %s references unknown event %s", reg.ID, reg.EventID)
		}
		record := &registration.AttendanceRecord{
			RegistrationID: reg.ID,
			EventID:        event.ID,
			Status:         reg.Status,
			EventStart:     event.StartsAt,
		}
		if event.EndsAt != nil {
			end := *event.EndsAt
			record.EventEnd = &end
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].EventStart.Before(records[j].EventStart)
	})
	return records, nil
}

func (s *MemoryStore) CreateEvent(_ context.Context, event *registration.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "event already exists")
	}
	stored := *event
	s.events[event.ID] = &stored
	return nil
}

func (s *MemoryStore) CreateRegistration(_ context.Context, reg *registration.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.registrations {
		if existing.UserID == reg.UserID && existing.EventID == reg.EventID {
			return dErrors.New(dErrors.CodeConflict, "user already registered for event")
		}
	}
	stored := *reg
	s.registrations[reg.ID] = &stored
	return nil
}

func (s *MemoryStore) RemoveAllForUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for regID, reg := range s.registrations {
		if reg.UserID == userID {
			delete(s.registrations, regID)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) DetachCreator(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events {
		if event.CreatedBy != nil && *event.CreatedBy == userID {
			event.CreatedBy = nil
		}
	}
	return nil
}

func (s *MemoryStore) EventCreatedBy(_ context.Context, eventID id.EventID) (*id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	if event.CreatedBy == nil {
		return nil, nil
	}
	creator := *event.CreatedBy
	return &creator, nil
}

func (s *MemoryStore) CountForUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, reg := range s.registrations {
		if reg.UserID == userID {
			count++
		}
	}
	return count, nil
}
