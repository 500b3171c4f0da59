package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, evt Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	evt.ID = uuid.NewString()
	evt.CreatedAt = time.Now()
	m.events = append(m.events, evt)
	return nil
}

func (m *MemoryStore) matching(filter Filter) []Event {
	out := []Event{}
	// newest first
	for i := len(m.events) - 1; i >= 0; i-- {
		evt := m.events[i]
		if filter.Action != "" && evt.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && evt.EntityType != filter.EntityType {
			continue
		}
		if filter.ActorID != "" && evt.ActorID != filter.ActorID {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func (m *MemoryStore) Count(_ context.Context, filter Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matching(filter)), nil
}

func (m *MemoryStore) List(_ context.Context, filter Filter, limit, offset int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.matching(filter)
	if offset >= len(all) {
		return []Event{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (m *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var deleted int64
	for _, evt := range m.events {
		if evt.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, evt)
	}
	m.events = kept
	return deleted, nil
}
