package forecast

import (
	"context"
	"slices"
	"sync"
)

// Query filters an entity store. Zero-valued criteria are ignored; an empty
// query returns every entity.
type Query struct {
	Kind     Kind     // restrict to one kind
	Tags     []string // all listed tags must be present
	ActiveOn Date     // restrict to entities active on this date
}

// Matches reports whether the entity satisfies every provided criterion.
func (q Query) Matches(e Entity) bool {
	if q.Kind != "" && e.Kind() != q.Kind {
		return false
	}
	for _, tag := range q.Tags {
		if !e.HasTag(tag) {
			return false
		}
	}
	if !q.ActiveOn.IsZero() && !e.IsActive(q.ActiveOn) {
		return false
	}
	return true
}

// EntityStore supplies read-only entities to the engine. Query is the I/O
// boundary of the forecast: the async execution path suspends only here.
type EntityStore interface {
	Query(ctx context.Context, q Query) ([]Entity, error)
}

// MemoryStore is an in-memory EntityStore, safe for concurrent queries.
type MemoryStore struct {
	mu       sync.RWMutex
	entities []Entity
}

func NewMemoryStore(entities ...Entity) *MemoryStore {
	return &MemoryStore{entities: slices.Clone(entities)}
}

// Add appends entities to the store.
func (s *MemoryStore) Add(entities ...Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, entities...)
}

// Len returns the number of stored entities.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Query returns the entities matching all criteria, in insertion order.
func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entity
	for _, e := range s.entities {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ EntityStore = (*MemoryStore)(nil)
