package forecast

import "context"

var (
	jan24 = NewDate(2024, 1, 1)
	dec24 = NewDate(2024, 12, 31)
)

// testStore returns the canonical two-entity store: one employee (60k
// annual salary) and one facility (5k monthly) both active all of 2024.
func testStore() *MemoryStore {
	return NewMemoryStore(
		NewEmployee("dev", jan24, Attrs{"salary": 60000}).Until(dec24),
		NewFacility("hq", jan24, Attrs{"monthly_cost": 5000}).Until(dec24),
	)
}

// countingStore wraps a store and counts queries, to observe cache hits.
type countingStore struct {
	*MemoryStore
	queries int
}

func (s *countingStore) Query(ctx context.Context, q Query) ([]Entity, error) {
	s.queries++
	return s.MemoryStore.Query(ctx, q)
}
