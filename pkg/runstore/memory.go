package runstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]map[int64]Record // spec name -> start time -> record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[int64]Record),
	}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySpec, ok := s.records[rec.SpecName]
	if !ok {
		bySpec = make(map[int64]Record)
		s.records[rec.SpecName] = bySpec
	}
	bySpec[rec.StartedAt.UnixNano()] = rec
	return nil
}

func (s *MemoryStore) List(_ context.Context, specName string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySpec := s.records[specName]
	records := make([]Record, 0, len(bySpec))
	for _, rec := range bySpec {
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) Last(ctx context.Context, specName string) (*Record, error) {
	records, err := s.List(ctx, specName, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Get returns the record for an exact (spec, start time) key. Test helper.
func (s *MemoryStore) Get(specName string, startedAt time.Time) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[specName][startedAt.UnixNano()]
	return rec, ok
}

var _ Store = (*MemoryStore)(nil)
