package ledger

import (
	"sync"

	"github.com/commentsweep/quota-server/app/domain/entities"
)

// MemoryStore is an in-memory implementation of the Store interface. It
// keeps only the latest record and is intended for tests and dev runs.
type MemoryStore struct {
	mu     sync.RWMutex
	latest *entities.DayRecord
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Init initializes the memory store (no-op).
func (s *MemoryStore) Init() error {
	return nil
}

// Close closes the memory store (no-op).
func (s *MemoryStore) Close() error {
	return nil
}

// LoadLatest returns the last saved record.
func (s *MemoryStore) LoadLatest() (*entities.DayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, entities.ErrDayRecordNotFound
	}
	// Return a copy to prevent modification outside of store methods.
	rec := *s.latest
	return &rec, nil
}

// Save stores a copy of rec as the latest record.
func (s *MemoryStore) Save(rec *entities.DayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.latest = &cp
	return nil
}
