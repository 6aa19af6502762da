package migration

import (
	"context"
	"sync"
)

type memoryEntry struct {
	record     LegacyRecord
	migratedID uint64
	receipt    string
}

// MemoryStore is an in-process legacy store for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	order   []string
}

// NewMemoryStore seeds an in-process legacy store.
func NewMemoryStore(records ...LegacyRecord) *MemoryStore {
	s := &MemoryStore{entries: make(map[string]*memoryEntry)}
	for _, rec := range records {
		s.entries[rec.SubjectID] = &memoryEntry{record: rec}
		s.order = append(s.order, rec.SubjectID)
	}
	return s
}

func (s *MemoryStore) ListPending(_ context.Context) ([]LegacyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []LegacyRecord
	for _, subjectID := range s.order {
		if e := s.entries[subjectID]; e.migratedID == 0 {
			pending = append(pending, e.record)
		}
	}
	return pending, nil
}

func (s *MemoryStore) MarkMigrated(_ context.Context, subjectID string, id uint64, receipt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[subjectID]; ok {
		e.migratedID = id
		e.receipt = receipt
	}
	return nil
}

// MigratedID reports the bound registry id for a subject. Test helper.
func (s *MemoryStore) MigratedID(subjectID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[subjectID]; ok {
		return e.migratedID
	}
	return 0
}
