package dedup

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store. It honors the retention window so it
// behaves like the durable backends in tests and single-node setups.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[fingerprint]
	if !ok {
		return false, nil
	}
	if s.now().After(rec.expiresAt) {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Record(ctx context.Context, fingerprint string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[fingerprint] = memoryRecord{
		payload:   payload,
		expiresAt: s.now().Add(RetentionWindow),
	}
	return nil
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// SeenSet is a process-lifetime set of already-handled identifiers. It backs
// both the within-run fingerprint mirror and the platform delivery-id check.
// It is an optimization only; the durable Store stays authoritative.
type SeenSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

func (s *SeenSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.keys[key]
	return ok
}

func (s *SeenSet) Add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = struct{}{}
}
