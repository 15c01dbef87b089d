package cache

import (
	"context"
	"sync"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
)

// MemorySessionStore is the single-instance fallback when Redis is not configured
type MemorySessionStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	record  models.SessionRecord
	expires time.Time
}

// NewMemorySessionStore creates an empty in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

func (s *MemorySessionStore) Save(ctx context.Context, sid string, record models.SessionRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sid] = memoryRecord{record: record, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Load(ctx context.Context, sid string) (*models.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[sid]
	if !ok {
		return nil, models.ErrNotFound
	}
	if !s.now().Before(r.expires) {
		delete(s.records, sid)
		return nil, models.ErrNotFound
	}
	record := r.record
	return &record, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sid)
	return nil
}

// Purge drops expired records and returns how many were removed
func (s *MemorySessionStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for sid, r := range s.records {
		if !now.Before(r.expires) {
			delete(s.records, sid)
			n++
		}
	}
	return n
}

// MemoryLockoutStore is the single-instance fallback for lockout persistence
type MemoryLockoutStore struct {
	mu       sync.Mutex
	lockouts map[string]time.Time
}

// NewMemoryLockoutStore creates an empty in-memory lockout store
func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{lockouts: make(map[string]time.Time)}
}

func (s *MemoryLockoutStore) GetLockout(ctx context.Context, sid string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.lockouts[sid]
	if !ok {
		return nil, nil
	}
	return &until, nil
}

func (s *MemoryLockoutStore) SetLockout(ctx context.Context, sid string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockouts[sid] = until
	return nil
}

func (s *MemoryLockoutStore) ClearLockout(ctx context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lockouts, sid)
	return nil
}
