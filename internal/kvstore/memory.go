package kvstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback backend: a mutex-guarded map
// with per-entry expiry. Entries are dropped lazily on read and swept
// opportunistically on write, so memory use tracks the active window
// rather than growing forever.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !time.Now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep anything already expired before adding the new entry.
	for k, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, k)
		}
	}

	s.entries[key] = memoryEntry{
		value:     value,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of live entries. Expired entries that have not
// been swept yet are included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
