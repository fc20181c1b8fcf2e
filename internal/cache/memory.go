package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. It backs tests and serves as
// the fallback when the on-disk store cannot be opened.
type MemoryStore struct {
	codec
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(logger *slog.Logger, opts ...Option) *MemoryStore {
	return &MemoryStore{
		codec:   newCodec(logger, opts),
		entries: make(map[string][]byte),
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string, ttl time.Duration, dst any) bool {
	m.mu.Lock()
	data, ok := m.entries[key]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return m.decode(key, data, ttl, dst)
}

func (m *MemoryStore) Put(ctx context.Context, key string, value any) error {
	data, err := m.encode(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

// putRaw stores data verbatim, bypassing the envelope
func (m *MemoryStore) putRaw(key string, data []byte) {
	m.mu.Lock()
	m.entries[key] = data
	m.mu.Unlock()
}

// Len returns the number of stored entries
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Has reports whether an entry exists for key, fresh or not
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}
