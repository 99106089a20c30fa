package store

import (
	"sync"

	"github.com/metno-forecast/norwegianweather/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory holder of the last good raw
// forecast. It implements weather.RawStore.
type MemoryStore struct {
	mu     sync.RWMutex
	latest weather.RawForecast
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Latest returns the stored raw forecast. The zero value means nothing has
// been fetched yet.
func (s *MemoryStore) Latest() weather.RawForecast {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Replace swaps the stored raw forecast wholesale.
func (s *MemoryStore) Replace(raw weather.RawForecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = raw
}

var _ weather.RawStore = (*MemoryStore)(nil)
