package otp

import (
	"context"
	"sync"

	id "bankops/pkg/domain"
	"bankops/pkg/platform/sentinel"
)

// MemoryStore keeps issued codes in memory. Expiry is evaluated on read by
// the Issuer, so no sweeper goroutine is needed for tests and local runs.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[id.HarmonizationID]Issued
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[id.HarmonizationID]Issued)}
}

func (s *MemoryStore) Save(_ context.Context, requestID id.HarmonizationID, issued Issued) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[requestID] = issued
	return nil
}

func (s *MemoryStore) Get(_ context.Context, requestID id.HarmonizationID) (Issued, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issued, ok := s.codes[requestID]
	if !ok {
		return Issued{}, sentinel.ErrNotFound
	}
	return issued, nil
}

func (s *MemoryStore) Delete(_ context.Context, requestID id.HarmonizationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, requestID)
	return nil
}
