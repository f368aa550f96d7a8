// Package store persists harmonization requests. Mutations are serialized
// per request through Execute, mirroring the account store, and creation
// enforces the at-most-one in-flight rule per account atomically so two
// concurrent initiations cannot both win.
package store

import (
	"context"
	"sync"

	"bankops/internal/harmonization/models"
	id "bankops/pkg/domain"
	"bankops/pkg/platform/sentinel"
)

// InMemory backs tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.HarmonizationID]*models.Request
	byToken  map[string]id.HarmonizationID
	locks    map[id.HarmonizationID]*sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{
		requests: make(map[id.HarmonizationID]*models.Request),
		byToken:  make(map[string]id.HarmonizationID),
		locks:    make(map[id.HarmonizationID]*sync.Mutex),
	}
}

// CreateIfNoActive inserts the request unless a non-terminal request already
// exists for the same account. The check and insert happen under one lock.
func (s *InMemory) CreateIfNoActive(_ context.Context, request *models.Request) error {
	if err := request.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.requests {
		if existing.AccountID == request.AccountID && !existing.Status.IsTerminal() {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *request
	s.requests[request.ID] = &cp
	s.byToken[request.CorrelationToken] = request.ID
	s.locks[request.ID] = &sync.Mutex{}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.HarmonizationID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *request
	return &cp, nil
}

// FindByToken resolves a correlation token. This is the only lookup the
// identity push may use; correlation never happens by account or timing.
func (s *InMemory) FindByToken(_ context.Context, token string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	requestID, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.requests[requestID]
	return &cp, nil
}

// FindActiveByAccount returns the non-terminal request for the account, if
// any.
func (s *InMemory) FindActiveByAccount(_ context.Context, accountID id.AccountID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, request := range s.requests {
		if request.AccountID == accountID && !request.Status.IsTerminal() {
			cp := *request
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Execute loads the request, runs validate then mutate while holding that
// request's lock, and persists the result.
func (s *InMemory) Execute(
	_ context.Context,
	requestID id.HarmonizationID,
	validate func(*models.Request) error,
	mutate func(*models.Request),
) (*models.Request, error) {
	s.mu.RLock()
	lock, ok := s.locks[requestID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	request := s.requests[requestID]
	s.mu.RUnlock()

	working := *request
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	if err := working.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.requests[requestID] = &working
	s.mu.Unlock()

	cp := working
	return &cp, nil
}
