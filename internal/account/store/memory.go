// Package store persists account aggregates. Both implementations serialize
// all mutations per account: Execute holds that account's lock (a mutex here,
// FOR UPDATE in postgres) across validate and mutate, so a reverse
// authorization and an identity merge on the same account can never
// interleave. Different accounts proceed fully in parallel.
package store

import (
	"context"
	"sync"
	"sync/atomic"

	"bankops/internal/account/models"
	id "bankops/pkg/domain"
	"bankops/pkg/platform/sentinel"
)

// InMemory keeps accounts in a map guarded by per-account mutexes. It backs
// tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*models.Account
	locks    map[id.AccountID]*sync.Mutex
	sequence atomic.Int64
}

func NewInMemory() *InMemory {
	s := &InMemory{
		accounts: make(map[id.AccountID]*models.Account),
		locks:    make(map[id.AccountID]*sync.Mutex),
	}
	s.sequence.Store(1000)
	return s
}

func (s *InMemory) Create(_ context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *account
	s.accounts[account.ID] = &cp
	s.locks[account.ID] = &sync.Mutex{}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// Execute loads the account, runs validate then mutate while holding that
// account's lock, and persists the result. The returned snapshot is a copy.
func (s *InMemory) Execute(
	_ context.Context,
	accountID id.AccountID,
	validate func(*models.Account) error,
	mutate func(*models.Account),
) (*models.Account, error) {
	s.mu.RLock()
	lock, ok := s.locks[accountID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	account := s.accounts[accountID]
	s.mu.RUnlock()

	working := *account
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	if err := working.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.accounts[accountID] = &working
	s.mu.Unlock()

	cp := working
	return &cp, nil
}

// NextAccountNumber allocates the next number in the branch sequence.
func (s *InMemory) NextAccountNumber(_ context.Context) (int64, error) {
	return s.sequence.Add(1), nil
}
