//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bankops/internal/account/models"
	"bankops/internal/account/store"
	id "bankops/pkg/domain"
	"bankops/pkg/platform/sentinel"
	"bankops/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "accounts"))
}

func (s *PostgresStoreSuite) newAccount() *models.Account {
	account, err := models.NewAccount(id.NewAccountID(), models.TypeIndividual, "ETB", 1000,
		models.Profile{FullName: "Abebe Kebede", PhoneNumber: "+251911223344"}, time.Now())
	s.Require().NoError(err)
	return account
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	account := s.newAccount()
	s.Require().NoError(s.store.Create(s.ctx, account))

	found, err := s.store.FindByID(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(account.ID, found.ID)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("Abebe Kebede", found.Profile.FullName)

	s.Require().ErrorIs(s.store.Create(s.ctx, account), sentinel.ErrConflict)

	_, err = s.store.FindByID(s.ctx, id.NewAccountID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestExecuteAppliesAndRollsBack() {
	account := s.newAccount()
	s.Require().NoError(s.store.Create(s.ctx, account))

	updated, err := s.store.Execute(s.ctx, account.ID,
		func(a *models.Account) error { return a.CanTransition(models.StatusAuthorized) },
		func(a *models.Account) { a.ApplyTransition(models.StatusAuthorized, "", time.Now()) },
	)
	s.Require().NoError(err)
	s.Equal(models.StatusAuthorized, updated.Status)

	// Validation failure leaves the row untouched.
	_, err = s.store.Execute(s.ctx, account.ID,
		func(a *models.Account) error { return sentinel.ErrInvalidState },
		func(a *models.Account) { a.ApplyTransition(models.StatusApproved, "", time.Now()) },
	)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.FindByID(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusAuthorized, found.Status)
}

func (s *PostgresStoreSuite) TestExecuteSerializesPerAccount() {
	account := s.newAccount()
	s.Require().NoError(s.store.Create(s.ctx, account))

	const goroutines = 16
	var wg sync.WaitGroup
	flips := 0
	var mu sync.Mutex
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(s.ctx, account.ID,
				func(a *models.Account) error { return nil },
				func(a *models.Account) {
					if a.Status == models.StatusPending {
						a.ApplyTransition(models.StatusAuthorized, "", time.Now())
					} else {
						a.ApplyTransition(models.StatusPending, "", time.Now())
					}
				},
			)
			if err == nil {
				mu.Lock()
				flips++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(goroutines, flips)
	found, err := s.store.FindByID(s.ctx, account.ID)
	s.Require().NoError(err)
	// An even number of flips must land back where it started.
	s.Equal(models.StatusPending, found.Status)
}

func (s *PostgresStoreSuite) TestVerificationRoundTrip() {
	account := s.newAccount()
	s.Require().NoError(s.store.Create(s.ctx, account))

	number, err := s.store.NextAccountNumber(s.ctx)
	s.Require().NoError(err)
	next, err := s.store.NextAccountNumber(s.ctx)
	s.Require().NoError(err)
	s.Equal(number+1, next)

	updated, err := s.store.Execute(s.ctx, account.ID,
		func(a *models.Account) error { return nil },
		func(a *models.Account) { a.ApplyVerification("100042", "C100042", time.Now()) },
	)
	s.Require().NoError(err)
	s.True(updated.IsVerified())

	found, err := s.store.FindByID(s.ctx, account.ID)
	s.Require().NoError(err)
	s.Equal("100042", found.AccountNumber)
	s.Equal("C100042", found.CustomerID)
}
