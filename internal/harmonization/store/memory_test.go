package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bankops/internal/harmonization/models"
	id "bankops/pkg/domain"
	"bankops/pkg/platform/sentinel"
)

type RequestStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *RequestStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestRequestStoreSuite(t *testing.T) {
	suite.Run(t, new(RequestStoreSuite))
}

func (s *RequestStoreSuite) newRequest(accountID id.AccountID, token string) *models.Request {
	r, err := models.NewRequest(id.NewHarmonizationID(), accountID, "+251911000111", token, time.Now())
	s.Require().NoError(err)
	return r
}

func (s *RequestStoreSuite) TestCreateAndLookups() {
	s.Run("creates and finds by id and token", func() {
		request := s.newRequest(id.NewAccountID(), "tok-a")
		s.Require().NoError(s.store.CreateIfNoActive(s.ctx, request))

		byID, err := s.store.FindByID(s.ctx, request.ID)
		s.Require().NoError(err)
		s.Equal(request.ID, byID.ID)

		byToken, err := s.store.FindByToken(s.ctx, "tok-a")
		s.Require().NoError(err)
		s.Equal(request.ID, byToken.ID)
	})

	s.Run("unknown lookups return ErrNotFound", func() {
		_, err := s.store.FindByID(s.ctx, id.NewHarmonizationID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByToken(s.ctx, "never-issued")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RequestStoreSuite) TestAtMostOneInFlight() {
	accountID := id.NewAccountID()

	first := s.newRequest(accountID, "tok-1")
	s.Require().NoError(s.store.CreateIfNoActive(s.ctx, first))

	second := s.newRequest(accountID, "tok-2")
	s.Require().ErrorIs(s.store.CreateIfNoActive(s.ctx, second), sentinel.ErrAlreadyUsed)

	// A terminal request frees the slot.
	_, err := s.store.Execute(s.ctx, first.ID,
		func(r *models.Request) error { return nil },
		func(r *models.Request) { r.ApplyCancel(time.Now()) },
	)
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateIfNoActive(s.ctx, second))
}

// Concurrent initiations for one account: exactly one may win.
func (s *RequestStoreSuite) TestConcurrentCreateSingleWinner() {
	accountID := id.NewAccountID()
	const goroutines = 32

	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			request := s.newRequest(accountID, fmt.Sprintf("tok-%d", n))
			if err := s.store.CreateIfNoActive(s.ctx, request); err == nil {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
}

func (s *RequestStoreSuite) TestFindActiveByAccount() {
	accountID := id.NewAccountID()
	request := s.newRequest(accountID, "tok-active")
	s.Require().NoError(s.store.CreateIfNoActive(s.ctx, request))

	active, err := s.store.FindActiveByAccount(s.ctx, accountID)
	s.Require().NoError(err)
	s.Equal(request.ID, active.ID)

	_, err = s.store.FindActiveByAccount(s.ctx, id.NewAccountID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RequestStoreSuite) TestExecuteValidateFailureIsNoOp() {
	request := s.newRequest(id.NewAccountID(), "tok-x")
	s.Require().NoError(s.store.CreateIfNoActive(s.ctx, request))

	_, err := s.store.Execute(s.ctx, request.ID,
		func(r *models.Request) error { return sentinel.ErrInvalidState },
		func(r *models.Request) { r.ApplyOTPVerified(time.Now()) },
	)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.FindByID(s.ctx, request.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPendingOTP, found.Status)
}
