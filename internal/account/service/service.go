// Package service implements the account lifecycle state machine: it
// validates maker-checker transitions against the policy table and applies
// them atomically through the store's per-account Execute scope.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"bankops/internal/account/models"
	"bankops/internal/account/policy"
	"bankops/internal/audit"
	"bankops/internal/platform/metrics"
	id "bankops/pkg/domain"
	dErrors "bankops/pkg/domain-errors"
	"bankops/pkg/platform/sentinel"
	"bankops/pkg/requestcontext"
)

var tracer = otel.Tracer("bankops/account")

// AccountStore is the persistence contract the lifecycle machine mutates
// through. Execute must hold a per-account mutual-exclusion scope across
// validate and mutate.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	Execute(ctx context.Context, accountID id.AccountID,
		validate func(*models.Account) error,
		mutate func(*models.Account)) (*models.Account, error)
	NextAccountNumber(ctx context.Context) (int64, error)
}

// AuditPublisher records workflow actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates account lifecycle operations.
type Service struct {
	accounts AccountStore
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service.
func New(accounts AccountStore, opts ...Option) *Service {
	s := &Service{accounts: accounts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries the onboarding input for a new account.
type CreateParams struct {
	Type           models.AccountType
	Currency       string
	InitialDeposit int64
	Profile        models.Profile
}

// CreateAccount onboards a PENDING account. Only the maker role may onboard.
func (s *Service) CreateAccount(ctx context.Context, params CreateParams, actorRole id.Role) (*models.Account, error) {
	if actorRole != id.RoleAccountCreator {
		return nil, dErrors.New(dErrors.CodeForbidden, "only account creators may onboard accounts")
	}

	account, err := models.NewAccount(id.NewAccountID(), params.Type, params.Currency,
		params.InitialDeposit, params.Profile, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionAccountCreated,
		Role:      actorRole.String(),
		AccountID: account.ID.String(),
		To:        account.Status.String(),
	})
	return account, nil
}

// GetAccount returns the current account snapshot.
func (s *Service) GetAccount(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, wrapAccountErr(err)
	}
	return account, nil
}

// ApplyTransition validates and applies one maker-checker transition.
//
// Check order, all evaluated against the persisted status under the
// per-account lock:
//  1. account exists              → NotFound
//  2. edge exists in status graph → PreconditionFailed
//  3. role permits the edge       → Forbidden
//  4. REJECTED carries a reason   → InvalidArgument
//  5. UNSETTLED only if verified  → PreconditionFailed
//
// An invalid transition is a no-op on the account; nothing is ever left
// straddling two statuses.
func (s *Service) ApplyTransition(
	ctx context.Context,
	accountID id.AccountID,
	target models.AccountStatus,
	actorRole id.Role,
	rejectionReason string,
) (*models.Account, error) {
	ctx, span := tracer.Start(ctx, "account.apply_transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", accountID.String()),
		attribute.String("account.target_status", target.String()),
	)

	rejectionReason = strings.TrimSpace(rejectionReason)
	now := requestcontext.Now(ctx)

	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.Account) error {
			if err := a.CanTransition(target); err != nil {
				return err
			}
			if !policy.CanTransition(actorRole, a, target) {
				return dErrors.Newf(dErrors.CodeForbidden,
					"role %s may not move account from %s to %s", actorRole, a.Status, target)
			}
			if target == models.StatusRejected && rejectionReason == "" {
				return dErrors.New(dErrors.CodeInvalidArgument, "rejection reason is required")
			}
			if target == models.StatusUnsettled && !a.IsVerified() {
				return dErrors.New(dErrors.CodePreconditionFailed,
					"account must be verified before settlement")
			}
			return nil
		},
		func(a *models.Account) {
			a.ApplyTransition(target, rejectionReason, now)
		},
	)
	if err != nil {
		wrapped := wrapAccountErr(err)
		s.countDenied(wrapped)
		return nil, wrapped
	}

	s.log(ctx, "account transitioned",
		"account_id", account.ID.String(),
		"to", target.String(),
		"role", actorRole.String(),
	)
	s.emit(ctx, audit.Event{
		Action:    audit.ActionAccountTransitioned,
		Role:      actorRole.String(),
		AccountID: account.ID.String(),
		To:        target.String(),
		Reason:    rejectionReason,
	})
	if s.metrics != nil {
		s.metrics.TransitionsApplied.WithLabelValues(target.String()).Inc()
	}
	return account, nil
}

// VerifyAccount assigns the account number and customer ID as one joint
// fact. Idempotent: verifying an already-verified account returns the
// existing values without regenerating identifiers.
func (s *Service) VerifyAccount(ctx context.Context, accountID id.AccountID, actorRole id.Role) (*models.Account, error) {
	ctx, span := tracer.Start(ctx, "account.verify")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID.String()))

	if !actorRole.CanVerifyAccount() {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "role %s may not verify accounts", actorRole)
	}

	existing, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, wrapAccountErr(err)
	}
	if existing.IsVerified() {
		return existing, nil
	}

	number, err := s.accounts.NextAccountNumber(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate account number")
	}
	accountNumber := fmt.Sprintf("%d", number)
	customerID := fmt.Sprintf("C%d", number)
	now := requestcontext.Now(ctx)

	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.Account) error { return nil },
		func(a *models.Account) {
			// Re-check under the lock: a concurrent verify may have won.
			if a.IsVerified() {
				return
			}
			a.ApplyVerification(accountNumber, customerID, now)
		},
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionAccountVerified,
		Role:      actorRole.String(),
		AccountID: account.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.AccountsVerified.Inc()
	}
	return account, nil
}

// MergeIdentity overwrites the account's profile with externally verified
// identity data. Only the harmonization service calls this; the account
// status is untouched.
func (s *Service) MergeIdentity(ctx context.Context, accountID id.AccountID, profile models.Profile) (*models.Account, error) {
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.Account) error { return nil },
		func(a *models.Account) { a.ApplyIdentity(profile, now) },
	)
	if err != nil {
		return nil, wrapAccountErr(err)
	}
	return account, nil
}

// countDenied counts refused transitions. Lookup misses are not denials and
// stay out of the counter.
func (s *Service) countDenied(err error) {
	if s.metrics == nil || dErrors.CodeOf(err) == dErrors.CodeNotFound {
		return
	}
	s.metrics.TransitionsDenied.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
}

func (s *Service) log(ctx context.Context, msg string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, attributes...)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if actorID := requestcontext.ActorID(ctx); !actorID.IsZero() {
		event.ActorID = actorID.String()
	}
	event.Timestamp = requestcontext.Now(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err.Error())
	}
}

func wrapAccountErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "account not found")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "account store failure")
	}
}
