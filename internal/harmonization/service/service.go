// Package service orchestrates identity harmonization: OTP proof of phone
// ownership, correlation of the asynchronous external identity push, and the
// reviewer's terminal merge-or-reject decision.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	accountmodels "bankops/internal/account/models"
	"bankops/internal/audit"
	"bankops/internal/harmonization/models"
	"bankops/internal/platform/metrics"
	id "bankops/pkg/domain"
	dErrors "bankops/pkg/domain-errors"
	"bankops/pkg/platform/sentinel"
	"bankops/pkg/requestcontext"
	"bankops/pkg/secrets"
)

var tracer = otel.Tracer("bankops/harmonization")

// RequestStore persists harmonization requests. CreateIfNoActive must reject
// a second non-terminal request per account atomically, and Execute must hold
// a per-request mutual-exclusion scope across validate and mutate.
type RequestStore interface {
	CreateIfNoActive(ctx context.Context, request *models.Request) error
	FindByID(ctx context.Context, requestID id.HarmonizationID) (*models.Request, error)
	FindByToken(ctx context.Context, token string) (*models.Request, error)
	FindActiveByAccount(ctx context.Context, accountID id.AccountID) (*models.Request, error)
	Execute(ctx context.Context, requestID id.HarmonizationID,
		validate func(*models.Request) error,
		mutate func(*models.Request)) (*models.Request, error)
}

// Accounts is the slice of the account service harmonization depends on.
type Accounts interface {
	GetAccount(ctx context.Context, accountID id.AccountID) (*accountmodels.Account, error)
	MergeIdentity(ctx context.Context, accountID id.AccountID, profile accountmodels.Profile) (*accountmodels.Account, error)
}

// OTPIssuer generates and confirms phone-ownership codes.
type OTPIssuer interface {
	Issue(ctx context.Context, requestID id.HarmonizationID) (string, error)
	Confirm(ctx context.Context, requestID id.HarmonizationID, code string) error
}

// IdentityProvider is the outbound edge to the external identity source:
// code delivery to the holder's phone and the verification kickoff that
// eventually produces the asynchronous push.
type IdentityProvider interface {
	SendOTP(ctx context.Context, phoneNumber, code string) error
	TriggerVerification(ctx context.Context, phoneNumber, correlationToken string) error
}

// AuditPublisher records workflow actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives the harmonization state machine.
type Service struct {
	requests RequestStore
	accounts Accounts
	otp      OTPIssuer
	provider IdentityProvider
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithProvider(provider IdentityProvider) Option {
	return func(s *Service) { s.provider = provider }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service.
func New(requests RequestStore, accounts Accounts, otp OTPIssuer, opts ...Option) *Service {
	s := &Service{requests: requests, accounts: accounts, otp: otp}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate opens a harmonization request for the account and sends an OTP to
// the given phone number. At most one request per account may be in flight;
// a second initiation conflicts until the first reaches a terminal state.
func (s *Service) Initiate(ctx context.Context, accountID id.AccountID, phoneNumber string, actorRole id.Role) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "harmonization.initiate")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID.String()))

	if !actorRole.CanReviewHarmonization() {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "role %s may not initiate harmonization", actorRole)
	}
	if _, err := s.accounts.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	token, err := secrets.GenerateToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate correlation token")
	}
	request, err := models.NewRequest(id.NewHarmonizationID(), accountID, phoneNumber, token, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.requests.CreateIfNoActive(ctx, request); err != nil {
		return nil, wrapRequestErr(err)
	}

	code, err := s.otp.Issue(ctx, request.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue otp")
	}
	if s.provider != nil {
		// Delivery is best effort; the code stays valid and confirmation
		// remains possible through any channel that reaches the holder.
		if err := s.provider.SendOTP(ctx, request.PhoneNumber, code); err != nil {
			s.log(ctx, slog.LevelWarn, "otp delivery failed",
				"harmonization_id", request.ID.String(), "error", err.Error())
		}
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionHarmonizationStarted,
		Role:      actorRole.String(),
		AccountID: accountID.String(),
		To:        string(request.Status),
	})
	if s.metrics != nil {
		s.metrics.HarmonizationsStarted.Inc()
	}
	return request, nil
}

// GetRequest returns the current request snapshot.
func (s *Service) GetRequest(ctx context.Context, requestID id.HarmonizationID) (*models.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	return request, nil
}

// ConfirmOTP checks the submitted code and, on success, moves the request to
// OTP_VERIFIED and asks the external provider to start its verification. The
// code is consumed only on success; a wrong code is retryable until its
// window closes, and a second confirmation of the same request conflicts.
func (s *Service) ConfirmOTP(ctx context.Context, requestID id.HarmonizationID, code string, actorRole id.Role) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "harmonization.confirm_otp")
	defer span.End()
	span.SetAttributes(attribute.String("harmonization.id", requestID.String()))

	if !actorRole.CanReviewHarmonization() {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "role %s may not confirm otp", actorRole)
	}

	now := requestcontext.Now(ctx)
	request, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error {
			if err := r.CanVerifyOTP(); err != nil {
				return err
			}
			return s.otp.Confirm(ctx, requestID, code)
		},
		func(r *models.Request) { r.ApplyOTPVerified(now) },
	)
	if err != nil {
		s.countOTPFailure(err)
		return nil, wrapRequestErr(err)
	}

	if s.provider != nil {
		if err := s.provider.TriggerVerification(ctx, request.PhoneNumber, request.CorrelationToken); err != nil {
			s.log(ctx, slog.LevelWarn, "verification trigger failed",
				"harmonization_id", request.ID.String(), "error", err.Error())
		}
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionHarmonizationOTP,
		Role:      actorRole.String(),
		AccountID: request.AccountID.String(),
		To:        string(request.Status),
	})
	return request, nil
}

// ReceiveExternalIdentity correlates an asynchronous provider push by its
// token alone and attaches the payload, landing the request in
// PENDING_KYC_REVIEW as one atomic step. A duplicate push, or one racing a
// cancellation, conflicts and mutates nothing.
func (s *Service) ReceiveExternalIdentity(ctx context.Context, token string, payload models.FaydaIdentity) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "harmonization.receive_identity")
	defer span.End()

	found, err := s.requests.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.countPush("unknown_token")
			return nil, dErrors.New(dErrors.CodeNotFound, "unknown correlation token")
		}
		return nil, wrapRequestErr(err)
	}
	span.SetAttributes(attribute.String("harmonization.id", found.ID.String()))

	now := requestcontext.Now(ctx)
	request, err := s.requests.Execute(ctx, found.ID,
		func(r *models.Request) error { return r.CanReceiveIdentity() },
		func(r *models.Request) { r.ApplyIdentity(payload, now) },
	)
	if err != nil {
		s.countPush("rejected")
		s.log(ctx, slog.LevelWarn, "identity push not applied",
			"harmonization_id", found.ID.String(), "error", err.Error())
		return nil, wrapRequestErr(err)
	}

	s.countPush("applied")
	s.log(ctx, slog.LevelInfo, "identity push applied",
		"harmonization_id", request.ID.String(),
		"account_id", request.AccountID.String(),
	)
	s.emit(ctx, audit.Event{
		Action:    audit.ActionHarmonizationReceived,
		AccountID: request.AccountID.String(),
		To:        string(request.Status),
	})
	return request, nil
}

// Comparison returns the field-by-field view of declared versus externally
// verified identity that the reviewer decides on. Available once the push
// has been received.
func (s *Service) Comparison(ctx context.Context, requestID id.HarmonizationID) ([]models.FieldComparison, error) {
	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Fayda == nil {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "identity data has not been received")
	}
	account, err := s.accounts.GetAccount(ctx, request.AccountID)
	if err != nil {
		return nil, err
	}
	return models.Compare(account.Profile, *request.Fayda), nil
}

// Review applies the terminal human decision. MERGE overwrites the account's
// declared profile with the verified identity; the profile write happens
// inside the request's Execute scope after CanReview passes, so a competing
// cancel or decision that commits first reports Conflict with the account
// profile untouched.
func (s *Service) Review(ctx context.Context, requestID id.HarmonizationID, decision models.Decision, reason string, actorRole id.Role) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "harmonization.review")
	defer span.End()
	span.SetAttributes(
		attribute.String("harmonization.id", requestID.String()),
		attribute.String("harmonization.decision", string(decision)),
	)

	if !actorRole.CanReviewHarmonization() {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "role %s may not review harmonization", actorRole)
	}
	reason = strings.TrimSpace(reason)
	if decision == models.DecisionReject && reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "rejection reason is required")
	}

	review := models.Review{Decision: decision, RejectionReason: reason}
	if actorID := requestcontext.ActorID(ctx); !actorID.IsZero() {
		review.ReviewerID = actorID.String()
	}
	now := requestcontext.Now(ctx)
	request, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error {
			if err := r.CanReview(); err != nil {
				return err
			}
			if decision == models.DecisionMerge {
				_, err := s.accounts.MergeIdentity(ctx, r.AccountID, profileFromFayda(*r.Fayda))
				return err
			}
			return nil
		},
		func(r *models.Request) { r.ApplyReview(review, now) },
	)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	action := audit.ActionHarmonizationMerged
	outcome := "merged"
	if decision == models.DecisionReject {
		action = audit.ActionHarmonizationRejected
		outcome = "rejected"
	}
	s.log(ctx, slog.LevelInfo, "harmonization reviewed",
		"harmonization_id", request.ID.String(),
		"account_id", request.AccountID.String(),
		"decision", string(decision),
	)
	s.emit(ctx, audit.Event{
		Action:    action,
		Role:      actorRole.String(),
		AccountID: request.AccountID.String(),
		To:        string(request.Status),
		Reason:    reason,
	})
	s.countClosed(outcome)
	return request, nil
}

// Cancel terminates a non-terminal request without a decision. Any identity
// push arriving afterwards finds its token consumed.
func (s *Service) Cancel(ctx context.Context, requestID id.HarmonizationID, actorRole id.Role) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "harmonization.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("harmonization.id", requestID.String()))

	if !actorRole.CanReviewHarmonization() {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "role %s may not cancel harmonization", actorRole)
	}

	now := requestcontext.Now(ctx)
	request, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error { return r.CanCancel() },
		func(r *models.Request) { r.ApplyCancel(now) },
	)
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionHarmonizationCanceled,
		Role:      actorRole.String(),
		AccountID: request.AccountID.String(),
		To:        string(request.Status),
	})
	s.countClosed("cancelled")
	return request, nil
}

func profileFromFayda(identity models.FaydaIdentity) accountmodels.Profile {
	return accountmodels.Profile{
		FullName:    identity.FullName,
		Gender:      models.NormalizeGender(identity.Gender),
		BirthDate:   identity.BirthDate,
		Address:     identity.Address,
		PhoneNumber: identity.PhoneNumber,
	}
}

func (s *Service) countOTPFailure(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.OTPFailures.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
}

func (s *Service) countPush(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IdentityPushes.WithLabelValues(result).Inc()
}

func (s *Service) countClosed(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.HarmonizationsClosed.WithLabelValues(outcome).Inc()
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	s.logger.Log(ctx, level, msg, attributes...)
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

func wrapRequestErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "harmonization request not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "a harmonization request is already in progress for this account")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "harmonization request already exists")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "harmonization store failure")
	}
}
