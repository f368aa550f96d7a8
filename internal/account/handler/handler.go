// Package handler exposes the account lifecycle over HTTP. The actor's role
// comes from the request context set by the auth middleware; handlers carry
// no business logic.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bankops/internal/account/models"
	"bankops/internal/account/service"
	id "bankops/pkg/domain"
	"bankops/pkg/platform/httputil"
	"bankops/pkg/requestcontext"
)

// Service defines the account operations the handler exposes.
type Service interface {
	CreateAccount(ctx context.Context, params service.CreateParams, actorRole id.Role) (*models.Account, error)
	GetAccount(ctx context.Context, accountID id.AccountID) (*models.Account, error)
	ApplyTransition(ctx context.Context, accountID id.AccountID, target models.AccountStatus, actorRole id.Role, rejectionReason string) (*models.Account, error)
	VerifyAccount(ctx context.Context, accountID id.AccountID, actorRole id.Role) (*models.Account, error)
}

// Handler wires account endpoints to the account service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an account handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts account endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/accounts", h.HandleCreate)
	r.Get("/accounts/{accountID}", h.HandleGet)
	r.Post("/accounts/{accountID}/transitions", h.HandleTransition)
	r.Post("/accounts/{accountID}/verification", h.HandleVerify)
}

// HandleCreate handles POST /accounts.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateAccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.service.CreateAccount(ctx, service.CreateParams{
		Type:           req.ParsedType(),
		Currency:       req.Currency,
		InitialDeposit: req.InitialDeposit,
		Profile:        req.ParsedProfile(),
	}, requestcontext.Role(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "account creation failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "account created",
		"request_id", requestID,
		"account_id", account.ID,
		"type", account.Type,
	)
	httputil.WriteJSON(w, http.StatusCreated, account)
}

// HandleGet handles GET /accounts/{accountID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := h.service.GetAccount(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

// HandleTransition handles POST /accounts/{accountID}/transitions.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.service.ApplyTransition(ctx, accountID, req.ParsedTarget(), requestcontext.Role(ctx), req.RejectionReason)
	if err != nil {
		h.logger.WarnContext(ctx, "transition denied",
			"request_id", requestID,
			"account_id", accountID,
			"target", req.TargetStatus,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

// HandleVerify handles POST /accounts/{accountID}/verification.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := h.service.VerifyAccount(ctx, accountID, requestcontext.Role(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}
