// Package handler exposes identity harmonization over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bankops/internal/harmonization/models"
	id "bankops/pkg/domain"
	"bankops/pkg/platform/httputil"
	"bankops/pkg/requestcontext"
)

// Service defines the harmonization operations the handler exposes.
type Service interface {
	Initiate(ctx context.Context, accountID id.AccountID, phoneNumber string, actorRole id.Role) (*models.Request, error)
	GetRequest(ctx context.Context, requestID id.HarmonizationID) (*models.Request, error)
	ConfirmOTP(ctx context.Context, requestID id.HarmonizationID, code string, actorRole id.Role) (*models.Request, error)
	Comparison(ctx context.Context, requestID id.HarmonizationID) ([]models.FieldComparison, error)
	Review(ctx context.Context, requestID id.HarmonizationID, decision models.Decision, reason string, actorRole id.Role) (*models.Request, error)
	Cancel(ctx context.Context, requestID id.HarmonizationID, actorRole id.Role) (*models.Request, error)
}

// Handler wires harmonization endpoints to the harmonization service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a harmonization handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts harmonization endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/harmonizations", h.HandleInitiate)
	r.Get("/harmonizations/{requestID}", h.HandleGet)
	r.Post("/harmonizations/{requestID}/otp", h.HandleConfirmOTP)
	r.Get("/harmonizations/{requestID}/comparison", h.HandleComparison)
	r.Post("/harmonizations/{requestID}/review", h.HandleReview)
	r.Post("/harmonizations/{requestID}/cancel", h.HandleCancel)
}

// HandleInitiate handles POST /harmonizations.
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InitiateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	request, err := h.service.Initiate(ctx, req.ParsedAccountID(), req.PhoneNumber, requestcontext.Role(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "harmonization initiation failed",
			"request_id", requestID,
			"account_id", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "harmonization initiated",
		"request_id", requestID,
		"harmonization_id", request.ID,
		"account_id", request.AccountID,
	)
	httputil.WriteJSON(w, http.StatusCreated, request)
}

// HandleGet handles GET /harmonizations/{requestID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	harmonizationID, err := id.ParseHarmonizationID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	request, err := h.service.GetRequest(ctx, harmonizationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

// HandleConfirmOTP handles POST /harmonizations/{requestID}/otp.
func (h *Handler) HandleConfirmOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	harmonizationID, err := id.ParseHarmonizationID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfirmOTPRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	request, err := h.service.ConfirmOTP(ctx, harmonizationID, req.Code, requestcontext.Role(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "otp confirmation failed",
			"request_id", requestID,
			"harmonization_id", harmonizationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

// HandleComparison handles GET /harmonizations/{requestID}/comparison.
func (h *Handler) HandleComparison(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	harmonizationID, err := id.ParseHarmonizationID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	comparisons, err := h.service.Comparison(ctx, harmonizationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]models.FieldComparison{"fields": comparisons})
}

// HandleReview handles POST /harmonizations/{requestID}/review.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	harmonizationID, err := id.ParseHarmonizationID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	request, err := h.service.Review(ctx, harmonizationID, req.ParsedDecision(), req.RejectionReason, requestcontext.Role(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "harmonization review failed",
			"request_id", requestID,
			"harmonization_id", harmonizationID,
			"decision", req.Decision,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "harmonization reviewed",
		"request_id", requestID,
		"harmonization_id", harmonizationID,
		"decision", req.Decision,
	)
	httputil.WriteJSON(w, http.StatusOK, request)
}

// HandleCancel handles POST /harmonizations/{requestID}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	harmonizationID, err := id.ParseHarmonizationID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	request, err := h.service.Cancel(ctx, harmonizationID, requestcontext.Role(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}
