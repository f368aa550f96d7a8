// Package gateway assembles the HTTP surface: middleware chain, feature
// handlers, the provider's inbound push endpoint, and operational routes.
// No business logic lives here.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthandler "bankops/internal/account/handler"
	harmonizationhandler "bankops/internal/harmonization/handler"
	"bankops/internal/harmonization/models"
	"bankops/internal/platform/middleware"
	dErrors "bankops/pkg/domain-errors"
	"bankops/pkg/platform/httputil"
)

// PushSink receives provider verification results. It is the same code path
// the websocket channel dispatches into.
type PushSink interface {
	ReceiveExternalIdentity(ctx context.Context, token string, payload models.FaydaIdentity) (*models.Request, error)
}

// Deps carries everything the router mounts.
type Deps struct {
	Accounts       accounthandler.Service
	Harmonizations harmonizationhandler.Service
	Push           PushSink
	TokenValidator middleware.TokenValidator
	Logger         *slog.Logger
}

// New builds the router. Staff endpoints sit behind bearer auth; the push
// endpoint and operational routes do not.
func New(deps Deps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Post("/identity/verifications", handlePush(deps.Push, deps.Logger))

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))
		accounthandler.New(deps.Accounts, deps.Logger).Register(r)
		harmonizationhandler.New(deps.Harmonizations, deps.Logger).Register(r)
	})

	return router
}

// pushRequest mirrors the websocket wire shape so both inbound paths speak
// the same contract.
type pushRequest struct {
	CorrelationToken string               `json:"correlation_token"`
	Identity         models.FaydaIdentity `json:"identity"`
}

// Validate validates the request.
func (p *pushRequest) Validate() error {
	p.CorrelationToken = strings.TrimSpace(p.CorrelationToken)
	if p.CorrelationToken == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "correlation_token is required")
	}
	return nil
}

func handlePush(sink PushSink, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, ok := httputil.DecodeAndPrepare[pushRequest](w, r, logger, ctx, "")
		if !ok {
			return
		}
		request, err := sink.ReceiveExternalIdentity(ctx, req.CorrelationToken, req.Identity)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"id":     request.ID.String(),
			"status": string(request.Status),
		})
	}
}
