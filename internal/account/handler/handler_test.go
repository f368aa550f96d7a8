package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bankops/internal/account/service"
	"bankops/internal/account/store"
	id "bankops/pkg/domain"
	"bankops/pkg/requestcontext"
)

// newAccountRouter wires the handler over a real service and store. The role
// header stands in for the auth middleware.
func newAccountRouter(t *testing.T) chi.Router {
	t.Helper()
	svc := service.New(store.NewInMemory())
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := id.ParseRole(r.Header.Get("X-Test-Role"))
			if err == nil {
				r = r.WithContext(requestcontext.WithActor(r.Context(), id.NewActorID(), role))
			}
			next.ServeHTTP(w, r)
		})
	})
	h.Register(router)
	return router
}

func doJSON(t *testing.T, router chi.Router, method, path, role string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createAccountPayload() map[string]any {
	return map[string]any{
		"type":            "individual",
		"currency":        "ETB",
		"initial_deposit": 1000,
		"profile": map[string]string{
			"full_name":    "Abebe Kebede",
			"gender":       "MALE",
			"birth_date":   "1990-04-12",
			"address":      "Addis Ababa",
			"phone_number": "+251911223344",
		},
	}
}

func TestCreateAccountViaHandler(t *testing.T) {
	router := newAccountRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/accounts", "account-creator", createAccountPayload())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating account, got %d: %s", rec.Code, rec.Body.String())
	}

	var created struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected account id in response")
	}
	if created.Status != "PENDING" {
		t.Fatalf("expected PENDING status, got %s", created.Status)
	}

	getRec := doJSON(t, router, http.MethodGet, "/accounts/"+created.ID.String(), "account-creator", nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching account, got %d", getRec.Code)
	}
}

func TestCreateAccountRequiresCreatorRole(t *testing.T) {
	router := newAccountRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/accounts", "account-approver", createAccountPayload())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for approver onboarding, got %d", rec.Code)
	}
}

func TestTransitionStatusMapping(t *testing.T) {
	router := newAccountRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/accounts", "account-creator", createAccountPayload())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	base := "/accounts/" + created.ID.String()

	cases := []struct {
		name    string
		role    string
		payload map[string]string
		status  int
	}{
		{"approver cannot authorize", "account-approver", map[string]string{"target_status": "AUTHORIZED"}, http.StatusForbidden},
		{"no graph edge", "account-approver", map[string]string{"target_status": "REGISTERED"}, http.StatusPreconditionFailed},
		{"unknown status", "account-creator", map[string]string{"target_status": "DORMANT"}, http.StatusBadRequest},
		{"creator authorizes", "account-creator", map[string]string{"target_status": "AUTHORIZED"}, http.StatusOK},
		{"rejection needs a reason", "account-approver", map[string]string{"target_status": "REJECTED"}, http.StatusBadRequest},
		{"settlement needs verification", "account-approver", map[string]string{"target_status": "UNSETTLED"}, http.StatusPreconditionFailed},
		{"approver approves", "account-approver", map[string]string{"target_status": "APPROVED"}, http.StatusOK},
		{"terminal replay", "account-approver", map[string]string{"target_status": "APPROVED"}, http.StatusPreconditionFailed},
	}
	for _, tc := range cases {
		rec := doJSON(t, router, http.MethodPost, base+"/transitions", tc.role, tc.payload)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, rec.Code, rec.Body.String())
		}
	}
}

func TestVerifyAccountViaHandler(t *testing.T) {
	router := newAccountRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/accounts", "account-creator", createAccountPayload())
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	kycRec := doJSON(t, router, http.MethodPost, "/accounts/"+created.ID.String()+"/verification", "kyc-reviewer", nil)
	if kycRec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for kyc reviewer verifying, got %d", kycRec.Code)
	}

	verifyRec := doJSON(t, router, http.MethodPost, "/accounts/"+created.ID.String()+"/verification", "account-approver", nil)
	if verifyRec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying account, got %d: %s", verifyRec.Code, verifyRec.Body.String())
	}
	var verified struct {
		AccountNumber string `json:"account_number"`
		CustomerID    string `json:"customer_id"`
	}
	if err := json.NewDecoder(verifyRec.Body).Decode(&verified); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if verified.AccountNumber == "" || verified.CustomerID == "" {
		t.Fatalf("expected account number and customer id to be assigned together, got %+v", verified)
	}
}

func TestGetUnknownAccount(t *testing.T) {
	router := newAccountRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/accounts/"+uuid.New().String(), "account-creator", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", rec.Code)
	}

	badRec := doJSON(t, router, http.MethodGet, "/accounts/not-a-uuid", "account-creator", nil)
	if badRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", badRec.Code)
	}
}
