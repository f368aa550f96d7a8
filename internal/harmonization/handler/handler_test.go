package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	accountmodels "bankops/internal/account/models"
	accountservice "bankops/internal/account/service"
	accountstore "bankops/internal/account/store"
	"bankops/internal/harmonization/models"
	"bankops/internal/harmonization/otp"
	"bankops/internal/harmonization/service"
	"bankops/internal/harmonization/store"
	id "bankops/pkg/domain"
	"bankops/pkg/requestcontext"
)

// stubProvider keeps the last delivered code and token so tests can drive
// the flow the way the provider would.
type stubProvider struct {
	code  string
	token string
}

func (p *stubProvider) SendOTP(_ context.Context, _, code string) error {
	p.code = code
	return nil
}

func (p *stubProvider) TriggerVerification(_ context.Context, _, correlationToken string) error {
	p.token = correlationToken
	return nil
}

type harmonizationFixture struct {
	router   chi.Router
	service  *service.Service
	provider *stubProvider
	account  *accountmodels.Account
}

func newFixture(t *testing.T) *harmonizationFixture {
	t.Helper()
	accounts := accountservice.New(accountstore.NewInMemory())
	account, err := accounts.CreateAccount(context.Background(), accountservice.CreateParams{
		Type:     accountmodels.TypeIndividual,
		Currency: "ETB",
		Profile: accountmodels.Profile{
			FullName:    "Abebe Kebede",
			Gender:      "MALE",
			BirthDate:   "1990-04-12",
			Address:     "Addis Ababa",
			PhoneNumber: "+251911223344",
		},
	}, id.RoleAccountCreator)
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	provider := &stubProvider{}
	svc := service.New(
		store.NewInMemory(),
		accounts,
		otp.NewIssuer(otp.NewMemoryStore(), otp.DefaultTTL),
		service.WithProvider(provider),
	)
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

	return &harmonizationFixture{router: router, service: svc, provider: provider, account: account}
}

func (f *harmonizationFixture) do(t *testing.T, method, path, role string, payload any) *httptest.ResponseRecorder {
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
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *harmonizationFixture) initiate(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/harmonizations", "kyc-reviewer", map[string]string{
		"account_id":   f.account.ID.String(),
		"phone_number": "+251911223344",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 initiating, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return created.ID.String()
}

func TestInitiateViaHandler(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/harmonizations", "account-creator", map[string]string{
		"account_id":   f.account.ID.String(),
		"phone_number": "+251911223344",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-reviewer, got %d", rec.Code)
	}

	requestID := f.initiate(t)

	getRec := f.do(t, http.MethodGet, "/harmonizations/"+requestID, "kyc-reviewer", nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getRec.Code)
	}
	var fetched struct {
		Status      string `json:"status"`
		MaskedPhone string `json:"masked_phone"`
	}
	if err := json.NewDecoder(getRec.Body).Decode(&fetched); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if fetched.Status != "PENDING_OTP" {
		t.Fatalf("expected PENDING_OTP, got %s", fetched.Status)
	}
	if fetched.MaskedPhone != "+251*******44" {
		t.Fatalf("expected masked phone, got %s", fetched.MaskedPhone)
	}

	dupRec := f.do(t, http.MethodPost, "/harmonizations", "kyc-reviewer", map[string]string{
		"account_id":   f.account.ID.String(),
		"phone_number": "+251911223344",
	})
	if dupRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second in-flight request, got %d", dupRec.Code)
	}
}

func TestOTPStatusMapping(t *testing.T) {
	f := newFixture(t)
	requestID := f.initiate(t)

	wrongRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/otp", "kyc-reviewer", map[string]string{"code": "000000"})
	if wrongRec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for wrong code, got %d", wrongRec.Code)
	}

	rightRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/otp", "kyc-reviewer", map[string]string{"code": f.provider.code})
	if rightRec.Code != http.StatusOK {
		t.Fatalf("expected 200 for right code, got %d: %s", rightRec.Code, rightRec.Body.String())
	}

	replayRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/otp", "kyc-reviewer", map[string]string{"code": f.provider.code})
	if replayRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for replayed confirmation, got %d", replayRec.Code)
	}
}

func TestReviewViaHandler(t *testing.T) {
	f := newFixture(t)
	requestID := f.initiate(t)

	otpRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/otp", "kyc-reviewer", map[string]string{"code": f.provider.code})
	if otpRec.Code != http.StatusOK {
		t.Fatalf("expected 200 confirming otp, got %d", otpRec.Code)
	}

	// Simulate the provider push arriving over the channel.
	_, err := f.service.ReceiveExternalIdentity(context.Background(), f.provider.token, harmonizationPayload())
	if err != nil {
		t.Fatalf("failed to apply identity push: %v", err)
	}

	compRec := f.do(t, http.MethodGet, "/harmonizations/"+requestID+"/comparison", "kyc-reviewer", nil)
	if compRec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching comparison, got %d", compRec.Code)
	}
	var comparison struct {
		Fields []struct {
			Field string `json:"field"`
			Match bool   `json:"match"`
		} `json:"fields"`
	}
	if err := json.NewDecoder(compRec.Body).Decode(&comparison); err != nil {
		t.Fatalf("failed to decode comparison: %v", err)
	}
	if len(comparison.Fields) != 5 {
		t.Fatalf("expected 5 compared fields, got %d", len(comparison.Fields))
	}

	badRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/review", "kyc-reviewer", map[string]string{"decision": "ESCALATE"})
	if badRec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown decision, got %d", badRec.Code)
	}

	mergeRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/review", "kyc-reviewer", map[string]string{"decision": "MERGE"})
	if mergeRec.Code != http.StatusOK {
		t.Fatalf("expected 200 merging, got %d: %s", mergeRec.Code, mergeRec.Body.String())
	}
	var merged struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(mergeRec.Body).Decode(&merged); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if merged.Status != "MERGED" {
		t.Fatalf("expected MERGED, got %s", merged.Status)
	}

	replayRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/review", "kyc-reviewer", map[string]string{"decision": "MERGE"})
	if replayRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 replaying review, got %d", replayRec.Code)
	}
}

func TestCancelViaHandler(t *testing.T) {
	f := newFixture(t)
	requestID := f.initiate(t)

	cancelRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/cancel", "kyc-reviewer", nil)
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("expected 200 cancelling, got %d", cancelRec.Code)
	}

	againRec := f.do(t, http.MethodPost, "/harmonizations/"+requestID+"/cancel", "kyc-reviewer", nil)
	if againRec.Code != http.StatusConflict {
		t.Fatalf("expected 409 cancelling a terminal request, got %d", againRec.Code)
	}
}

func harmonizationPayload() models.FaydaIdentity {
	return models.FaydaIdentity{
		FullName:    "Abebe Kebede",
		Gender:      "male",
		BirthDate:   "1990-04-12",
		Address:     "Bole, Addis Ababa",
		PhoneNumber: "+251911223344",
	}
}
