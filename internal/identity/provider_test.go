package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "bankops/pkg/domain-errors"
	"bankops/pkg/platform/circuit"
)

func TestProviderClientSendsRequests(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewProviderClient(server.URL, WithAPIKey("fayda-key"))
	ctx := context.Background()

	require.NoError(t, client.SendOTP(ctx, "+251911223344", "123456"))
	require.Equal(t, "/v1/otp/deliveries", gotPath)
	require.Equal(t, "fayda-key", gotKey)
	require.Equal(t, "123456", gotBody["code"])

	require.NoError(t, client.TriggerVerification(ctx, "+251911223344", "tok-1"))
	require.Equal(t, "/v1/verifications", gotPath)
	require.Equal(t, "tok-1", gotBody["correlation_token"])
}

func TestProviderClientErrorStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewProviderClient(server.URL)
	err := client.SendOTP(context.Background(), "+251911223344", "123456")
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestProviderClientCircuitOpensAndRecovers(t *testing.T) {
	healthy := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	breaker := circuit.New("identity-provider", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	client := NewProviderClient(server.URL, WithBreaker(breaker))
	ctx := context.Background()

	require.Error(t, client.SendOTP(ctx, "+251911223344", "123456"))
	require.Error(t, client.SendOTP(ctx, "+251911223344", "123456"))
	require.True(t, breaker.IsOpen())

	// While open, calls fail fast without reaching the provider.
	err := client.SendOTP(ctx, "+251911223344", "123456")
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	healthy = true
	breaker.Reset()
	require.NoError(t, client.SendOTP(ctx, "+251911223344", "123456"))
	require.False(t, breaker.IsOpen())
}
