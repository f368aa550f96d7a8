package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dErrors "bankops/pkg/domain-errors"
	"bankops/pkg/platform/circuit"
)

// ProviderClient is the outbound REST edge to the identity provider: OTP
// delivery to the holder's phone and the verification kickoff whose result
// arrives later over the push stream. Calls run behind a circuit breaker so
// a degraded provider fails fast instead of tying up request handlers.
type ProviderClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type ProviderOption func(c *ProviderClient)

func WithHTTPClient(client *http.Client) ProviderOption {
	return func(c *ProviderClient) { c.client = client }
}

func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(c *ProviderClient) { c.logger = logger }
}

func WithBreaker(breaker *circuit.Breaker) ProviderOption {
	return func(c *ProviderClient) { c.breaker = breaker }
}

// WithAPIKey attaches the provider API key to every outbound call.
func WithAPIKey(key string) ProviderOption {
	return func(c *ProviderClient) { c.apiKey = key }
}

// NewProviderClient constructs a client against the provider's base URL.
func NewProviderClient(baseURL string, opts ...ProviderOption) *ProviderClient {
	c := &ProviderClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: circuit.New("identity-provider"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendOTP asks the provider to deliver the code to the holder's phone.
func (c *ProviderClient) SendOTP(ctx context.Context, phoneNumber, code string) error {
	return c.post(ctx, "/v1/otp/deliveries", map[string]string{
		"phone_number": phoneNumber,
		"code":         code,
	})
}

// TriggerVerification asks the provider to verify the holder's identity. The
// correlation token travels out here and comes back on the push stream; it
// is the only link between the two legs.
func (c *ProviderClient) TriggerVerification(ctx context.Context, phoneNumber, correlationToken string) error {
	return c.post(ctx, "/v1/verifications", map[string]string{
		"phone_number":      phoneNumber,
		"correlation_token": correlationToken,
	})
}

func (c *ProviderClient) post(ctx context.Context, path string, payload map[string]string) error {
	if !c.breaker.Allow() {
		return dErrors.New(dErrors.CodeUnavailable, "identity provider is unavailable")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode provider request")
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build provider request")
	}
	request.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		request.Header.Set("X-API-Key", c.apiKey)
	}

	response, err := c.client.Do(request)
	if err != nil {
		c.recordFailure(ctx)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "identity provider call failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		c.recordFailure(ctx)
		return dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("identity provider returned status %d", response.StatusCode))
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed && c.logger != nil {
		c.logger.InfoContext(ctx, "identity provider circuit closed", "breaker", c.breaker.Name())
	}
	return nil
}

func (c *ProviderClient) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened && c.logger != nil {
		c.logger.WarnContext(ctx, "identity provider circuit opened", "breaker", c.breaker.Name())
	}
}
