// Package otp issues and confirms the one-time passwords proving control of
// a phone number before an external identity lookup proceeds. Codes are
// stored bcrypt-hashed with a bounded validity window; confirmation after
// expiry fails without mutating any state.
package otp

import (
	"context"
	"errors"
	"time"

	id "bankops/pkg/domain"
	dErrors "bankops/pkg/domain-errors"
	"bankops/pkg/platform/sentinel"
	"bankops/pkg/requestcontext"
	"bankops/pkg/secrets"
)

// DefaultTTL is the OTP validity window when config does not override it.
const DefaultTTL = 5 * time.Minute

// Issued is the at-rest record for one code.
type Issued struct {
	Hash      string    `json:"hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists issued codes keyed by harmonization request.
type Store interface {
	Save(ctx context.Context, requestID id.HarmonizationID, issued Issued) error
	Get(ctx context.Context, requestID id.HarmonizationID) (Issued, error)
	Delete(ctx context.Context, requestID id.HarmonizationID) error
}

// Issuer generates, stores, and confirms codes.
type Issuer struct {
	store Store
	ttl   time.Duration
}

func NewIssuer(store Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{store: store, ttl: ttl}
}

// Issue generates a fresh code for the request and returns the cleartext,
// which travels only to the account holder's phone. Re-issuing replaces any
// previous code.
func (i *Issuer) Issue(ctx context.Context, requestID id.HarmonizationID) (string, error) {
	code, err := secrets.GenerateOTP()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate otp")
	}
	hash, err := secrets.Hash(code)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash otp")
	}
	issued := Issued{Hash: hash, ExpiresAt: requestcontext.Now(ctx).Add(i.ttl)}
	if err := i.store.Save(ctx, requestID, issued); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store otp")
	}
	return code, nil
}

// Confirm checks the submitted code. The code is consumed only on success;
// wrong submissions are retryable until the window closes.
func (i *Issuer) Confirm(ctx context.Context, requestID id.HarmonizationID, submitted string) error {
	issued, err := i.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The backing store evicted the record: the window closed long ago.
			return dErrors.New(dErrors.CodeExpired, "otp has expired")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load otp")
	}
	if requestcontext.Now(ctx).After(issued.ExpiresAt) {
		return dErrors.New(dErrors.CodeExpired, "otp has expired")
	}
	if err := secrets.Verify(submitted, issued.Hash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidOTP) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify otp")
	}
	if err := i.store.Delete(ctx, requestID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume otp")
	}
	return nil
}
