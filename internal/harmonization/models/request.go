// Package models holds the identity-harmonization aggregate: a request that
// reconciles an account's self-reported identity with the external national
// ID ("Fayda") source.
package models

import (
	"strings"
	"time"

	id "bankops/pkg/domain"
	dErrors "bankops/pkg/domain-errors"
)

// Status is the harmonization sub-state. Strictly ordered except for the two
// terminal exits:
//
//	PENDING_OTP → OTP_VERIFIED → FAYDA_DATA_RECEIVED → PENDING_KYC_REVIEW → {MERGED | REJECTED}
//
// with CANCELLED reachable from any non-terminal state. The
// FAYDA_DATA_RECEIVED → PENDING_KYC_REVIEW step has no human action in
// between, so the engine applies both as one atomic transition.
type Status string

const (
	StatusPendingOTP       Status = "PENDING_OTP"
	StatusOTPVerified      Status = "OTP_VERIFIED"
	StatusFaydaReceived    Status = "FAYDA_DATA_RECEIVED"
	StatusPendingKYCReview Status = "PENDING_KYC_REVIEW"
	StatusMerged           Status = "MERGED"
	StatusRejected         Status = "REJECTED"
	StatusCancelled        Status = "CANCELLED"
)

// IsTerminal reports whether no further field writes are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusMerged || s == StatusRejected || s == StatusCancelled
}

// Decision is the reviewer's verdict on a PENDING_KYC_REVIEW request.
type Decision string

const (
	DecisionMerge  Decision = "MERGE"
	DecisionReject Decision = "REJECT"
)

// ParseDecision constructs a Decision from external input.
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	if d != DecisionMerge && d != DecisionReject {
		return "", dErrors.Newf(dErrors.CodeInvalidArgument, "unknown review decision %q", s)
	}
	return d, nil
}

// FaydaIdentity is the subject payload pushed by the external identity
// provider after a successful verification.
type FaydaIdentity struct {
	FullName    string `json:"full_name"`
	Gender      string `json:"gender"`
	BirthDate   string `json:"birth_date"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// Review records the terminal human decision.
type Review struct {
	Decision        Decision  `json:"decision"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	ReviewerID      string    `json:"reviewer_id,omitempty"`
	ReviewedAt      time.Time `json:"reviewed_at"`
}

// Request is the harmonization aggregate.
//
// Invariants:
//   - Fayda is present iff the identity push was received (status
//     FAYDA_DATA_RECEIVED or later; a request cancelled before receipt
//     carries none)
//   - Review is present iff status is MERGED or REJECTED
//   - After a terminal status no field is ever written again
type Request struct {
	ID               id.HarmonizationID `json:"id"`
	AccountID        id.AccountID       `json:"account_id"`
	PhoneNumber      string             `json:"-"` // never serialized; display uses MaskedPhone
	MaskedPhone      string             `json:"masked_phone"`
	CorrelationToken string             `json:"-"`
	Status           Status             `json:"status"`
	Fayda            *FaydaIdentity     `json:"fayda_data,omitempty"`
	Review           *Review            `json:"review,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewRequest constructs a PENDING_OTP request with its correlation token.
func NewRequest(requestID id.HarmonizationID, accountID id.AccountID, phoneNumber, correlationToken string, now time.Time) (*Request, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if len(phoneNumber) < 9 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "phone number is required")
	}
	if correlationToken == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "correlation token is required")
	}
	return &Request{
		ID:               requestID,
		AccountID:        accountID,
		PhoneNumber:      phoneNumber,
		MaskedPhone:      MaskPhone(phoneNumber),
		CorrelationToken: correlationToken,
		Status:           StatusPendingOTP,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// MaskPhone hides all but the leading country/area prefix and the last two
// digits, the shape the review UI displays.
func MaskPhone(phone string) string {
	runes := []rune(phone)
	if len(runes) <= 6 {
		return strings.Repeat("*", len(runes))
	}
	head := runes[:4]
	tail := runes[len(runes)-2:]
	return string(head) + strings.Repeat("*", len(runes)-6) + string(tail)
}

// CanVerifyOTP gates the OTP confirmation step.
func (r *Request) CanVerifyOTP() error {
	switch {
	case r.Status == StatusPendingOTP:
		return nil
	case r.Status.IsTerminal():
		return dErrors.Newf(dErrors.CodeConflict, "request is already %s", r.Status)
	default:
		return dErrors.New(dErrors.CodeConflict, "otp was already confirmed")
	}
}

// ApplyOTPVerified marks the phone number as proven.
func (r *Request) ApplyOTPVerified(now time.Time) {
	r.Status = StatusOTPVerified
	r.UpdatedAt = now
}

// CanReceiveIdentity gates the external push. Tokens for requests that moved
// past OTP_VERIFIED were already consumed; anything terminal (including a
// cancellation racing the push) conflicts rather than crashes.
func (r *Request) CanReceiveIdentity() error {
	switch r.Status {
	case StatusOTPVerified:
		return nil
	case StatusPendingOTP:
		return dErrors.New(dErrors.CodeConflict, "otp has not been confirmed for this request")
	default:
		return dErrors.Newf(dErrors.CodeConflict, "correlation token already consumed (request is %s)", r.Status)
	}
}

// ApplyIdentity attaches the external payload and lands in
// PENDING_KYC_REVIEW. Data receipt and review queueing are one atomic step.
func (r *Request) ApplyIdentity(payload FaydaIdentity, now time.Time) {
	r.Fayda = &payload
	r.Status = StatusPendingKYCReview
	r.UpdatedAt = now
}

// CanReview gates the terminal human decision.
func (r *Request) CanReview() error {
	switch {
	case r.Status == StatusPendingKYCReview:
		return nil
	case r.Status.IsTerminal():
		return dErrors.Newf(dErrors.CodeConflict, "request is already %s", r.Status)
	default:
		return dErrors.Newf(dErrors.CodeConflict, "request is not ready for review (status %s)", r.Status)
	}
}

// ApplyReview records the decision and moves to the matching terminal state.
func (r *Request) ApplyReview(review Review, now time.Time) {
	review.ReviewedAt = now
	r.Review = &review
	if review.Decision == DecisionMerge {
		r.Status = StatusMerged
	} else {
		r.Status = StatusRejected
	}
	r.UpdatedAt = now
}

// CanCancel gates explicit cancellation: any non-terminal state may cancel.
func (r *Request) CanCancel() error {
	if r.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeConflict, "request is already %s", r.Status)
	}
	return nil
}

// ApplyCancel terminates the request without a decision.
func (r *Request) ApplyCancel(now time.Time) {
	r.Status = StatusCancelled
	r.UpdatedAt = now
}

// Validate checks the structural invariants. Stores call this on write.
func (r *Request) Validate() error {
	switch r.Status {
	case StatusPendingOTP, StatusOTPVerified:
		if r.Fayda != nil {
			return dErrors.New(dErrors.CodePreconditionFailed,
				"identity payload cannot precede FAYDA_DATA_RECEIVED")
		}
	case StatusFaydaReceived, StatusPendingKYCReview, StatusMerged, StatusRejected:
		if r.Fayda == nil {
			return dErrors.Newf(dErrors.CodePreconditionFailed,
				"identity payload is required in status %s", r.Status)
		}
	}
	if reviewed := r.Review != nil; reviewed != (r.Status == StatusMerged || r.Status == StatusRejected) {
		return dErrors.New(dErrors.CodePreconditionFailed,
			"review is present iff status is MERGED or REJECTED")
	}
	return nil
}
