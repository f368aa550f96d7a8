package handler

import (
	"strings"

	"bankops/internal/harmonization/models"
	id "bankops/pkg/domain"
	dErrors "bankops/pkg/domain-errors"
)

// InitiateRequest is the HTTP request body for POST /harmonizations.
type InitiateRequest struct {
	AccountID   string `json:"account_id"`
	PhoneNumber string `json:"phone_number"`

	parsedAccountID id.AccountID
}

// Validate validates and parses the request.
func (r *InitiateRequest) Validate() error {
	accountID, err := id.ParseAccountID(strings.TrimSpace(r.AccountID))
	if err != nil {
		return err
	}
	r.parsedAccountID = accountID

	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	if r.PhoneNumber == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "phone_number is required")
	}
	return nil
}

func (r *InitiateRequest) ParsedAccountID() id.AccountID { return r.parsedAccountID }

// ConfirmOTPRequest is the HTTP request body for POST /harmonizations/{id}/otp.
type ConfirmOTPRequest struct {
	Code string `json:"code"`
}

// Validate validates the request.
func (r *ConfirmOTPRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "code is required")
	}
	return nil
}

// ReviewRequest is the HTTP request body for POST /harmonizations/{id}/review.
type ReviewRequest struct {
	Decision        string `json:"decision"`
	RejectionReason string `json:"rejection_reason"`

	parsedDecision models.Decision
}

// Validate validates and parses the request.
func (r *ReviewRequest) Validate() error {
	decision, err := models.ParseDecision(strings.TrimSpace(r.Decision))
	if err != nil {
		return err
	}
	r.parsedDecision = decision
	return nil
}

func (r *ReviewRequest) ParsedDecision() models.Decision { return r.parsedDecision }
