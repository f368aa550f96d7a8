package handler

import (
	"strings"

	"bankops/internal/account/models"
	dErrors "bankops/pkg/domain-errors"
)

// CreateAccountRequest is the HTTP request body for POST /accounts.
type CreateAccountRequest struct {
	Type           string `json:"type"`
	Currency       string `json:"currency"`
	InitialDeposit int64  `json:"initial_deposit"`
	Profile        struct {
		FullName    string `json:"full_name"`
		Gender      string `json:"gender"`
		BirthDate   string `json:"birth_date"`
		Address     string `json:"address"`
		PhoneNumber string `json:"phone_number"`
	} `json:"profile"`

	parsedType models.AccountType
}

// Validate validates and parses the request.
func (r *CreateAccountRequest) Validate() error {
	typ, err := models.ParseAccountType(strings.TrimSpace(r.Type))
	if err != nil {
		return err
	}
	r.parsedType = typ

	if strings.TrimSpace(r.Profile.FullName) == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "profile.full_name is required")
	}
	return nil
}

func (r *CreateAccountRequest) ParsedType() models.AccountType { return r.parsedType }

// ParsedProfile returns the profile as the domain type.
func (r *CreateAccountRequest) ParsedProfile() models.Profile {
	return models.Profile{
		FullName:    strings.TrimSpace(r.Profile.FullName),
		Gender:      strings.TrimSpace(r.Profile.Gender),
		BirthDate:   strings.TrimSpace(r.Profile.BirthDate),
		Address:     strings.TrimSpace(r.Profile.Address),
		PhoneNumber: strings.TrimSpace(r.Profile.PhoneNumber),
	}
}

// TransitionRequest is the HTTP request body for POST /accounts/{id}/transitions.
type TransitionRequest struct {
	TargetStatus    string `json:"target_status"`
	RejectionReason string `json:"rejection_reason"`

	parsedTarget models.AccountStatus
}

// Validate validates and parses the request.
func (r *TransitionRequest) Validate() error {
	target, err := models.ParseAccountStatus(strings.TrimSpace(r.TargetStatus))
	if err != nil {
		return err
	}
	r.parsedTarget = target
	return nil
}

func (r *TransitionRequest) ParsedTarget() models.AccountStatus { return r.parsedTarget }
