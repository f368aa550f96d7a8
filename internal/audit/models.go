package audit

import (
	"context"
	"time"
)

// Action names the workflow events worth an audit trail. Maker-checker
// operations in a bank back office are audited without exception.
type Action string

const (
	ActionAccountCreated        Action = "account.created"
	ActionAccountTransitioned   Action = "account.transitioned"
	ActionAccountVerified       Action = "account.verified"
	ActionHarmonizationStarted  Action = "harmonization.initiated"
	ActionHarmonizationOTP      Action = "harmonization.otp_confirmed"
	ActionHarmonizationReceived Action = "harmonization.identity_received"
	ActionHarmonizationMerged   Action = "harmonization.merged"
	ActionHarmonizationRejected Action = "harmonization.rejected"
	ActionHarmonizationCanceled Action = "harmonization.cancelled"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	ActorID   string    `json:"actor_id,omitempty"`
	Role      string    `json:"role,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Store is an append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
