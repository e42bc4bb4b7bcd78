package security

import (
	"time"

	"github.com/FACorreiaa/tournament-auth/internal/audit"
)

// ValidateTokenRequest asks whether a token is valid and carries a role.
type ValidateTokenRequest struct {
	Token string `json:"token"`
	Role  string `json:"role" example:"COACH"`
}

// ValidateTokenResponse reports the verified subject of a token.
type ValidateTokenResponse struct {
	Valid     bool      `json:"valid"`
	Username  string    `json:"username,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// AuthorizeRequest is a role/operation/resource triple.
type AuthorizeRequest struct {
	Role      string `json:"role" example:"COACH"`
	Operation string `json:"operation" example:"MANAGE_PLAYERS"`
	Resource  string `json:"resource" example:"teams/portugal"`
}

// AuthorizeResponse carries the decision for an AuthorizeRequest.
type AuthorizeResponse struct {
	Allowed   bool   `json:"allowed"`
	Role      string `json:"role"`
	Operation string `json:"operation"`
	Resource  string `json:"resource"`
}

// SealRequest carries a value to encrypt or decrypt.
type SealRequest struct {
	Data string `json:"data"`
}

// SealResponse carries the result of an encrypt or decrypt call.
type SealResponse struct {
	Data string `json:"data"`
}

// ValidateInputRequest is checked against the format named by Type.
type ValidateInputRequest struct {
	Input string `json:"input"`
	Type  string `json:"type" example:"EMAIL"`
}

// LogEventRequest records a caller-supplied audit event.
type LogEventRequest struct {
	EventType   string `json:"event_type" example:"SUSPICIOUS_ACTIVITY"`
	Severity    string `json:"severity" example:"HIGH"`
	Resource    string `json:"resource,omitempty"`
	Description string `json:"description"`
}

// AuditEventsResponse lists recent audit events, newest first.
type AuditEventsResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}
