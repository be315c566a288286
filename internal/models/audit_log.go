package models

import "time"

// Audit action codes. One entry is written per state transition and per
// security-relevant profile action.
const (
	ActionGatepassCreated  = "GATEPASS_CREATED"
	ActionGatepassEdited   = "GATEPASS_EDITED"
	ActionGatepassApproved = "GATEPASS_APPROVED"
	ActionGatepassVerified = "GATEPASS_VERIFIED"
	ActionGatepassDeclined = "GATEPASS_DECLINED"
	ActionUserLogin        = "USER_LOGIN"
	ActionPasswordChanged  = "PASSWORD_CHANGED"
	ActionTOTPEnabled      = "TOTP_ENABLED"
	ActionTOTPDisabled     = "TOTP_DISABLED"
	ActionUserCreated      = "USER_CREATED"
	ActionUserUpdated      = "USER_UPDATED"
)

// AuditLogEntry is append-only: never updated or deleted by the core.
type AuditLogEntry struct {
	ID         int       `json:"id" db:"id"`
	ActorID    int       `json:"actor_id" db:"actor_id"`
	ActionCode string    `json:"action_code" db:"action_code"`
	GatepassID *int      `json:"gatepass_id,omitempty" db:"gatepass_id"`
	Detail     string    `json:"detail" db:"detail"`
	IPAddress  *string   `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
