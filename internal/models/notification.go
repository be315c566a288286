package models

import "time"

// Notification event types fired by the workflow on each transition.
const (
	EventNewGatepass      = "new_gatepass"
	EventGatepassApproved = "gatepass_approved"
	EventGatepassVerified = "gatepass_verified"
	EventGatepassDeclined = "gatepass_declined"
)

// Notification is the in-app channel row. Outbound channels (SMS, WhatsApp)
// are logged in message_logs by the senders themselves.
type Notification struct {
	ID             int       `json:"id" db:"id"`
	UserID         int       `json:"user_id" db:"user_id"`
	EventType      string    `json:"event_type" db:"event_type"`
	GatepassID     int       `json:"gatepass_id" db:"gatepass_id"`
	GatepassNumber string    `json:"gatepass_number" db:"gatepass_number"`
	Message        string    `json:"message" db:"message"`
	IsRead         bool      `json:"is_read" db:"is_read"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Outbound message delivery states.
const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

// MessageLog records one outbound delivery attempt on any channel.
type MessageLog struct {
	ID           int       `json:"id" db:"id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Phone        string    `json:"phone" db:"phone"`
	Channel      string    `json:"channel" db:"channel"` // "sms" or "whatsapp"
	EventType    string    `json:"event_type" db:"event_type"`
	Message      string    `json:"message" db:"message"`
	Status       string    `json:"status" db:"status"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
