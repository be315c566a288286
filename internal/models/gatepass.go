package models

import "time"

// Status is the closed set of gatepass workflow states. No other value is
// ever written to or read from the store.
type Status string

const (
	StatusPending            Status = "pending"
	StatusApprovedByAdmin    Status = "approved_by_admin"
	StatusSelfApproved       Status = "self_approved"
	StatusApprovedBySecurity Status = "approved_by_security"
	StatusDeclined           Status = "declined"
)

// AllStatuses lists every valid status value.
var AllStatuses = []Status{
	StatusPending,
	StatusApprovedByAdmin,
	StatusSelfApproved,
	StatusApprovedBySecurity,
	StatusDeclined,
}

// Valid reports whether s is one of the defined workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApprovedByAdmin, StatusSelfApproved,
		StatusApprovedBySecurity, StatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusApprovedBySecurity || s == StatusDeclined
}

// AwaitingSecurity reports whether a gatepass in this state sits in the
// security verification queue. self_approved is a legacy pre-verification
// state kept distinct from approved_by_admin; both satisfy this predicate.
func (s Status) AwaitingSecurity() bool {
	return s == StatusApprovedByAdmin || s == StatusSelfApproved
}

// AwaitingSecurityStatuses are the states accepted as the precondition of
// security_verify and security_decline.
var AwaitingSecurityStatuses = []Status{StatusApprovedByAdmin, StatusSelfApproved}

type Gatepass struct {
	ID                  int        `json:"id" db:"id"`
	GatepassNumber      string     `json:"gatepass_number" db:"gatepass_number"`
	FromLocation        string     `json:"from_location" db:"from_location"`
	ToLocation          string     `json:"to_location" db:"to_location"`
	MaterialType        string     `json:"material_type" db:"material_type"`
	Purpose             *string    `json:"purpose,omitempty" db:"purpose"`
	RequestedDate       time.Time  `json:"requested_date" db:"requested_date"`
	RequestedTime       string     `json:"requested_time" db:"requested_time"`
	Status              Status     `json:"status" db:"status"`
	CreatedBy           int        `json:"created_by" db:"created_by"`
	AdminApprovedBy     *int       `json:"admin_approved_by,omitempty" db:"admin_approved_by"`
	AdminApprovedAt     *time.Time `json:"admin_approved_at,omitempty" db:"admin_approved_at"`
	SecurityApprovedBy  *int       `json:"security_approved_by,omitempty" db:"security_approved_by"`
	SecurityApprovedAt  *time.Time `json:"security_approved_at,omitempty" db:"security_approved_at"`
	DeclinedBy          *int       `json:"declined_by,omitempty" db:"declined_by"`
	DeclinedAt          *time.Time `json:"declined_at,omitempty" db:"declined_at"`
	DeclineReason       *string    `json:"decline_reason,omitempty" db:"decline_reason"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`

	// Items is populated on single-record reads, not on list views.
	Items []GatepassItem `json:"items,omitempty"`
}

type GatepassItem struct {
	ID         int     `json:"id" db:"id"`
	GatepassID int     `json:"gatepass_id" db:"gatepass_id"`
	ItemName   string  `json:"item_name" db:"item_name"`
	Quantity   float64 `json:"quantity" db:"quantity"`
	Unit       string  `json:"unit" db:"unit"`
}

// CreateGatepassRequest is the request body for creating a gatepass.
type CreateGatepassRequest struct {
	FromLocation  string             `json:"from_location"`
	ToLocation    string             `json:"to_location"`
	MaterialType  string             `json:"material_type"`
	Purpose       string             `json:"purpose"`
	RequestedDate string             `json:"requested_date"` // YYYY-MM-DD
	RequestedTime string             `json:"requested_time"` // HH:MM
	Items         []GatepassItemInput `json:"items"`
}

// GatepassItemInput is one item line in a create or edit request.
type GatepassItemInput struct {
	ItemName string  `json:"item_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// UpdateGatepassRequest is the request body for editing a pending gatepass.
// The item set replaces the existing one wholesale.
type UpdateGatepassRequest struct {
	FromLocation  string              `json:"from_location"`
	ToLocation    string              `json:"to_location"`
	MaterialType  string              `json:"material_type"`
	Purpose       string              `json:"purpose"`
	RequestedDate string              `json:"requested_date"`
	RequestedTime string              `json:"requested_time"`
	Items         []GatepassItemInput `json:"items"`
}

// DeclineGatepassRequest carries the mandatory reason for a decline.
type DeclineGatepassRequest struct {
	Reason string `json:"reason"`
}

// StatusCounts is the admin dashboard projection.
type StatusCounts struct {
	Pending            int `json:"pending"`
	AwaitingSecurity   int `json:"awaiting_security"`
	ApprovedBySecurity int `json:"approved_by_security"`
	Declined           int `json:"declined"`
	Total              int `json:"total"`
}

// GatepassFilter narrows list views. Zero values mean "no filter".
type GatepassFilter struct {
	Bucket   string // "pending", "approved", "declined" (user view)
	Search   string // matched against number, locations, material (security view)
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int // 1-based
}

// PageSize is the fixed page size of every list view.
const PageSize = 20

// PagedGatepasses is a single page of a list view plus the total row count.
type PagedGatepasses struct {
	Gatepasses []Gatepass `json:"gatepasses"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
