package domain

import "time"

// RiskLevel is the AI safety classification of machine-authored content.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RequiresApproval reports whether content at this level must be held for a
// human decision before it may leave the system.
func (r RiskLevel) RequiresApproval() bool {
	return r == RiskHigh || r == RiskCritical
}

// ApprovalStatus is the lifecycle state of a held AI send.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRequest parks a risky AI-authored send until a reviewer decides.
// The full SendRequest payload is persisted so dispatch can resume after
// approval without re-running the earlier pipeline stages.
//
// Status moves pending -> approved or pending -> rejected exactly once.
// ResumedAt is stamped when an approved request is dispatched; it is the
// claim that guarantees a request is sent at most once.
type ApprovalRequest struct {
	ID        string         `json:"id" db:"id"`
	Request   SendRequest    `json:"request" db:"request"`
	RiskLevel RiskLevel      `json:"risk_level" db:"risk_level"`
	Status    ApprovalStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	DecidedAt *time.Time     `json:"decided_at,omitempty" db:"decided_at"`
	DecidedBy string         `json:"decided_by,omitempty" db:"decided_by"`
	ResumedAt *time.Time     `json:"resumed_at,omitempty" db:"resumed_at"`
}
