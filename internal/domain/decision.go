package domain

import "time"

// Outcome is the terminal disposition of a pipeline evaluation.
type Outcome string

const (
	OutcomeAllowed         Outcome = "allowed"
	OutcomeRejected        Outcome = "rejected"
	OutcomePendingApproval Outcome = "pending_approval"
)

// ReasonCode names the pipeline stage (or success path) that produced the
// outcome. Codes are stable identifiers consumed by the audit feed.
type ReasonCode string

const (
	ReasonAllowed                ReasonCode = "ALLOWED"
	ReasonBlacklisted            ReasonCode = "BLACKLISTED"
	ReasonRateLimited            ReasonCode = "RATE_LIMITED"
	ReasonUnsubscribed           ReasonCode = "UNSUBSCRIBED"
	ReasonSpamRejected           ReasonCode = "SPAM_REJECTED"
	ReasonAIBlocked              ReasonCode = "AI_BLOCKED"
	ReasonAIApprovalRequired     ReasonCode = "AI_APPROVAL_REQUIRED"
	ReasonDKIMKeyMissing         ReasonCode = "DKIM_KEY_MISSING"
	ReasonDKIMVerificationFailed ReasonCode = "DKIM_VERIFICATION_FAILED"
	ReasonTransportFailed        ReasonCode = "TRANSPORT_FAILED"
)

// SendDecision is the audit record written for every terminal outcome,
// exactly one per evaluation or resume. ArchivedAt is stamped once the row
// has been shipped to cold storage.
type SendDecision struct {
	ID                string     `json:"id" db:"id"`
	Recipient         string     `json:"recipient" db:"recipient"`
	TenantID          string     `json:"tenant_id" db:"tenant_id"`
	Scenario          Scenario   `json:"scenario" db:"scenario"`
	Outcome           Outcome    `json:"outcome" db:"outcome"`
	ReasonCode        ReasonCode `json:"reason_code" db:"reason_code"`
	RetryAfterSeconds int64      `json:"retry_after_seconds,omitempty" db:"retry_after_seconds"`
	SpamScore         int        `json:"spam_score,omitempty" db:"spam_score"`
	SpamRules         []string   `json:"spam_rules,omitempty" db:"spam_rules"`
	RiskLevel         RiskLevel  `json:"risk_level,omitempty" db:"risk_level"`
	BlockedPattern    string     `json:"blocked_pattern,omitempty" db:"blocked_pattern"`
	ApprovalID        string     `json:"approval_id,omitempty" db:"approval_id"`
	DKIMSigned        bool       `json:"dkim_signed" db:"dkim_signed"`
	MessageID         string     `json:"message_id,omitempty" db:"message_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	ArchivedAt        *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// Allowed reports whether the decision lets the message leave, counting the
// degraded unsigned path as allowed.
func (d SendDecision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}
