package domain

import "time"

// BounceType is the normalized classification of an SMTP delivery failure.
type BounceType string

const (
	// BounceHard is a permanent failure (bad mailbox, policy reject).
	BounceHard BounceType = "hard"
	// BounceSoft is a transient failure (greylisting, full mailbox, throttling).
	BounceSoft BounceType = "soft"
	// BounceBlock is a 554 carrying a spam-filter signature. It counts against
	// the recipient like a hard bounce but is kept distinct for reporting.
	BounceBlock BounceType = "block"
)

// CountsAsHard reports whether the bounce increments the blacklist counter.
func (t BounceType) CountsAsHard() bool {
	return t == BounceHard || t == BounceBlock
}

// BounceRecord is the per-recipient, per-tenant delivery-failure ledger entry.
// BounceCount only ever grows; Blacklisted flips on automatically at the
// threshold and is cleared only by an explicit operator action.
type BounceRecord struct {
	Recipient     string     `json:"recipient" db:"recipient"`
	TenantID      string     `json:"tenant_id" db:"tenant_id"`
	BounceType    BounceType `json:"bounce_type" db:"bounce_type"`
	SMTPCode      int        `json:"smtp_code" db:"smtp_code"`
	BounceCount   int        `json:"bounce_count" db:"bounce_count"`
	FirstBounceAt time.Time  `json:"first_bounce_at" db:"first_bounce_at"`
	LastBounceAt  time.Time  `json:"last_bounce_at" db:"last_bounce_at"`
	Blacklisted   bool       `json:"blacklisted" db:"blacklisted"`
}
