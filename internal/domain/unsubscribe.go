package domain

import "time"

// UnsubscribeRecord captures one redeemed opt-out token. Records are
// append-only: they are never mutated, only created on redemption and removed
// by an explicit administrative action.
//
// A nil Scenario means the recipient opted out of every scenario for the
// tenant, not just the one the token was minted for.
type UnsubscribeRecord struct {
	ID             string    `json:"id" db:"id"`
	Recipient      string    `json:"recipient" db:"recipient"`
	TenantID       string    `json:"tenant_id" db:"tenant_id"`
	Scenario       *Scenario `json:"scenario,omitempty" db:"scenario"`
	UnsubscribedAt time.Time `json:"unsubscribed_at" db:"unsubscribed_at"`
	Token          string    `json:"-" db:"token"`
	SourceIP       string    `json:"source_ip,omitempty" db:"source_ip"`
	UserAgent      string    `json:"user_agent,omitempty" db:"user_agent"`
}
