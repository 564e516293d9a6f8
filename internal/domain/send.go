package domain

import (
	"errors"
	"strings"
	"time"
)

// Scenario classifies what kind of mail a send request carries. The warmup
// schedule and the unsubscribe check both branch on it.
type Scenario string

const (
	ScenarioTransactional Scenario = "transactional"
	ScenarioInvoice       Scenario = "invoice"
	ScenarioPromotional   Scenario = "promotional"
	ScenarioAIGenerated   Scenario = "ai_generated"
)

// Valid reports whether s is one of the known scenarios.
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioTransactional, ScenarioInvoice, ScenarioPromotional, ScenarioAIGenerated:
		return true
	}
	return false
}

// SendRequest is one fully rendered outbound message awaiting clearance.
// Rendering happens upstream; by the time a request reaches the pipeline the
// subject and body are final.
type SendRequest struct {
	Recipient       string    `json:"recipient"`
	TenantID        string    `json:"tenant_id"`
	Scenario        Scenario  `json:"scenario"`
	RenderedSubject string    `json:"rendered_subject"`
	RenderedHTML    string    `json:"rendered_html,omitempty"`
	RenderedText    string    `json:"rendered_text,omitempty"`
	AIGenerated     bool      `json:"ai_generated,omitempty"`
	RequestedAt     time.Time `json:"requested_at"`
}

// AIAuthored reports whether the content was machine-written, either via the
// explicit flag or the dedicated scenario.
func (r SendRequest) AIAuthored() bool {
	return r.AIGenerated || r.Scenario == ScenarioAIGenerated
}

// Validate checks the fields every pipeline stage relies on.
func (r SendRequest) Validate() error {
	if strings.TrimSpace(r.Recipient) == "" {
		return errors.New("recipient is required")
	}
	if !ValidEmail(r.Recipient) {
		return errors.New("recipient is not a valid email address")
	}
	if strings.TrimSpace(r.TenantID) == "" {
		return errors.New("tenant_id is required")
	}
	if !r.Scenario.Valid() {
		return errors.New("unknown scenario")
	}
	return nil
}

// ValidEmail applies the same cheap structural checks used at every ingestion
// point. It is deliberately not a full RFC 5322 parser.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	if strings.Count(email, "@") != 1 {
		return false
	}
	domainPart := email[at+1:]
	if !strings.Contains(domainPart, ".") {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	return true
}

// NormalizeEmail lowercases and trims an address so lookups and storage agree
// on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
