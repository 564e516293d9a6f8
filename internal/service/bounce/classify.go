package bounce

import (
	"strings"

	"github.com/ignite/mailguard/internal/domain"
)

// SMTP reply codes that indicate a permanent delivery failure.
var hardCodes = map[int]bool{550: true, 551: true, 553: true, 554: true}

// SMTP reply codes that indicate a transient delivery failure.
var softCodes = map[int]bool{421: true, 450: true, 451: true, 452: true}

// spamFilterSignatures identify a 554 rejection as a content or reputation
// block rather than a plain bad-mailbox failure. Matched case-insensitively
// as substrings of the SMTP reply text.
var spamFilterSignatures = []string{
	"spamhaus",
	"spamcop",
	"barracuda",
	"proofpoint",
	"spam detected",
	"detected as spam",
	"message rejected due to spam",
	"content rejected",
	"blocked using",
	"listed in",
	"dnsbl",
	"blacklist",
}

// Classify maps an SMTP reply to a bounce type. A 554 reply carrying a spam
// filter signature classifies as a block, which still counts toward the
// blacklist threshold. Unknown 5xx codes are treated as hard, everything
// else as soft.
func Classify(smtpCode int, smtpMessage string) domain.BounceType {
	if smtpCode == 554 && hasSpamSignature(smtpMessage) {
		return domain.BounceBlock
	}
	if hardCodes[smtpCode] {
		return domain.BounceHard
	}
	if softCodes[smtpCode] {
		return domain.BounceSoft
	}
	if smtpCode >= 500 {
		return domain.BounceHard
	}
	return domain.BounceSoft
}

func hasSpamSignature(msg string) bool {
	msg = strings.ToLower(msg)
	for _, sig := range spamFilterSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
