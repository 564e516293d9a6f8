package aigate

import (
	"regexp"
	"strings"
)

// Blocked-pattern identifiers recorded on AI_BLOCKED decisions.
const (
	PatternShortenerLink  = "url_shortener_link"
	PatternFinancialOffer = "financial_offer"
)

// financialOfferPhrases catch machine-written money hooks. Matching is
// case-insensitive substring over the combined visible content.
var financialOfferPhrases = []string{
	"guaranteed return",
	"guaranteed profit",
	"investment opportunity",
	"double your money",
	"risk-free investment",
	"wire transfer",
	"cash prize",
	"you have won",
	"claim your prize",
	"lottery",
	"crypto giveaway",
	"exclusive offer expires",
	"limited financial offer",
	"refinance now",
	"pre-approved loan",
}

// moneyFigureRe pairs a currency amount with an offer verb nearby, e.g.
// "send $5,000" or "receive €900".
var moneyFigureRe = regexp.MustCompile(`(?i)(send|receive|claim|win|earn)\s+[$€£]\s?\d[\d,.]*`)

// attachmentPhrases flag references to attachments, which the pipeline never
// sends; in machine-written mail they are a hallucination or a lure.
var attachmentPhrases = []string{
	"see attached",
	"see the attachment",
	"attached file",
	"attached document",
	"open the attachment",
	"attachment below",
	"find attached",
	"enclosed file",
}

// urgencyPhrases push the reader to act before thinking.
var urgencyPhrases = []string{
	"act now",
	"act immediately",
	"urgent",
	"right away",
	"expires today",
	"expires soon",
	"final notice",
	"last chance",
	"don't delay",
	"immediate action required",
	"within 24 hours",
}

func matchPhrase(content string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if strings.Contains(content, p) {
			return p, true
		}
	}
	return "", false
}

// financialOffer reports the first financial hook found in content.
func financialOffer(content string) (string, bool) {
	if phrase, ok := matchPhrase(content, financialOfferPhrases); ok {
		return phrase, true
	}
	if m := moneyFigureRe.FindString(content); m != "" {
		return m, true
	}
	return "", false
}

// attachmentReference reports the first attachment mention found in content.
func attachmentReference(content string) (string, bool) {
	return matchPhrase(content, attachmentPhrases)
}

// urgencyKeyword reports the first urgency push found in content.
func urgencyKeyword(content string) (string, bool) {
	return matchPhrase(content, urgencyPhrases)
}
