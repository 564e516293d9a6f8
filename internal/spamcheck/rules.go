// Package spamcheck scores rendered content against a fixed, deterministic
// rule set before it is allowed to leave the system. Same subject and body
// in, same score out; there is no network, no clock, no state.
package spamcheck

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Rule identifiers reported on every SendDecision, stable for dashboards.
const (
	RuleTriggerWords      = "trigger_words"
	RuleCapsSubject       = "caps_subject"
	RuleExcessPunctuation = "excess_punctuation"
	RuleHTMLTextRatio     = "html_text_ratio"
	RuleLinkCount         = "link_count"
	RuleImageOnlyBody     = "image_only_body"
	RuleShortenerLink     = "shortener_link"
)

// RejectThreshold is the score at or above which content is rejected.
const RejectThreshold = 10

// triggerWords is the locale-mixed keyword list. Matching is case-insensitive
// substring; each distinct word counts once per message.
var triggerWords = []string{
	// Money/finance (en)
	"free", "winner", "cash", "money", "credit", "debt", "loan",
	"earn", "income", "profit", "investment", "wealthy", "rich",
	"million", "billion", "fortune", "jackpot", "prize", "bonus",
	"discount", "cheap", "bargain", "deal",

	// Urgency (en)
	"urgent", "act now", "limited time", "expires", "hurry",
	"immediately", "instant", "don't miss", "last chance",
	"today only", "order now", "call now", "apply now",

	// Classic spam phrasing (en)
	"click here", "no obligation", "100% free", "guarantee",
	"risk free", "double your", "as seen on", "amazing", "miracle",
	"congratulations", "you have been selected", "claim your",

	// es
	"gratis", "dinero", "ganador", "premio", "oferta", "urgente",
	"haga clic", "garantizado",

	// de
	"kostenlos", "gewinner", "geld", "sofort", "glückwunsch",
	"garantiert", "jetzt kaufen",

	// fr
	"gratuit", "gagnant", "argent", "félicitations", "cliquez ici",
	"offre spéciale",

	// pt
	"grátis", "dinheiro", "vencedor", "parabéns", "clique aqui",
}

// shortenerDomains are link hosts that hide their destination. Any one of
// them is an automatic signal: legitimate tenants link to their own domains.
var shortenerDomains = map[string]struct{}{
	"bit.ly":      {},
	"tinyurl.com": {},
	"t.co":        {},
	"goo.gl":      {},
	"ow.ly":       {},
	"is.gd":       {},
	"buff.ly":     {},
	"rebrand.ly":  {},
	"cutt.ly":     {},
	"rb.gy":       {},
	"tiny.cc":     {},
	"shorturl.at": {},
}

var (
	scriptRe   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	imgTagRe   = regexp.MustCompile(`(?is)<img[^>]*>`)
	tagRe      = regexp.MustCompile(`<[^>]+>`)
	spaceRe    = regexp.MustCompile(`\s+`)
	linkRe     = regexp.MustCompile(`(?i)https?://[^\s"'<>)]+`)
	punctRunRe = regexp.MustCompile(`[!?]{3,}`)
)

// StripHTML reduces markup to its visible text.
func StripHTML(s string) string {
	s = scriptRe.ReplaceAllString(s, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// TriggerWordHits returns the distinct trigger words found in content.
// Content should already be lowercased.
func TriggerWordHits(content string) []string {
	var hits []string
	for _, w := range triggerWords {
		if strings.Contains(content, w) {
			hits = append(hits, w)
		}
	}
	return hits
}

// IsAllCaps reports whether s contains letters and every one is uppercase.
func IsAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if isLower(r) {
			return false
		}
		if isLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isLower(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// HasPunctuationRun reports a run of three or more ! or ? characters.
func HasPunctuationRun(s string) bool {
	return punctRunRe.MatchString(s)
}

// ExtractLinks pulls every http(s) URL out of the given parts, in order.
func ExtractLinks(parts ...string) []string {
	var links []string
	for _, p := range parts {
		links = append(links, linkRe.FindAllString(p, -1)...)
	}
	return links
}

// LinkHost returns the lowercased host of a URL, without port. Unparseable
// links return "".
func LinkHost(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// IsShortenerHost reports whether host is a known URL shortener.
func IsShortenerHost(host string) bool {
	_, ok := shortenerDomains[strings.ToLower(host)]
	return ok
}

// imageOnly reports markup whose visible text is empty but which still shows
// images.
func imageOnly(htmlBody string) bool {
	if !strings.Contains(strings.ToLower(htmlBody), "<img") {
		return false
	}
	withoutImages := imgTagRe.ReplaceAllString(htmlBody, " ")
	return StripHTML(withoutImages) == ""
}
