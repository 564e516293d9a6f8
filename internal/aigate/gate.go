// Package aigate classifies machine-authored content by risk before it may
// leave the system. Classification is first-match-wins from most to least
// severe; two patterns are blocked outright with no approval path.
package aigate

import (
	"strings"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/spamcheck"
)

// Verdict is the gate's tagged result. Blocked verdicts carry the pattern
// identifier; everything else carries the risk level plus the signals that
// drove it.
type Verdict struct {
	Level   domain.RiskLevel
	Blocked bool
	Pattern string
	Signals []string
}

// Gate evaluates AI-authored sends. Link hosts on the allowlist are treated
// as internal; everything else is an external destination.
type Gate struct {
	allowedHosts map[string]struct{}
}

// NewGate builds a gate from the configured allowlisted link domains.
func NewGate(allowedDomains []string) *Gate {
	hosts := make(map[string]struct{}, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			hosts[d] = struct{}{}
		}
	}
	return &Gate{allowedHosts: hosts}
}

// Evaluate classifies one request. The order is fixed: blocked patterns
// first, then CRITICAL, HIGH, MEDIUM, LOW.
func (g *Gate) Evaluate(req domain.SendRequest) Verdict {
	content := strings.ToLower(
		req.RenderedSubject + " " + spamcheck.StripHTML(req.RenderedHTML) + " " + req.RenderedText,
	)
	links := spamcheck.ExtractLinks(req.RenderedHTML, req.RenderedText)

	// shortened links hide their destination; never approvable
	for _, link := range links {
		if spamcheck.IsShortenerHost(spamcheck.LinkHost(link)) {
			return Verdict{
				Level:   domain.RiskCritical,
				Blocked: true,
				Pattern: PatternShortenerLink,
				Signals: []string{"shortener:" + spamcheck.LinkHost(link)},
			}
		}
	}

	if phrase, ok := financialOffer(content); ok {
		// financial phrasing is CRITICAL, and CRITICAL plus a financial
		// offer is blocked outright rather than held for approval
		return Verdict{
			Level:   domain.RiskCritical,
			Blocked: true,
			Pattern: PatternFinancialOffer,
			Signals: []string{"financial_offer:" + phrase},
		}
	}

	if phrase, ok := attachmentReference(content); ok {
		return Verdict{
			Level:   domain.RiskCritical,
			Signals: []string{"attachment_ref:" + phrase},
		}
	}

	if host, ok := g.externalLink(links); ok {
		return Verdict{
			Level:   domain.RiskHigh,
			Signals: []string{"external_link:" + host},
		}
	}

	if phrase, ok := urgencyKeyword(content); ok {
		return Verdict{
			Level:   domain.RiskHigh,
			Signals: []string{"urgency:" + phrase},
		}
	}

	if req.Scenario == domain.ScenarioPromotional {
		// promotional machine-written mail is never fully clean, even when
		// every link stays on our own domains
		return Verdict{
			Level:   domain.RiskMedium,
			Signals: []string{"promotional_scenario"},
		}
	}

	return Verdict{Level: domain.RiskLow}
}

// externalLink returns the first link host that is not allowlisted.
func (g *Gate) externalLink(links []string) (string, bool) {
	for _, link := range links {
		host := spamcheck.LinkHost(link)
		if host == "" {
			continue
		}
		if !g.allowed(host) {
			return host, true
		}
	}
	return "", false
}

// allowed matches the host exactly or as a subdomain of an allowlisted
// domain.
func (g *Gate) allowed(host string) bool {
	if _, ok := g.allowedHosts[host]; ok {
		return true
	}
	for d := range g.allowedHosts {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
