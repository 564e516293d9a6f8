package spamcheck

import (
	"strings"

	"github.com/ignite/mailguard/internal/domain"
)

// Rule weights. Trigger words are the only per-hit weight; everything else
// fires at most once.
const (
	weightPerTriggerWord = 2
	weightCapsSubject    = 5
	weightPunctuationRun = 3
	weightHTMLTextRatio  = 4
	weightLinkCount      = 3
	weightImageOnlyBody  = 5
	weightShortenerLink  = 3
	htmlTextRatioBar     = 5
	linkCountBar         = 10
)

// Analyzer scores rendered content. It is stateless and safe for concurrent
// use.
type Analyzer struct{}

// NewAnalyzer returns the shared content analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Score runs every rule against the rendered parts and returns the summed
// score plus the identifiers of the rules that fired. Adding content that
// trips another rule can only raise the score, never lower it.
func (a *Analyzer) Score(subject, htmlBody, textBody string) domain.SpamAnalysisResult {
	var result domain.SpamAnalysisResult

	strippedHTML := StripHTML(htmlBody)
	content := strings.ToLower(subject + " " + strippedHTML + " " + textBody)

	if hits := TriggerWordHits(content); len(hits) > 0 {
		result.Score += weightPerTriggerWord * len(hits)
		result.TriggeredRules = append(result.TriggeredRules, RuleTriggerWords)
	}

	if IsAllCaps(subject) {
		result.Score += weightCapsSubject
		result.TriggeredRules = append(result.TriggeredRules, RuleCapsSubject)
	}

	if HasPunctuationRun(subject) || HasPunctuationRun(textBody) || HasPunctuationRun(strippedHTML) {
		result.Score += weightPunctuationRun
		result.TriggeredRules = append(result.TriggeredRules, RuleExcessPunctuation)
	}

	if htmlTextRatioExceeded(htmlBody, textBody) {
		result.Score += weightHTMLTextRatio
		result.TriggeredRules = append(result.TriggeredRules, RuleHTMLTextRatio)
	}

	links := ExtractLinks(htmlBody, textBody)
	if len(links) > linkCountBar {
		result.Score += weightLinkCount
		result.TriggeredRules = append(result.TriggeredRules, RuleLinkCount)
	}

	if imageOnly(htmlBody) {
		result.Score += weightImageOnlyBody
		result.TriggeredRules = append(result.TriggeredRules, RuleImageOnlyBody)
	}

	for _, link := range links {
		if IsShortenerHost(LinkHost(link)) {
			result.Score += weightShortenerLink
			result.TriggeredRules = append(result.TriggeredRules, RuleShortenerLink)
			break
		}
	}

	return result
}

// Rejected reports whether the result is at or past the reject line.
func (a *Analyzer) Rejected(r domain.SpamAnalysisResult) bool {
	return r.Score >= RejectThreshold
}

// htmlTextRatioExceeded compares raw markup length against the plain-text
// part. A missing text part with non-trivial markup counts as exceeded:
// there is nothing for text-only clients to show.
func htmlTextRatioExceeded(htmlBody, textBody string) bool {
	htmlLen := len(htmlBody)
	textLen := len(strings.TrimSpace(textBody))
	if htmlLen == 0 {
		return false
	}
	if textLen == 0 {
		return true
	}
	return float64(htmlLen)/float64(textLen) > htmlTextRatioBar
}
