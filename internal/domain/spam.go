package domain

// SpamAnalysisResult is the deterministic output of content analysis: a
// non-negative score plus the identifiers of every rule that fired. Same
// content in, same result out.
type SpamAnalysisResult struct {
	Score          int      `json:"score"`
	TriggeredRules []string `json:"triggered_rules,omitempty"`
}
