package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// Fixed heuristic confidences. A keyword hit is near-certain; the
// catch-all reflects genuine uncertainty.
const (
	HeuristicMatchConfidence    = 0.95
	HeuristicFallbackConfidence = 0.4
)

// DefaultCatchAllLabel is used when no catch-all is configured.
const DefaultCatchAllLabel = "Misc"

// KeywordRule maps a keyword pattern to a label.
type KeywordRule struct {
	Pattern *regexp.Regexp
	Label   string
}

// DefaultKeywordRules is the ordered rule list; the first match wins.
// Patterns run against lower-cased text whose punctuation has been folded
// to spaces, so "invoice_march.pdf" reads as "invoice march pdf".
var DefaultKeywordRules = []KeywordRule{
	{regexp.MustCompile(`\b(invoice|receipt|bill|total|amount)\b`), "Invoices"},
	{regexp.MustCompile(`\b(transcript|grade|gpa|assignment|lor)\b`), "Academics"},
	{regexp.MustCompile(`\b(passport|driver\s*s?\s*license|dl|national\s*id)\b`), "IDs"},
	{regexp.MustCompile(`\b(w2|1099|tax|form\s*16)\b`), "Tax Docs"},
	{regexp.MustCompile(`\b(photo|image|jpg|png|jpeg)\b`), "Photos"},
	{regexp.MustCompile(`\b(offer|employment|hr)\b`), "Offers & Letters"},
	{regexp.MustCompile(`\b(medical|prescription|lab|report)\b`), "Healthcare"},
	{regexp.MustCompile(`\b(resume|portfolio|project|spec|doc)\b`), "Work"},
}

// Heuristic is the always-available keyword classifier.
type Heuristic struct {
	rules    []KeywordRule
	catchAll string
}

// NewHeuristic creates a heuristic using DefaultKeywordRules.
// An empty catchAll selects DefaultCatchAllLabel.
func NewHeuristic(catchAll string) *Heuristic {
	return NewHeuristicWithRules(DefaultKeywordRules, catchAll)
}

// NewHeuristicWithRules creates a heuristic with a custom rule list.
func NewHeuristicWithRules(rules []KeywordRule, catchAll string) *Heuristic {
	if catchAll == "" {
		catchAll = DefaultCatchAllLabel
	}
	return &Heuristic{rules: rules, catchAll: catchAll}
}

// CatchAll returns the designated catch-all label.
func (h *Heuristic) CatchAll() string {
	return h.catchAll
}

// Classify matches filename and text against the rules. It is deterministic:
// the same input always yields the same result.
func (h *Heuristic) Classify(filename, text string, allowed []string) domain.ClassificationResult {
	hay := foldForMatching(filename + "\n" + text)

	for _, rule := range h.rules {
		if contains(allowed, rule.Label) && rule.Pattern.MatchString(hay) {
			return domain.ClassificationResult{
				Label:      rule.Label,
				Confidence: HeuristicMatchConfidence,
				Rationale:  "Matched " + rule.Label + " keywords",
				Source:     domain.SourceHeuristic,
			}
		}
	}

	fallback := ""
	switch {
	case contains(allowed, h.catchAll):
		fallback = h.catchAll
	case len(allowed) > 0:
		fallback = allowed[0]
	}
	if fallback == "" {
		return domain.ClassificationResult{
			Rationale: "No allowed labels configured",
			Source:    domain.SourceNone,
		}
	}

	return domain.ClassificationResult{
		Label:      fallback,
		Confidence: HeuristicFallbackConfidence,
		Rationale:  "Fallback (no keyword match)",
		Source:     domain.SourceHeuristic,
	}
}

// foldForMatching lower-cases s and replaces every run of characters that
// are not letters, digits or line breaks with a single space.
func foldForMatching(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\n' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
