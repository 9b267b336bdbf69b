package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// DefaultMaxModelChars bounds the text prefix sent to the model.
const DefaultMaxModelChars = 20000

// Classifier is the hybrid two-stage classifier. The model stage runs when
// configured; any outcome other than ModelSucceeded with an allowed label
// falls through to the keyword heuristic. It never returns an error.
type Classifier struct {
	model     driven.ModelClassifier
	heuristic *Heuristic
	maxChars  int
}

// NewClassifier creates a classifier. model may be nil.
func NewClassifier(model driven.ModelClassifier, heuristic *Heuristic, maxChars int) *Classifier {
	if heuristic == nil {
		heuristic = NewHeuristic("")
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxModelChars
	}
	return &Classifier{
		model:     model,
		heuristic: heuristic,
		maxChars:  maxChars,
	}
}

// Classify returns a label for one item. A non-empty label is always one
// of in.AllowedLabels.
func (c *Classifier) Classify(ctx context.Context, in domain.ClassifyInput) domain.ClassificationResult {
	if len(in.AllowedLabels) == 0 {
		return domain.ClassificationResult{
			Rationale: "No allowed labels configured",
			Source:    domain.SourceNone,
		}
	}

	outcome := c.primary(ctx, in)
	if outcome.Kind == domain.ModelSucceeded {
		return outcome.Result
	}

	result := c.heuristic.Classify(in.Filename, in.Text, in.AllowedLabels)
	if outcome.Err != nil && !errors.Is(outcome.Err, domain.ErrClassifierUnavailable) {
		logger.Warn("[CLASSIFY] model %s for %q: %v; using heuristic", outcome.Kind, in.Filename, outcome.Err)
		result.Rationale = fmt.Sprintf("Heuristic fallback (%s: %v)", outcome.Kind, outcome.Err)
	}
	return result
}

// primary runs the model stage and normalises its outcome.
func (c *Classifier) primary(ctx context.Context, in domain.ClassifyInput) domain.ModelOutcome {
	if c.model == nil {
		return domain.Unavailable(domain.ErrClassifierUnavailable)
	}

	bounded := in
	bounded.Text = truncateRunes(in.Text, c.maxChars)

	outcome := c.model.Classify(ctx, bounded)
	if outcome.Kind != domain.ModelSucceeded {
		return outcome
	}

	if !in.Allows(outcome.Result.Label) {
		return domain.InvalidResponse(fmt.Errorf("%w: label %q is not allowed", domain.ErrInvalidModelResponse, outcome.Result.Label))
	}
	outcome.Result.Confidence = clampConfidence(outcome.Result.Confidence)
	logger.Debug("[CLASSIFY] %s picked %q @ %.2f for %q", c.model.ModelName(), outcome.Result.Label, outcome.Result.Confidence, in.Filename)
	return outcome
}

func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// truncateRunes returns at most n runes of s without splitting a character.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
