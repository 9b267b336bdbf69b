package driven

import (
	"context"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// ModelClassifier asks an external model to pick a label.
// This is an optional service - when nil, classification degrades to the
// keyword heuristic.
//
// Implementations never return Go errors: every failure is expressed as a
// ModelUnavailable or ModelInvalidResponse outcome so fallback triggers stay
// auditable.
type ModelClassifier interface {
	// Classify returns a typed outcome for one item.
	Classify(ctx context.Context, in domain.ClassifyInput) domain.ModelOutcome

	// ModelName returns the name of the model being used.
	ModelName() string
}
