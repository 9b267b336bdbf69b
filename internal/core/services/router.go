package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// DefaultConfidenceThreshold is the confidence below which filename
// overrides are consulted.
const DefaultConfidenceThreshold = 0.55

// RouterConfig holds routing policy settings.
type RouterConfig struct {
	// ConfidenceThreshold is used as given; 0 disables low-confidence
	// overrides. Negative values select DefaultConfidenceThreshold.
	ConfidenceThreshold float64
	CatchAllLabel       string
}

// DefaultRouterConfig returns the default routing policy.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		CatchAllLabel:       DefaultCatchAllLabel,
	}
}

// FilenameOverride re-labels an item whose lower-cased name contains any keyword.
type FilenameOverride struct {
	Keywords []string
	Label    string
}

// DefaultFilenameOverrides are consulted in order; only the first group
// whose keywords match is applied.
var DefaultFilenameOverrides = []FilenameOverride{
	{Keywords: []string{"invoice", "receipt"}, Label: "Invoices"},
	{Keywords: []string{"transcript", "grade", "gpa"}, Label: "Academics"},
	{Keywords: []string{"passport", "license", " id "}, Label: "IDs"},
}

// Router resolves a classification to a destination and moves the item.
type Router struct {
	mover     driven.ItemMover
	cfg       RouterConfig
	overrides []FilenameOverride
}

// NewRouter creates a router with DefaultFilenameOverrides.
func NewRouter(mover driven.ItemMover, cfg RouterConfig) *Router {
	if cfg.ConfidenceThreshold < 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.CatchAllLabel == "" {
		cfg.CatchAllLabel = DefaultCatchAllLabel
	}
	return &Router{
		mover:     mover,
		cfg:       cfg,
		overrides: DefaultFilenameOverrides,
	}
}

// Resolve applies the decision policy without touching the remote store.
// It returns the final label, whether it differs from the classifier's,
// and false if no routable label exists.
//
// Overrides run whenever the classifier's label has no destination or its
// confidence is under the threshold, so a weaker filename keyword can
// replace a low-confidence model label.
func (r *Router) Resolve(result domain.ClassificationResult, catalog *domain.Catalog, filename string) (string, bool, bool) {
	label := result.Label
	_, known := catalog.Destination(label)

	if !known || result.Confidence < r.cfg.ConfidenceThreshold {
		label = r.override(label, catalog, filename)

		if _, ok := catalog.Destination(label); !ok {
			if _, ok := catalog.Destination(r.cfg.CatchAllLabel); ok {
				label = r.cfg.CatchAllLabel
			} else if labels := catalog.Labels(); len(labels) > 0 {
				label = labels[0]
			}
		}
	}

	if _, ok := catalog.Destination(label); !ok || label == "" {
		return "", false, false
	}
	return label, label != result.Label, true
}

func (r *Router) override(label string, catalog *domain.Catalog, filename string) string {
	low := strings.ToLower(filename)
	for _, o := range r.overrides {
		if !containsAny(low, o.Keywords) {
			continue
		}
		if _, ok := catalog.Destination(o.Label); ok {
			return o.Label
		}
		return label
	}
	return label
}

// Route performs at most one move. Repeated delivery of the same item is
// a no-op once it sits in its destination.
func (r *Router) Route(
	ctx context.Context,
	result domain.ClassificationResult,
	catalog *domain.Catalog,
	item domain.ItemMeta,
) (domain.RouteOutcome, error) {
	label, overridden, ok := r.Resolve(result, catalog, item.Name)
	if !ok {
		logger.Warn("[ROUTE] No valid label for %s; allowed=%d. Skipping move.", item.Name, catalog.Len())
		return domain.RouteOutcome{Action: domain.RouteSkipped, Confidence: result.Confidence}, nil
	}

	dest, _ := catalog.Destination(label)
	outcome := domain.RouteOutcome{
		Label:         label,
		DestinationID: dest,
		Confidence:    result.Confidence,
		Overridden:    overridden,
	}

	parents, err := r.mover.Parents(ctx, item.ID)
	if err != nil {
		return outcome, fmt.Errorf("get parents: %w", err)
	}
	if slices.Contains(parents, dest) {
		outcome.Action = domain.RouteAlreadyInPlace
		logger.Debug("[ROUTE] %s already in %s (%s)", item.Name, label, dest)
		return outcome, nil
	}

	if err := r.mover.Move(ctx, item.ID, dest, parents); err != nil {
		return outcome, fmt.Errorf("move: %w", err)
	}
	outcome.Action = domain.RouteMoved
	logger.Info("[ROUTE] %s -> %s (%s) @ conf=%.2f", item.Name, label, dest, result.Confidence)
	return outcome, nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
