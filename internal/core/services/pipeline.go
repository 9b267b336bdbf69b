package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// ItemProcessor handles one eligible item end to end.
type ItemProcessor interface {
	Process(ctx context.Context, item domain.ItemMeta, catalog *domain.Catalog) (domain.RouteOutcome, error)
}

// ItemPipeline runs extraction, classification and routing in sequence.
type ItemPipeline struct {
	extractor  *ContentExtractor
	classifier *Classifier
	router     *Router
}

// Ensure ItemPipeline implements ItemProcessor.
var _ ItemProcessor = (*ItemPipeline)(nil)

// NewItemPipeline wires the three per-item stages.
func NewItemPipeline(extractor *ContentExtractor, classifier *Classifier, router *Router) *ItemPipeline {
	return &ItemPipeline{
		extractor:  extractor,
		classifier: classifier,
		router:     router,
	}
}

// Process extracts, classifies and routes item against one catalog snapshot.
func (p *ItemPipeline) Process(ctx context.Context, item domain.ItemMeta, catalog *domain.Catalog) (domain.RouteOutcome, error) {
	logger.Info("[PROCESS] %s (%s) type=%s", item.Name, item.ID, item.MimeType)

	content, err := p.extractor.Extract(ctx, item)
	if err != nil {
		return domain.RouteOutcome{}, fmt.Errorf("extract %s: %w", item.ID, err)
	}

	result := p.classifier.Classify(ctx, domain.ClassifyInput{
		Filename:      item.Name,
		Text:          content.Text,
		AllowedLabels: catalog.Labels(),
		Descriptions:  catalog.Descriptions(),
	})
	logger.Debug("[CLASSIFY] %s: label=%q conf=%.2f source=%s (%s)",
		item.Name, result.Label, result.Confidence, result.Source, result.Rationale)

	outcome, err := p.router.Route(ctx, result, catalog, item)
	if err != nil {
		return outcome, fmt.Errorf("route %s: %w", item.ID, err)
	}
	return outcome, nil
}
