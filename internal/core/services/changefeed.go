package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/core/ports/driving"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// SkipReason explains why a change record was not routed.
type SkipReason string

// Skip reasons, in the order they are checked.
const (
	SkipNone          SkipReason = ""
	SkipRemoved       SkipReason = "removed"
	SkipMissingItem   SkipReason = "missing item"
	SkipTrashed       SkipReason = "trashed"
	SkipLabelFolder   SkipReason = "label folder"
	SkipFolder        SkipReason = "folder"
	SkipOutsideScope  SkipReason = "outside watched folder"
	SkipNonExportable SkipReason = "non-exportable native type"
)

// ChangeFeedConfig scopes which changes are processed.
type ChangeFeedConfig struct {
	// WatchFolderID restricts processing to direct children of one folder.
	// Empty processes every change.
	WatchFolderID string
}

// ChangeFeedConsumer pages through the change log from the persisted cursor
// and hands eligible items to an ItemProcessor.
//
// The cursor is saved after every page, once all of that page's eligible
// items have been attempted. A crash therefore replays at most one page.
type ChangeFeedConsumer struct {
	feed      driven.ChangeFeed
	cursors   driven.CursorStore
	catalog   driving.CatalogService
	processor ItemProcessor
	cfg       ChangeFeedConfig
}

// NewChangeFeedConsumer creates a consumer.
func NewChangeFeedConsumer(
	feed driven.ChangeFeed,
	cursors driven.CursorStore,
	catalog driving.CatalogService,
	processor ItemProcessor,
	cfg ChangeFeedConfig,
) *ChangeFeedConsumer {
	return &ChangeFeedConsumer{
		feed:      feed,
		cursors:   cursors,
		catalog:   catalog,
		processor: processor,
		cfg:       cfg,
	}
}

// Drain processes every pending change. Per-item failures are logged and
// counted, never returned; an error means the feed itself or the cursor
// store failed, or ctx was cancelled, and the unsaved page will be
// replayed next time.
func (c *ChangeFeedConsumer) Drain(ctx context.Context) (domain.DrainReport, error) {
	var report domain.DrainReport

	if c.catalog.Current().Empty() {
		if _, err := c.catalog.Hydrate(ctx); err != nil {
			return report, fmt.Errorf("hydrate catalog: %w", err)
		}
	}

	token, err := loadOrInitCursor(ctx, c.feed, c.cursors)
	if err != nil {
		return report, err
	}
	report.Cursor = token

	for token != "" {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := c.feed.ListChanges(ctx, token)
		if errors.Is(err, domain.ErrCursorExpired) {
			return report, c.resetCursor(ctx, &report)
		}
		if err != nil {
			return report, fmt.Errorf("list changes: %w", err)
		}
		report.Pages++

		for _, rec := range page.Records {
			if ctx.Err() != nil {
				break
			}
			report.Records++
			c.handle(ctx, rec, &report)
		}

		next := page.NextPageToken
		if next == "" {
			next = page.NewStartPageToken
		}
		// A cancelled page is replayed in full.
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if next == "" {
			logger.Warn("[CHANGES] page carried no continuation token; cursor stays at %s", token)
			break
		}
		if err := c.cursors.SaveCursor(ctx, next); err != nil {
			return report, fmt.Errorf("save cursor: %w", err)
		}
		report.Cursor = next

		if page.NextPageToken == "" {
			break
		}
		token = next
	}

	return report, nil
}

func (c *ChangeFeedConsumer) handle(ctx context.Context, rec domain.ChangeRecord, report *domain.DrainReport) {
	catalog := c.catalog.Current()

	if reason := c.Eligibility(rec, catalog); reason != SkipNone {
		name := ""
		if rec.Item != nil {
			name = rec.Item.Name
		}
		logger.Debug("[SKIP] %s: %s (%s)", reason, name, rec.ItemID)
		return
	}
	report.Eligible++

	outcome, err := c.processor.Process(ctx, *rec.Item, catalog)
	if err != nil {
		report.Failed++
		logger.Warn("[CHANGES] Processing error for %s: %v", rec.ItemID, err)
		return
	}

	switch outcome.Action {
	case domain.RouteMoved:
		report.Moved++
	case domain.RouteAlreadyInPlace:
		report.NoOps++
	case domain.RouteSkipped:
		report.Skipped++
	}
}

// Eligibility returns SkipNone if rec should be routed, otherwise the
// first reason it should not.
func (c *ChangeFeedConsumer) Eligibility(rec domain.ChangeRecord, catalog *domain.Catalog) SkipReason {
	switch {
	case rec.Removed:
		return SkipRemoved
	case rec.Item == nil || rec.Item.ID == "":
		return SkipMissingItem
	case rec.Item.Trashed:
		return SkipTrashed
	case catalog.IsDestination(rec.Item.ID):
		return SkipLabelFolder
	case rec.Item.IsFolder():
		return SkipFolder
	case c.cfg.WatchFolderID != "" && !rec.Item.HasParent(c.cfg.WatchFolderID):
		return SkipOutsideScope
	case rec.Item.IsNative() && !rec.Item.IsExportable():
		return SkipNonExportable
	default:
		return SkipNone
	}
}

// resetCursor replaces an expired cursor with the provider's current start token.
func (c *ChangeFeedConsumer) resetCursor(ctx context.Context, report *domain.DrainReport) error {
	token, err := c.feed.StartPageToken(ctx)
	if err != nil {
		return fmt.Errorf("get start page token: %w", err)
	}
	if err := c.cursors.SaveCursor(ctx, token); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	logger.Warn("[CHANGES] cursor expired; restarted from %s", token)
	report.Cursor = token
	return nil
}
