package driven

import (
	"context"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// CatalogSource is the persistent representation of the label catalog.
type CatalogSource interface {
	// Load reads every catalog row in file order.
	Load(ctx context.Context) ([]domain.CatalogEntry, error)

	// Save rewrites the catalog with provisioned destination IDs.
	Save(ctx context.Context, entries []domain.CatalogEntry) error

	// Location describes where the catalog lives, for logs.
	Location() string
}
