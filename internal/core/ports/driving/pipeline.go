package driving

import (
	"context"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// NotificationReceiver accepts inbound change notifications.
type NotificationReceiver interface {
	// Receive validates n against the active channel and, when valid,
	// schedules a drain of the change feed. It never blocks on the drain
	// and never fails: the caller always acknowledges.
	Receive(ctx context.Context, n domain.Notification) domain.ChannelCheck
}

// WatchService manages the change-feed subscription.
type WatchService interface {
	// Start re-hydrates the catalog, opens a new subscription and persists it.
	Start(ctx context.Context) (*domain.WatchChannel, error)

	// Stop closes the active subscription. Returns false if there was none.
	Stop(ctx context.Context) (bool, error)

	// Active returns the persisted channel, or nil if none.
	Active(ctx context.Context) (*domain.WatchChannel, error)
}

// CatalogService owns the label catalog snapshot.
type CatalogService interface {
	// Hydrate reloads the catalog, provisions missing folders and swaps
	// in a new snapshot.
	Hydrate(ctx context.Context) (*domain.Catalog, error)

	// Current returns the latest snapshot. Never nil after a successful Hydrate.
	Current() *domain.Catalog
}
