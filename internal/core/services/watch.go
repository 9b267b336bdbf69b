package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/core/ports/driving"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.WatchService = (*WatchService)(nil)

// WatchService opens and closes the change-feed subscription.
type WatchService struct {
	channels driven.ChannelManager
	feed     driven.ChangeFeed
	store    driven.StateStore
	catalog  driving.CatalogService
	address  string

	newID func() string
	now   func() time.Time
}

// NewWatchService creates a watch service delivering to address.
func NewWatchService(
	channels driven.ChannelManager,
	feed driven.ChangeFeed,
	store driven.StateStore,
	catalog driving.CatalogService,
	address string,
) *WatchService {
	return &WatchService{
		channels: channels,
		feed:     feed,
		store:    store,
		catalog:  catalog,
		address:  address,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Start re-hydrates the catalog, opens a subscription from the persisted
// cursor and persists the new channel. A previously active channel is
// closed first so at most one channel delivers.
func (s *WatchService) Start(ctx context.Context) (*domain.WatchChannel, error) {
	if _, err := s.catalog.Hydrate(ctx); err != nil {
		return nil, fmt.Errorf("hydrate catalog: %w", err)
	}

	if _, err := s.Stop(ctx); err != nil {
		logger.Warn("[WATCH] could not stop previous channel: %v", err)
	}

	token, err := loadOrInitCursor(ctx, s.feed, s.store)
	if err != nil {
		return nil, err
	}

	ch, err := s.channels.WatchChanges(ctx, token, domain.WatchRequest{
		ChannelID: s.newID(),
		Address:   s.address,
	})
	if err != nil {
		return nil, fmt.Errorf("watch changes: %w", err)
	}
	ch.Address = s.address
	ch.CreatedAt = s.now().UTC()

	if err := s.store.SaveChannel(ctx, *ch); err != nil {
		return nil, fmt.Errorf("save channel: %w", err)
	}

	logger.Info("[WATCH] channel %s resource %s -> %s", ch.ID, ch.ResourceID, ch.Address)
	return ch, nil
}

// Stop closes the active subscription and clears it. Returns false when
// no channel was active. A channel the provider no longer knows is cleared.
func (s *WatchService) Stop(ctx context.Context) (bool, error) {
	ch, err := s.Active(ctx)
	if err != nil {
		return false, err
	}
	if ch == nil {
		return false, nil
	}

	err = s.channels.StopChannel(ctx, ch.ID, ch.ResourceID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("stop channel: %w", err)
	}

	if err := s.store.ClearChannel(ctx); err != nil {
		return false, fmt.Errorf("clear channel: %w", err)
	}

	logger.Info("[WATCH] stopped channel %s", ch.ID)
	return true, nil
}

// Active returns the persisted channel, or nil if none.
func (s *WatchService) Active(ctx context.Context) (*domain.WatchChannel, error) {
	ch, err := s.store.GetChannel(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}
