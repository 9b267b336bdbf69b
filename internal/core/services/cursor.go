package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
)

// loadOrInitCursor returns the persisted cursor, bootstrapping it from the
// provider's current start token when none is stored yet.
func loadOrInitCursor(ctx context.Context, feed driven.ChangeFeed, cursors driven.CursorStore) (string, error) {
	token, err := cursors.GetCursor(ctx)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("get cursor: %w", err)
	}

	token, err = feed.StartPageToken(ctx)
	if err != nil {
		return "", fmt.Errorf("get start page token: %w", err)
	}
	if err := cursors.SaveCursor(ctx, token); err != nil {
		return "", fmt.Errorf("save cursor: %w", err)
	}
	return token, nil
}
