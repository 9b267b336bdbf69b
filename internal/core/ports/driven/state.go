package driven

import (
	"context"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// ChannelStore persists the single active watch channel.
type ChannelStore interface {
	// GetChannel returns the active channel, or domain.ErrNotFound.
	GetChannel(ctx context.Context) (*domain.WatchChannel, error)

	// SaveChannel replaces the active channel.
	SaveChannel(ctx context.Context, ch domain.WatchChannel) error

	// ClearChannel removes the active channel. Clearing nothing is not an error.
	ClearChannel(ctx context.Context) error
}

// CursorStore persists the change-feed cursor.
type CursorStore interface {
	// GetCursor returns the persisted cursor token, or domain.ErrNotFound.
	GetCursor(ctx context.Context) (string, error)

	// SaveCursor durably replaces the cursor token.
	SaveCursor(ctx context.Context, token string) error
}

// StateStore is the durable key-value state of the pipeline.
// Implementations: storage/sqlite, storage/postgres, storage/memory.
type StateStore interface {
	ChannelStore
	CursorStore

	// Close releases resources.
	Close() error
}
