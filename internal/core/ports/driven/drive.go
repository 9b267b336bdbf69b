package driven

import (
	"context"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// ChangeFeed pages through the provider's change log.
type ChangeFeed interface {
	// StartPageToken returns the cursor for "now".
	StartPageToken(ctx context.Context) (string, error)

	// ListChanges returns the page of changes starting at pageToken.
	// Returns domain.ErrCursorExpired if the provider rejects the token.
	ListChanges(ctx context.Context, pageToken string) (*domain.ChangePage, error)
}

// ContentReader reads item content. It never mutates the item.
type ContentReader interface {
	// Export converts a provider-native item to mimeType.
	Export(ctx context.Context, fileID, mimeType string) ([]byte, error)

	// Download fetches an item's raw bytes.
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// ItemMover relocates items between folders.
type ItemMover interface {
	// Parents returns the item's current parent folder IDs.
	Parents(ctx context.Context, fileID string) ([]string, error)

	// Move adds destinationID as a parent and removes every ID in
	// previousParents, in a single update.
	Move(ctx context.Context, fileID, destinationID string, previousParents []string) error
}

// ChannelManager opens and closes change-feed subscriptions.
type ChannelManager interface {
	// WatchChanges subscribes req.Address to changes after pageToken.
	WatchChanges(ctx context.Context, pageToken string, req domain.WatchRequest) (*domain.WatchChannel, error)

	// StopChannel closes a subscription.
	StopChannel(ctx context.Context, channelID, resourceID string) error
}

// FolderProvisioner looks up and creates label folders.
type FolderProvisioner interface {
	// Folder returns metadata for folderID, or domain.ErrNotFound.
	Folder(ctx context.Context, folderID string) (*domain.ItemMeta, error)

	// FindFolder returns the first non-trashed folder named name directly
	// under parentID, or domain.ErrNotFound.
	FindFolder(ctx context.Context, name, parentID string) (*domain.ItemMeta, error)

	// CreateFolder creates a folder named name under parentID and returns its ID.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
}

// DriveClient is the remote storage service the pipeline consumes.
// Implemented by connectors/google/drive.Client.
type DriveClient interface {
	ChangeFeed
	ContentReader
	ItemMover
	ChannelManager
	FolderProvisioner
}
