package drive

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/driveroute/internal/connectors/google"
	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.DriveClient = (*Client)(nil)

// Client implements driven.DriveClient over the Drive v3 API.
// Every call passes through the rate limiter and every error through
// google.WrapError, so callers branch on domain sentinels.
type Client struct {
	svc     *drive.Service
	limiter *google.RateLimiter
	cfg     Config
}

// NewClient creates a client for an authenticated Drive service.
func NewClient(svc *drive.Service, cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		svc:     svc,
		limiter: google.NewRateLimiter(cfg.RateLimit),
		cfg:     cfg,
	}
}

// do waits for the limiter, runs fn and classifies its error. Rate-limit
// answers push the limiter into back-off.
func (c *Client) do(ctx context.Context, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	err := fn()
	if err == nil {
		return nil
	}
	if google.IsUnauthorized(err) && c.cfg.OnUnauthorized != nil {
		logger.Warn("[AUTH] Drive rejected the access token; refreshing on next call")
		c.cfg.OnUnauthorized()
	}
	if google.IsRateLimited(err) {
		retry := google.RetryAfter(err)
		logger.Warn("[DRIVE] rate limited; backing off %ds", retry)
		c.limiter.RecordRateLimitError(retry)
	}
	return google.WrapError(err)
}

// StartPageToken returns the cursor for "now".
func (c *Client) StartPageToken(ctx context.Context) (string, error) {
	var token string
	err := c.do(ctx, func() error {
		resp, err := c.svc.Changes.GetStartPageToken().
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		token = resp.StartPageToken
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("get start page token: %w", err)
	}
	return token, nil
}

// ListChanges returns one page of the change feed.
func (c *Client) ListChanges(ctx context.Context, pageToken string) (*domain.ChangePage, error) {
	var list *drive.ChangeList
	err := c.do(ctx, func() error {
		var err error
		list, err = c.svc.Changes.List(pageToken).
			Fields(changeFields).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			PageSize(c.cfg.PageSize).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}

	page := &domain.ChangePage{
		Records:           make([]domain.ChangeRecord, 0, len(list.Changes)),
		NextPageToken:     list.NextPageToken,
		NewStartPageToken: list.NewStartPageToken,
	}
	for _, ch := range list.Changes {
		if ch == nil {
			continue
		}
		page.Records = append(page.Records, toChangeRecord(ch))
	}
	return page, nil
}

// Export converts a native document to mimeType.
func (c *Client) Export(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	var data []byte
	err := c.do(ctx, func() error {
		resp, err := c.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = readLimited(resp.Body, c.cfg.MaxExportSize)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", fileID, err)
	}
	return data, nil
}

// Download fetches a file's raw bytes, truncated to the download cap.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := c.do(ctx, func() error {
		resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = readLimited(resp.Body, c.cfg.MaxDownloadSize)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	return data, nil
}

// Parents returns the file's current parent folders.
func (c *Client) Parents(ctx context.Context, fileID string) ([]string, error) {
	var parents []string
	err := c.do(ctx, func() error {
		f, err := c.svc.Files.Get(fileID).
			Fields("parents").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		parents = f.Parents
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get parents %s: %w", fileID, err)
	}
	return parents, nil
}

// Move adds destinationID and removes previousParents in one update.
func (c *Client) Move(ctx context.Context, fileID, destinationID string, previousParents []string) error {
	err := c.do(ctx, func() error {
		call := c.svc.Files.Update(fileID, &drive.File{}).
			AddParents(destinationID).
			Fields("id,parents").
			SupportsAllDrives(true).
			Context(ctx)
		if len(previousParents) > 0 {
			call = call.RemoveParents(strings.Join(previousParents, ","))
		}
		_, err := call.Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("move %s: %w", fileID, err)
	}
	return nil
}

// WatchChanges opens a web_hook channel on the change feed.
func (c *Client) WatchChanges(ctx context.Context, pageToken string, req domain.WatchRequest) (*domain.WatchChannel, error) {
	var ch *drive.Channel
	err := c.do(ctx, func() error {
		var err error
		ch, err = c.svc.Changes.Watch(pageToken, &drive.Channel{
			Id:      req.ChannelID,
			Type:    "web_hook",
			Address: req.Address,
		}).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("watch changes: %w", err)
	}

	id := ch.Id
	if id == "" {
		id = req.ChannelID
	}
	return &domain.WatchChannel{
		ID:         id,
		ResourceID: ch.ResourceId,
		Address:    req.Address,
		Expiration: expirationTime(ch.Expiration),
	}, nil
}

// StopChannel closes a channel. A channel Drive no longer knows yields
// domain.ErrNotFound.
func (c *Client) StopChannel(ctx context.Context, channelID, resourceID string) error {
	err := c.do(ctx, func() error {
		return c.svc.Channels.Stop(&drive.Channel{
			Id:         channelID,
			ResourceId: resourceID,
		}).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("stop channel %s: %w", channelID, err)
	}
	return nil
}

// Folder returns metadata for folderID.
func (c *Client) Folder(ctx context.Context, folderID string) (*domain.ItemMeta, error) {
	var f *drive.File
	err := c.do(ctx, func() error {
		var err error
		f, err = c.svc.Files.Get(folderID).
			Fields(itemFields).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get folder %s: %w", folderID, err)
	}
	return toItemMeta(f), nil
}

// FindFolder returns the first live folder named name under parentID.
func (c *Client) FindFolder(ctx context.Context, name, parentID string) (*domain.ItemMeta, error) {
	var list *drive.FileList
	err := c.do(ctx, func() error {
		var err error
		list, err = c.svc.Files.List().
			Q(folderQuery(name, parentID)).
			Fields("files(" + itemFields + ")").
			PageSize(1).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find folder %q: %w", name, err)
	}
	if len(list.Files) == 0 {
		return nil, domain.ErrNotFound
	}
	return toItemMeta(list.Files[0]), nil
}

// CreateFolder creates a folder under parentID.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	var id string
	err := c.do(ctx, func() error {
		f, err := c.svc.Files.Create(&drive.File{
			Name:     name,
			MimeType: domain.MimeTypeFolder,
			Parents:  []string{parentID},
		}).
			Fields("id").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		id = f.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return id, nil
}

// AccountEmail returns the authenticated user's address.
func (c *Client) AccountEmail(ctx context.Context) (string, error) {
	var email string
	err := c.do(ctx, func() error {
		about, err := c.svc.About.Get().Fields("user(emailAddress)").Context(ctx).Do()
		if err != nil {
			return err
		}
		if about.User != nil {
			email = about.User.EmailAddress
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	return email, nil
}
