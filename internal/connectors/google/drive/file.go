package drive

import (
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// MaxExportSize is the maximum size for exported content (5MB).
const MaxExportSize = 5 * 1024 * 1024

// MaxDownloadSize is the maximum size for downloaded content (25MB).
const MaxDownloadSize = 25 * 1024 * 1024

// Partial-response field selectors.
const (
	itemFields   = "id,name,mimeType,parents,trashed"
	changeFields = "nextPageToken,newStartPageToken,changes(fileId,removed,time,file(" + itemFields + "))"
)

// toItemMeta converts a Drive file to domain metadata.
func toItemMeta(f *drive.File) *domain.ItemMeta {
	if f == nil {
		return nil
	}
	return &domain.ItemMeta{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
		Trashed:  f.Trashed,
	}
}

// toChangeRecord converts a Drive change. A change without embedded file
// metadata keeps a nil Item and is skipped by the consumer.
func toChangeRecord(c *drive.Change) domain.ChangeRecord {
	rec := domain.ChangeRecord{
		ItemID:  c.FileId,
		Item:    toItemMeta(c.File),
		Removed: c.Removed,
	}
	if rec.ItemID == "" && rec.Item != nil {
		rec.ItemID = rec.Item.ID
	}
	if t, err := time.Parse(time.RFC3339, c.Time); err == nil {
		rec.Time = t
	}
	return rec
}

// readLimited reads at most limit bytes from r.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return data, nil
}

// escapeQuery escapes a value for a single-quoted Drive query literal.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// folderQuery finds non-trashed folders named name directly under parentID.
func folderQuery(name, parentID string) string {
	return fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escapeQuery(name), escapeQuery(parentID), domain.MimeTypeFolder)
}

// expirationTime converts a channel expiration in Unix milliseconds.
func expirationTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
