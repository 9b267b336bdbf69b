package domain

import (
	"slices"
	"strings"
	"time"
)

// MIME types the pipeline dispatches on.
const (
	MimeTypeFolder      = "application/vnd.google-apps.folder"
	MimeTypeGoogleDoc   = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet = "application/vnd.google-apps.spreadsheet"
	MimeTypePDF         = "application/pdf"

	// GoogleAppsPrefix marks provider-native types.
	GoogleAppsPrefix = "application/vnd.google-apps."
)

// ItemMeta is the metadata of a remote item.
type ItemMeta struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
	Trashed  bool
}

// IsFolder reports whether the item is a container.
func (m ItemMeta) IsFolder() bool {
	return m.MimeType == MimeTypeFolder
}

// IsNative reports whether the item is a provider-native type.
func (m ItemMeta) IsNative() bool {
	return strings.HasPrefix(m.MimeType, GoogleAppsPrefix)
}

// IsExportable reports whether a native item can be exported to text.
// Only documents and spreadsheets are.
func (m ItemMeta) IsExportable() bool {
	return m.MimeType == MimeTypeGoogleDoc || m.MimeType == MimeTypeGoogleSheet
}

// HasParent reports whether id is among the item's parents.
func (m ItemMeta) HasParent(id string) bool {
	return slices.Contains(m.Parents, id)
}

// ChangeRecord is one entry from the change feed.
// A removed record is never routed.
type ChangeRecord struct {
	ItemID  string
	Item    *ItemMeta
	Removed bool
	Time    time.Time
}

// ChangePage is one page of the change feed.
// Exactly one of NextPageToken and NewStartPageToken is set by the provider;
// NewStartPageToken marks the last page.
type ChangePage struct {
	Records           []ChangeRecord
	NextPageToken     string
	NewStartPageToken string
}

// Content is the extracted form of an item.
type Content struct {
	Text     string
	Raw      []byte
	IsBinary bool
}
