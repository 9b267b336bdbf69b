package domain

import (
	"fmt"
	"strings"
)

// CatalogEntry is one label row.
type CatalogEntry struct {
	// Label is the unique, human-readable category name.
	Label string `json:"label" yaml:"label"`

	// DestinationID is the folder items with this label move to.
	// Empty until provisioned.
	DestinationID string `json:"folder_id" yaml:"folder_id"`

	// Description is optional context for the classifier.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Catalog is an immutable snapshot of the label catalog.
// Readers hold a *Catalog for the duration of one routing decision;
// re-hydration builds a new snapshot and swaps it in whole.
// All methods are safe on a nil receiver, which behaves as an empty catalog.
type Catalog struct {
	version      uint64
	entries      []CatalogEntry
	labels       []string
	destinations map[string]string
	descriptions map[string]string
	folderIDs    map[string]struct{}
}

// NewCatalog builds a snapshot from entries, trimming whitespace and
// dropping rows without a label. It fails if no label remains or a label repeats.
func NewCatalog(version uint64, entries []CatalogEntry) (*Catalog, error) {
	c := &Catalog{
		version:      version,
		destinations: make(map[string]string),
		descriptions: make(map[string]string),
		folderIDs:    make(map[string]struct{}),
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		e.Label = strings.TrimSpace(e.Label)
		e.DestinationID = strings.TrimSpace(e.DestinationID)
		e.Description = strings.TrimSpace(e.Description)
		if e.Label == "" {
			continue
		}
		if seen[e.Label] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, e.Label)
		}
		seen[e.Label] = true

		c.entries = append(c.entries, e)
		c.labels = append(c.labels, e.Label)
		if e.DestinationID != "" {
			c.destinations[e.Label] = e.DestinationID
			c.folderIDs[e.DestinationID] = struct{}{}
		}
		if e.Description != "" {
			c.descriptions[e.Label] = e.Description
		}
	}

	if len(c.labels) == 0 {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

// Version returns the hydration generation that produced this snapshot.
func (c *Catalog) Version() uint64 {
	if c == nil {
		return 0
	}
	return c.version
}

// Len returns the number of labels.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.labels)
}

// Empty reports whether the catalog has no labels.
func (c *Catalog) Empty() bool {
	return c.Len() == 0
}

// Labels returns the allowed labels in catalog order.
func (c *Catalog) Labels() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Entries returns a copy of the catalog rows.
func (c *Catalog) Entries() []CatalogEntry {
	if c == nil {
		return nil
	}
	out := make([]CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Descriptions returns a copy of the label → description map.
func (c *Catalog) Descriptions() map[string]string {
	out := make(map[string]string)
	if c == nil {
		return out
	}
	for k, v := range c.descriptions {
		out[k] = v
	}
	return out
}

// HasLabel reports whether label is in the allowed set.
func (c *Catalog) HasLabel(label string) bool {
	if c == nil {
		return false
	}
	for _, l := range c.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Destination returns the provisioned folder for label.
func (c *Catalog) Destination(label string) (string, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.destinations[label]
	return id, ok
}

// IsDestination reports whether id is one of the provisioned label folders.
func (c *Catalog) IsDestination(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.folderIDs[id]
	return ok
}
