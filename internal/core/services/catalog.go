package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/core/ports/driving"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// CatalogService owns the label catalog. Hydrations are serialised by a
// writer gate and publish a new immutable snapshot with a single atomic
// store, so readers never observe a half-updated label set.
type CatalogService struct {
	source   driven.CatalogSource
	folders  driven.FolderProvisioner
	parentID string

	mu      sync.Mutex
	version uint64
	current atomic.Pointer[domain.Catalog]
}

// NewCatalogService creates a catalog service. folders may be nil, in
// which case destination IDs are taken from the source as-is.
func NewCatalogService(source driven.CatalogSource, folders driven.FolderProvisioner, parentID string) *CatalogService {
	return &CatalogService{
		source:   source,
		folders:  folders,
		parentID: parentID,
	}
}

// Current returns the latest snapshot, or nil before the first hydration.
func (s *CatalogService) Current() *domain.Catalog {
	return s.current.Load()
}

// Hydrate reloads the catalog, makes sure every label has a live
// destination folder, writes resolved IDs back to the source and swaps in
// the new snapshot. A failed hydration leaves the previous snapshot in place.
func (s *CatalogService) Hydrate(ctx context.Context) (*domain.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", s.source.Location(), err)
	}

	// Validate before any folder is created.
	staged, err := domain.NewCatalog(s.version+1, entries)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", s.source.Location(), err)
	}
	entries = staged.Entries()

	if s.folders != nil && s.parentID != "" {
		changed := false
		for i := range entries {
			id, err := s.ensureFolder(ctx, entries[i].Label, entries[i].DestinationID)
			if err != nil {
				return nil, fmt.Errorf("provision folder %q: %w", entries[i].Label, err)
			}
			if id != entries[i].DestinationID {
				entries[i].DestinationID = id
				changed = true
			}
		}
		if changed {
			if err := s.source.Save(ctx, entries); err != nil {
				return nil, fmt.Errorf("save catalog %s: %w", s.source.Location(), err)
			}
		}
	}

	catalog, err := domain.NewCatalog(s.version+1, entries)
	if err != nil {
		return nil, err
	}
	s.version++
	s.current.Store(catalog)

	logger.Info("[HYDRATE] labels=%d folders=%d version=%d", catalog.Len(), countDestinations(catalog), catalog.Version())
	return catalog, nil
}

// ensureFolder returns a usable folder ID for label: the existing one if it
// is still a live folder, else a same-named folder under the parent, else
// a newly created one.
func (s *CatalogService) ensureFolder(ctx context.Context, label, existingID string) (string, error) {
	if existingID != "" {
		meta, err := s.folders.Folder(ctx, existingID)
		switch {
		case err == nil && !meta.Trashed && meta.IsFolder():
			return existingID, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return "", err
		}
		logger.Warn("[FOLDER] %q no longer points at a live folder (%s)", label, existingID)
	}

	found, err := s.folders.FindFolder(ctx, label, s.parentID)
	if err == nil {
		return found.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	id, err := s.folders.CreateFolder(ctx, label, s.parentID)
	if err != nil {
		return "", err
	}
	logger.Info("[FOLDER] Created '%s' -> %s", label, id)
	return id, nil
}

func countDestinations(c *domain.Catalog) int {
	n := 0
	for _, e := range c.Entries() {
		if e.DestinationID != "" {
			n++
		}
	}
	return n
}
