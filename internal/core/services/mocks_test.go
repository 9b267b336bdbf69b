package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/driveroute/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// --- Mock implementations shared by the pipeline tests ---

var _ driven.DriveClient = (*mockDrive)(nil)

type moveCall struct {
	FileID   string
	Dest     string
	Previous []string
}

// mockDrive is an in-memory remote store. Move rewrites the parents map so
// repeated routing observes the result of earlier moves.
type mockDrive struct {
	mu sync.Mutex

	startToken string
	startErr   error
	pages      map[string]*domain.ChangePage
	listErrs   map[string]error
	listCalls  []string

	exports   map[string][]byte
	downloads map[string][]byte
	readErr   error
	reads     []string

	parents    map[string][]string
	parentsErr error
	moveErr    error
	moves      []moveCall

	watchErr    error
	watchTokens []string
	watchReqs   []domain.WatchRequest
	stopErr     error
	stopped     []string

	folders      map[string]*domain.ItemMeta
	folderErr    error
	created      []string
	nextFolderID int
}

func newMockDrive() *mockDrive {
	return &mockDrive{
		startToken: "start-1",
		pages:      make(map[string]*domain.ChangePage),
		listErrs:   make(map[string]error),
		exports:    make(map[string][]byte),
		downloads:  make(map[string][]byte),
		parents:    make(map[string][]string),
		folders:    make(map[string]*domain.ItemMeta),
	}
}

func (m *mockDrive) StartPageToken(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startToken, m.startErr
}

func (m *mockDrive) ListChanges(_ context.Context, token string) (*domain.ChangePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls = append(m.listCalls, token)
	if err := m.listErrs[token]; err != nil {
		return nil, err
	}
	page, ok := m.pages[token]
	if !ok {
		return &domain.ChangePage{NewStartPageToken: token}, nil
	}
	return page, nil
}

func (m *mockDrive) Export(_ context.Context, id, mime string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, "export:"+id+":"+mime)
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.exports[id+"|"+mime], nil
}

func (m *mockDrive) Download(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, "download:"+id)
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.downloads[id], nil
}

func (m *mockDrive) Parents(_ context.Context, id string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.parentsErr != nil {
		return nil, m.parentsErr
	}
	return slices.Clone(m.parents[id]), nil
}

func (m *mockDrive) Move(_ context.Context, id, dest string, previous []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.moveErr != nil {
		return m.moveErr
	}
	m.moves = append(m.moves, moveCall{FileID: id, Dest: dest, Previous: slices.Clone(previous)})
	var kept []string
	for _, p := range m.parents[id] {
		if !slices.Contains(previous, p) {
			kept = append(kept, p)
		}
	}
	m.parents[id] = append(kept, dest)
	return nil
}

func (m *mockDrive) WatchChanges(_ context.Context, token string, req domain.WatchRequest) (*domain.WatchChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	m.watchTokens = append(m.watchTokens, token)
	m.watchReqs = append(m.watchReqs, req)
	return &domain.WatchChannel{ID: req.ChannelID, ResourceID: "res-" + req.ChannelID}, nil
}

func (m *mockDrive) StopChannel(_ context.Context, channelID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopped = append(m.stopped, channelID)
	return nil
}

func (m *mockDrive) Folder(_ context.Context, id string) (*domain.ItemMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.folderErr != nil {
		return nil, m.folderErr
	}
	f, ok := m.folders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *mockDrive) FindFolder(_ context.Context, name, parentID string) (*domain.ItemMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.folders {
		if f.Name == name && f.HasParent(parentID) && !f.Trashed && f.IsFolder() {
			cp := *f
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDrive) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFolderID++
	id := fmt.Sprintf("folder-%d", m.nextFolderID)
	m.folders[id] = &domain.ItemMeta{ID: id, Name: name, MimeType: domain.MimeTypeFolder, Parents: []string{parentID}}
	m.created = append(m.created, name)
	return id, nil
}

func (m *mockDrive) addFolder(id, name, parentID string) {
	m.folders[id] = &domain.ItemMeta{ID: id, Name: name, MimeType: domain.MimeTypeFolder, Parents: []string{parentID}}
}

func (m *mockDrive) moveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.moves)
}

// recordingCursors records every saved cursor on top of the memory store.
type recordingCursors struct {
	*memory.StateStore

	mu      sync.Mutex
	saved   []string
	saveErr error
}

func newRecordingCursors() *recordingCursors {
	return &recordingCursors{StateStore: memory.NewStateStore()}
}

func (r *recordingCursors) SaveCursor(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, token)
	return r.StateStore.SaveCursor(ctx, token)
}

func (r *recordingCursors) savedTokens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.saved)
}

// mockModel returns a canned outcome and records the inputs it saw.
type mockModel struct {
	mu      sync.Mutex
	outcome domain.ModelOutcome
	inputs  []domain.ClassifyInput
}

func (m *mockModel) Classify(_ context.Context, in domain.ClassifyInput) domain.ModelOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	return m.outcome
}

func (m *mockModel) ModelName() string { return "mock-model" }

// mockSource is an in-memory catalog source.
type mockSource struct {
	mu      sync.Mutex
	entries []domain.CatalogEntry
	loadErr error
	saves   [][]domain.CatalogEntry
}

func (m *mockSource) Load(_ context.Context) ([]domain.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return slices.Clone(m.entries), nil
}

func (m *mockSource) Save(_ context.Context, entries []domain.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = slices.Clone(entries)
	m.saves = append(m.saves, slices.Clone(entries))
	return nil
}

func (m *mockSource) Location() string { return "memory" }

// mockPDF returns fixed text or an error.
type mockPDF struct {
	text string
	err  error
}

func (m *mockPDF) ExtractText(_ context.Context, _ []byte) (string, error) {
	return m.text, m.err
}

// mockProcessor fails for item IDs listed in failIDs.
type mockProcessor struct {
	mu        sync.Mutex
	processed []string
	failIDs   map[string]bool
	action    domain.RouteAction
	after     func(id string)
}

func (m *mockProcessor) Process(_ context.Context, item domain.ItemMeta, _ *domain.Catalog) (domain.RouteOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, item.ID)
	if m.after != nil {
		defer m.after(item.ID)
	}
	if m.failIDs[item.ID] {
		return domain.RouteOutcome{}, fmt.Errorf("boom %s", item.ID)
	}
	action := m.action
	if action == "" {
		action = domain.RouteMoved
	}
	return domain.RouteOutcome{Action: action}, nil
}

// staticCatalog is a CatalogService that serves a fixed snapshot.
type staticCatalog struct {
	catalog   *domain.Catalog
	hydrateFn func() (*domain.Catalog, error)
	hydrates  int
}

func (s *staticCatalog) Hydrate(_ context.Context) (*domain.Catalog, error) {
	s.hydrates++
	if s.hydrateFn != nil {
		c, err := s.hydrateFn()
		if err == nil {
			s.catalog = c
		}
		return c, err
	}
	return s.catalog, nil
}

func (s *staticCatalog) Current() *domain.Catalog { return s.catalog }

// testCatalog builds the catalog used across the routing tests.
func testCatalog() *domain.Catalog {
	c, err := domain.NewCatalog(1, []domain.CatalogEntry{
		{Label: "Invoices", DestinationID: "F1", Description: "Bills and receipts"},
		{Label: "Academics", DestinationID: "F2"},
		{Label: "IDs", DestinationID: "F3"},
		{Label: "Misc", DestinationID: "F9"},
	})
	if err != nil {
		panic(err)
	}
	return c
}

func file(id, name, mime string, parents ...string) *domain.ItemMeta {
	return &domain.ItemMeta{ID: id, Name: name, MimeType: mime, Parents: parents}
}

func joined(parts []string) string { return strings.Join(parts, ",") }

// captureLog redirects the logger for the rest of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return &buf
}
