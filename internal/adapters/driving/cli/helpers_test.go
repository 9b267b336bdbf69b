package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/driveroute/internal/adapters/driven/config"
	"github.com/custodia-labs/driveroute/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
)

// fakeDrive is an in-memory driveAPI.
type fakeDrive struct {
	mu       sync.Mutex
	folders  map[string]domain.ItemMeta
	parents  map[string][]string
	files    map[string][]byte
	pages    map[string]*domain.ChangePage
	start    string
	nextID   int
	stopped  []string
	watching []domain.WatchRequest
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		folders: make(map[string]domain.ItemMeta),
		parents: make(map[string][]string),
		files:   make(map[string][]byte),
		pages:   make(map[string]*domain.ChangePage),
		start:   "start-1",
	}
}

func (f *fakeDrive) StartPageToken(context.Context) (string, error) { return f.start, nil }

func (f *fakeDrive) ListChanges(_ context.Context, token string) (*domain.ChangePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page, ok := f.pages[token]; ok {
		return page, nil
	}
	return &domain.ChangePage{NewStartPageToken: token}, nil
}

func (f *fakeDrive) Export(_ context.Context, fileID, _ string) ([]byte, error) {
	return f.Download(context.Background(), fileID)
}

func (f *fakeDrive) Download(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (f *fakeDrive) Parents(_ context.Context, fileID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.parents[fileID]...), nil
}

func (f *fakeDrive) Move(_ context.Context, fileID, dest string, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parents[fileID] = []string{dest}
	return nil
}

func (f *fakeDrive) WatchChanges(_ context.Context, _ string, req domain.WatchRequest) (*domain.WatchChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watching = append(f.watching, req)
	exp := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	return &domain.WatchChannel{ID: req.ChannelID, ResourceID: "res-1", Expiration: &exp}, nil
}

func (f *fakeDrive) StopChannel(_ context.Context, channelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, channelID)
	return nil
}

func (f *fakeDrive) Folder(_ context.Context, id string) (*domain.ItemMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.folders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &meta, nil
}

func (f *fakeDrive) FindFolder(_ context.Context, name, parentID string) (*domain.ItemMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, meta := range f.folders {
		if meta.Name == name && meta.HasParent(parentID) {
			m := meta
			return &m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDrive) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("folder-%d", f.nextID)
	f.folders[id] = domain.ItemMeta{ID: id, Name: name, MimeType: domain.MimeTypeFolder, Parents: []string{parentID}}
	return id, nil
}

func (f *fakeDrive) AccountEmail(context.Context) (string, error) { return "user@example.com", nil }

// stubPDF never runs pdftotext.
type stubPDF struct{}

func (stubPDF) ExtractText(context.Context, []byte) (string, error) { return "", nil }

// cliEnv is a temp workspace with a config file and faked Drive.
type cliEnv struct {
	dir     string
	config  string
	catalog string
	drive   *fakeDrive
	store   *memory.StateStore
}

func setupCLI(t *testing.T, catalogCSV string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:     dir,
		config:  filepath.Join(dir, "driveroute.toml"),
		catalog: filepath.Join(dir, "folders.csv"),
		drive:   newFakeDrive(),
		store:   memory.NewStateStore(),
	}
	require.NoError(t, os.WriteFile(env.catalog, []byte(catalogCSV), 0644))
	require.NoError(t, os.WriteFile(env.config, []byte(`
[server]
public_url = "https://hooks.example.com"

[drive]
watch_folder_id = "inbox"
parent_folder_id = "parent"

[state]
driver = "memory"
`), 0600))

	origDrive, origStore, origExtractor := openDrive, openStateStore, newExtractor
	openDrive = func(context.Context, *config.Config) (driveAPI, error) { return env.drive, nil }
	openStateStore = func(context.Context, config.StateConfig) (driven.StateStore, error) { return env.store, nil }
	newExtractor = func() driven.TextExtractor { return stubPDF{} }
	t.Cleanup(func() {
		openDrive, openStateStore, newExtractor = origDrive, origStore, origExtractor
		configPath = ""
	})
	return env
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
