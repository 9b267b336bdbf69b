package drive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/driveroute/internal/core/domain"
)

// fakeDrive records requests and answers with canned handlers keyed by
// "METHOD /path".
type fakeDrive struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
	bodies   []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.bodies = append(f.bodies, string(body))
	h, ok := f.handlers[r.Method+" "+strings.TrimPrefix(r.URL.Path, "/drive/v3")]
	f.mu.Unlock()
	if !ok {
		writeAPIError(w, http.StatusNotFound, "no handler for "+r.Method+" "+r.URL.Path)
		return
	}
	h(w, r)
}

func (f *fakeDrive) last() (*http.Request, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1], f.bodies[len(f.bodies)-1]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func newTestClient(t *testing.T, cfg Config) (*Client, *fakeDrive) {
	t.Helper()
	fake := &fakeDrive{handlers: make(map[string]http.HandlerFunc)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewClient(svc, cfg), fake
}

func TestClient_StartPageToken(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	fake.handlers["GET /changes/startPageToken"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"startPageToken": "1234"})
	}

	token, err := c.StartPageToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1234", token)
}

func TestClient_UnauthorizedInvalidatesToken(t *testing.T) {
	var invalidated int
	c, fake := newTestClient(t, Config{OnUnauthorized: func() { invalidated++ }})
	fake.handlers["GET /changes/startPageToken"] = func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, http.StatusUnauthorized, "Invalid Credentials")
	}

	_, err := c.StartPageToken(context.Background())

	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Equal(t, 1, invalidated)

	fake.handlers["GET /changes/startPageToken"] = func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, http.StatusNotFound, "gone")
	}
	_, err = c.StartPageToken(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, invalidated, "only 401 drops the token")
}

func TestClient_ListChanges(t *testing.T) {
	c, fake := newTestClient(t, Config{PageSize: 50})
	fake.handlers["GET /changes"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"nextPageToken": "next",
			"changes": []map[string]any{
				{"fileId": "f1", "removed": false, "time": "2026-01-02T03:04:05Z", "file": map[string]any{
					"id": "f1", "name": "invoice.pdf", "mimeType": "application/pdf", "parents": []string{"W"},
				}},
				{"fileId": "f2", "removed": true},
			},
		})
	}

	page, err := c.ListChanges(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "next", page.NextPageToken)
	assert.Empty(t, page.NewStartPageToken)
	require.Len(t, page.Records, 2)

	first := page.Records[0]
	assert.Equal(t, "f1", first.ItemID)
	require.NotNil(t, first.Item)
	assert.Equal(t, "invoice.pdf", first.Item.Name)
	assert.Equal(t, []string{"W"}, first.Item.Parents)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), first.Time.UTC())

	assert.True(t, page.Records[1].Removed)
	assert.Nil(t, page.Records[1].Item)

	req, _ := fake.last()
	q := req.URL.Query()
	assert.Equal(t, "tok", q.Get("pageToken"))
	assert.Equal(t, "50", q.Get("pageSize"))
	assert.Equal(t, "true", q.Get("supportsAllDrives"))
	assert.Equal(t, "true", q.Get("includeItemsFromAllDrives"))
	assert.Contains(t, q.Get("fields"), "newStartPageToken")
}

func TestClient_ListChanges_Expired(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	fake.handlers["GET /changes"] = func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, http.StatusGone, "page token expired")
	}

	_, err := c.ListChanges(context.Background(), "old")

	assert.ErrorIs(t, err, domain.ErrCursorExpired)
}

func TestClient_ExportAndDownload(t *testing.T) {
	c, fake := newTestClient(t, Config{MaxDownloadSize: 4})
	fake.handlers["GET /files/doc1/export"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.URL.Query().Get("mimeType"))
		_, _ = w.Write([]byte("exported text"))
	}
	fake.handlers["GET /files/bin1"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		_, _ = w.Write([]byte("0123456789"))
	}

	text, err := c.Export(context.Background(), "doc1", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "exported text", string(text))

	data, err := c.Download(context.Background(), "bin1")
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data), "download is capped")
}

func TestClient_ParentsAndMove(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	fake.handlers["GET /files/f1"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"parents": []string{"A", "B"}})
	}
	fake.handlers["PATCH /files/f1"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"id": "f1", "parents": []string{"D"}})
	}

	parents, err := c.Parents(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, parents)

	require.NoError(t, c.Move(context.Background(), "f1", "D", parents))
	req, _ := fake.last()
	assert.Equal(t, "D", req.URL.Query().Get("addParents"))
	assert.Equal(t, "A,B", req.URL.Query().Get("removeParents"))
}

func TestClient_WatchAndStop(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	exp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	fake.handlers["POST /changes/watch"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"id": "ch-1", "resourceId": "res-9", "expiration": "1777593600000",
		})
	}
	fake.handlers["POST /channels/stop"] = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}

	ch, err := c.WatchChanges(context.Background(), "tok", domain.WatchRequest{ChannelID: "ch-1", Address: "https://x/cb"})
	require.NoError(t, err)
	assert.Equal(t, "ch-1", ch.ID)
	assert.Equal(t, "res-9", ch.ResourceID)
	assert.Equal(t, "https://x/cb", ch.Address)
	require.NotNil(t, ch.Expiration)
	assert.True(t, exp.Equal(*ch.Expiration))

	req, body := fake.last()
	assert.Equal(t, "tok", req.URL.Query().Get("pageToken"))
	assert.Contains(t, body, `"type":"web_hook"`)
	assert.Contains(t, body, `"address":"https://x/cb"`)

	require.NoError(t, c.StopChannel(context.Background(), "ch-1", "res-9"))
	_, body = fake.last()
	assert.Contains(t, body, `"resourceId":"res-9"`)
}

func TestClient_StopUnknownChannel(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	fake.handlers["POST /channels/stop"] = func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, http.StatusNotFound, "Channel not found")
	}

	err := c.StopChannel(context.Background(), "gone", "r")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_Folders(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	fake.handlers["GET /files/F1"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"id": "F1", "name": "Invoices", "mimeType": domain.MimeTypeFolder, "trashed": true})
	}
	fake.handlers["GET /files"] = func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("q"), "Invoices") {
			writeJSON(w, map[string]any{"files": []map[string]any{{"id": "F7", "name": "Invoices", "mimeType": domain.MimeTypeFolder}}})
			return
		}
		writeJSON(w, map[string]any{"files": []any{}})
	}
	fake.handlers["POST /files"] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"id": "F8"})
	}

	meta, err := c.Folder(context.Background(), "F1")
	require.NoError(t, err)
	assert.True(t, meta.Trashed)
	assert.True(t, meta.IsFolder())

	_, err = c.Folder(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	found, err := c.FindFolder(context.Background(), "Invoices", "P")
	require.NoError(t, err)
	assert.Equal(t, "F7", found.ID)

	_, err = c.FindFolder(context.Background(), "Rock 'n' Roll", "P")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	req, _ := fake.last()
	assert.Equal(t,
		`name = 'Rock \'n\' Roll' and 'P' in parents and mimeType = 'application/vnd.google-apps.folder' and trashed = false`,
		req.URL.Query().Get("q"))

	id, err := c.CreateFolder(context.Background(), "Misc", "P")
	require.NoError(t, err)
	assert.Equal(t, "F8", id)
	_, body := fake.last()
	assert.Contains(t, body, `"parents":["P"]`)
	assert.Contains(t, body, `"mimeType":"application/vnd.google-apps.folder"`)
}

func TestClient_RateLimitedBacksOff(t *testing.T) {
	c, fake := newTestClient(t, Config{})
	fake.handlers["GET /files/f1"] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		writeAPIError(w, http.StatusTooManyRequests, "slow down")
	}

	_, err := c.Parents(context.Background(), "f1")

	require.Error(t, err)
	assert.False(t, c.limiter.Allow(), "limiter should be in back-off")
}

func TestFolderQuery_Escapes(t *testing.T) {
	assert.Equal(t, `a\\b\'c`, escapeQuery(`a\b'c`))
	assert.Nil(t, expirationTime(0))
	assert.Nil(t, toItemMeta(nil))
}
