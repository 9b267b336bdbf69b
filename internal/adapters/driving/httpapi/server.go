// Package httpapi exposes the watch control endpoints and the change
// notification receiver over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driving"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// Notification headers set by Google Drive push delivery.
const (
	HeaderChannelID     = "X-Goog-Channel-ID"
	HeaderResourceID    = "X-Goog-Resource-ID"
	HeaderResourceState = "X-Goog-Resource-State"
	HeaderMessageNumber = "X-Goog-Message-Number"
)

// Config holds the server settings.
type Config struct {
	// Addr is the listen address.
	Addr string

	// CallbackPath receives notifications, e.g. /drive/notifications.
	CallbackPath string

	// RoutePrefix prefixes the control endpoints, e.g. /drive.
	RoutePrefix string
}

// Server serves the HTTP surface.
type Server struct {
	cfg      Config
	receiver driving.NotificationReceiver
	watch    driving.WatchService
	catalog  driving.CatalogService
	mux      *http.ServeMux
}

// NewServer creates a server and registers its routes.
func NewServer(
	cfg Config,
	receiver driving.NotificationReceiver,
	watch driving.WatchService,
	catalog driving.CatalogService,
) *Server {
	cfg.RoutePrefix = strings.TrimRight(cfg.RoutePrefix, "/")
	s := &Server{
		cfg:      cfg,
		receiver: receiver,
		watch:    watch,
		catalog:  catalog,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("POST "+cfg.RoutePrefix+"/start-watch", s.handleStartWatch)
	s.mux.HandleFunc("POST "+cfg.RoutePrefix+"/stop-watch", s.handleStopWatch)
	s.mux.HandleFunc("POST "+cfg.RoutePrefix+"/ensure-folders", s.handleEnsureFolders)
	s.mux.HandleFunc("POST "+cfg.CallbackPath, s.handleNotification)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[HTTP] listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleStartWatch(w http.ResponseWriter, r *http.Request) {
	ch, err := s.watch.Start(r.Context())
	if err != nil {
		logger.Error("[WATCH] start failed: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "watching", "channel": ch})
}

func (s *Server) handleStopWatch(w http.ResponseWriter, r *http.Request) {
	stopped, err := s.watch.Stop(r.Context())
	if err != nil {
		logger.Error("[WATCH] stop failed: %v", err)
		writeError(w, err)
		return
	}
	status := "stopped"
	if !stopped {
		status = "no-active-channel"
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (s *Server) handleEnsureFolders(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.catalog.Hydrate(r.Context())
	if err != nil {
		logger.Error("[HYDRATE] ensure-folders failed: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"labels": catalog.Labels(),
		"count":  catalog.Len(),
	})
}

// handleNotification always acknowledges with 200 so the provider does
// not redeliver. The drain runs on the dispatcher, not on this request.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	n := domain.Notification{
		ChannelID:     r.Header.Get(HeaderChannelID),
		ResourceID:    r.Header.Get(HeaderResourceID),
		ResourceState: r.Header.Get(HeaderResourceState),
		MessageNumber: r.Header.Get(HeaderMessageNumber),
	}
	check := s.receiver.Receive(r.Context(), n)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if check == domain.ChannelValid {
		_, _ = w.Write([]byte("OK"))
		return
	}
	_, _ = w.Write([]byte(check.String()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	watching := false
	if ch, err := s.watch.Active(r.Context()); err == nil && ch != nil {
		watching = true
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"labels":   s.catalog.Current().Len(),
		"watching": watching,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("[HTTP] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrEmptyCatalog),
		errors.Is(err, domain.ErrDuplicateLabel),
		errors.Is(err, domain.ErrConfig),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("[HTTP] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
