package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/driveroute/internal/adapters/driven/catalog/file"
	"github.com/custodia-labs/driveroute/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/driveroute/internal/logger"
)

var serveStartWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive Drive change notifications and route new items",
	Long: `Starts the HTTP server. Notifications are acknowledged immediately and
the change feed is drained by a background worker.

Endpoints (with the default route prefix):
  POST /drive/start-watch      open a watch channel
  POST /drive/stop-watch       close the active channel
  POST /drive/ensure-folders   reload the catalog and provision folders
  POST /drive/notifications    notification receiver
  GET  /health                 liveness`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveStartWatch, "start-watch", false, "open a watch channel once the server is up")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	warnMissingPDFTool()

	catalog, err := a.catalog.Hydrate(ctx)
	if err != nil {
		return fmt.Errorf("hydrate catalog: %w", err)
	}
	logger.Info("[HYDRATE] %d labels from %s", catalog.Len(), a.source.Location())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.dispatcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("[DRAIN] worker stopped: %v", err)
		}
	}()

	if cfg.Catalog.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := file.NewWatcher(a.source, a.catalog, file.DefaultDebounce).Run(ctx); err != nil {
				logger.Error("[CATALOG] watcher stopped: %v", err)
			}
		}()
	}

	if serveStartWatch {
		ch, err := a.watch.Start(ctx)
		if err != nil {
			logger.Error("[WATCH] start failed: %v", err)
		} else {
			cmd.Printf("Watching channel %s\n", ch.ID)
		}
	}

	server := httpapi.NewServer(httpapi.Config{
		Addr:         cfg.Server.Addr,
		CallbackPath: cfg.Server.CallbackPath,
		RoutePrefix:  cfg.Server.RoutePrefix,
	}, a.dispatcher, a.watch, a.catalog)

	err = server.ListenAndServe(ctx)
	stop()
	a.dispatcher.Stop()
	wg.Wait()
	return err
}
