package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/driveroute/internal/adapters/driven/auth"
	"github.com/custodia-labs/driveroute/internal/adapters/driven/catalog/file"
	"github.com/custodia-labs/driveroute/internal/adapters/driven/classifier/openai"
	"github.com/custodia-labs/driveroute/internal/adapters/driven/config"
	"github.com/custodia-labs/driveroute/internal/adapters/driven/pdf"
	"github.com/custodia-labs/driveroute/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/driveroute/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/driveroute/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/driveroute/internal/connectors/google"
	"github.com/custodia-labs/driveroute/internal/connectors/google/drive"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
	"github.com/custodia-labs/driveroute/internal/core/services"
	"github.com/custodia-labs/driveroute/internal/logger"
)

// driveAPI is the Drive surface the commands use.
type driveAPI interface {
	driven.DriveClient
	AccountEmail(ctx context.Context) (string, error)
}

// Seams replaced in tests.
var (
	openDrive      = openGoogleDrive
	openStateStore = openConfiguredStore
	newExtractor   = func() driven.TextExtractor { return pdf.New() }
	checkPDFTool   = pdf.CheckAvailable
)

// warnMissingPDFTool logs install instructions when pdftotext is absent.
// PDFs are then classified by filename only.
func warnMissingPDFTool() bool {
	if err := checkPDFTool(); err != nil {
		logger.Warn("[PDF] %v; PDF text will not be extracted. %s", err, pdf.InstallInstructions())
		return false
	}
	return true
}

// app holds the wired services for one command invocation.
type app struct {
	cfg        *config.Config
	store      driven.StateStore
	drive      driveAPI
	source     *file.Source
	catalog    *services.CatalogService
	watch      *services.WatchService
	consumer   *services.ChangeFeedConsumer
	dispatcher *services.Dispatcher
}

// newApp wires every service from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	source, err := file.NewSource(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog source: %w", err)
	}

	store, err := openStateStore(ctx, cfg.State)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	drv, err := openDrive(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	catalog := services.NewCatalogService(source, drv, cfg.Drive.ParentFolderID)
	classifier := services.NewClassifier(
		newModel(cfg.Classifier),
		services.NewHeuristic(cfg.Router.CatchAllLabel),
		cfg.Classifier.MaxChars,
	)
	router := services.NewRouter(drv, services.RouterConfig{
		ConfidenceThreshold: cfg.Router.ConfidenceThreshold,
		CatchAllLabel:       cfg.Router.CatchAllLabel,
	})
	pipeline := services.NewItemPipeline(services.NewContentExtractor(drv, newExtractor()), classifier, router)
	consumer := services.NewChangeFeedConsumer(drv, store, catalog, pipeline, services.ChangeFeedConfig{
		WatchFolderID: cfg.Drive.WatchFolderID,
	})

	return &app{
		cfg:        cfg,
		store:      store,
		drive:      drv,
		source:     source,
		catalog:    catalog,
		watch:      services.NewWatchService(drv, drv, store, catalog, cfg.NotificationAddress()),
		consumer:   consumer,
		dispatcher: services.NewDispatcher(store, consumer, cfg.Worker.QueueSize),
	}, nil
}

// Close releases the state store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("close state store: %v", err)
	}
}

// newModel returns the model classifier, or nil when no API key is set.
func newModel(cfg config.ClassifierConfig) driven.ModelClassifier {
	if cfg.APIKey == "" {
		logger.Info("[CLASSIFY] no classifier API key; using keyword heuristic only")
		return nil
	}
	model, err := openai.NewClassifier(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: float32(cfg.Temperature),
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		logger.Warn("[CLASSIFY] model disabled: %v", err)
		return nil
	}
	return model
}

func openConfiguredStore(ctx context.Context, cfg config.StateConfig) (driven.StateStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		store, err := sqlite.NewStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.NewStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMemory:
		logger.Warn("memory state store: watch channel and cursor are lost on restart")
		return memory.NewStateStore(), nil
	default:
		return nil, fmt.Errorf("unknown state driver %q", cfg.Driver)
	}
}

// newTokenProvider builds the OAuth token provider from the configured files.
func newTokenProvider(cfg *config.Config) (*auth.OAuthProvider, error) {
	oauthCfg, err := auth.LoadOAuthConfig(cfg.Drive.ClientSecretFile, google.DriveScope)
	if err != nil {
		return nil, err
	}
	return auth.NewOAuthProvider(oauthCfg, auth.NewTokenStore(cfg.Drive.TokenFile)), nil
}

func openGoogleDrive(ctx context.Context, cfg *config.Config) (driveAPI, error) {
	provider, err := newTokenProvider(cfg)
	if err != nil {
		return nil, err
	}
	if !provider.IsAuthenticated() {
		return nil, errors.New("not authenticated: run 'driveroute auth login' first")
	}

	svc, err := google.NewDriveService(ctx, google.NewTokenSource(ctx, provider))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	driveCfg := drive.DefaultConfig()
	driveCfg.PageSize = cfg.Drive.PageSize
	driveCfg.RateLimit = google.RateLimitConfig{
		RequestsPerSecond: cfg.Drive.RequestsPerSecond,
		BurstSize:         cfg.Drive.Burst,
	}
	driveCfg.OnUnauthorized = provider.InvalidateCache
	return drive.NewClient(svc, driveCfg), nil
}
