package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"onthesis/adapters/excel"
	"onthesis/adapters/gcs"
	"onthesis/adapters/postgres"
	"onthesis/app"
	"onthesis/domain/dataset"
	"onthesis/internal"
	"onthesis/internal/config"
	storage "onthesis/internal/dataset"
	"onthesis/internal/metrics"
	"onthesis/internal/migration"
	"onthesis/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB       *sqlx.DB
	GCS      *gcs.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Storage tiers
	Remote ports.BlobStore
	Local  *storage.LocalFileStorage
	Store  *storage.HybridStore

	// Services
	Analysis  *app.AnalysisService
	Workspace *app.WorkspaceService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	}, nil
}

// Init connects the configured durable tier and wires the services.
func (c *Container) Init(ctx context.Context) error {
	if err := c.initMetrics(); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := c.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.initServices()
	c.Logger.With("container").Debug("initialized with durable tier %q", c.Config.Storage.Durable)
	return nil
}

func (c *Container) initMetrics() error {
	if !c.Config.Metrics.Enabled {
		return nil
	}
	c.Registry = prometheus.NewRegistry()
	m, err := metrics.New(c.Registry)
	if err != nil {
		return err
	}
	c.Metrics = m
	return nil
}

// initStorage builds the local tier and, when configured, the remote one.
// A remote tier that cannot be reached is logged and skipped so saves
// still land locally.
func (c *Container) initStorage(ctx context.Context) error {
	cfg := c.Config.Storage
	local, err := storage.NewLocalFileStorage(cfg.LocalPath)
	if err != nil {
		return err
	}
	c.Local = local

	log := c.Logger.With("container")
	switch cfg.Durable {
	case "postgres":
		if err := c.InitDatabase(ctx); err != nil {
			log.Warn("postgres tier unavailable, using local storage only: %v", err)
			break
		}
		c.Remote = postgres.NewDatasetBlobStore(c.DB)
	case "gcs":
		store, err := gcs.NewStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
		if err != nil {
			log.Warn("GCS tier unavailable, using local storage only: %v", err)
			break
		}
		c.GCS = store
		c.Remote = store
	}

	c.Store, err = storage.NewHybridStore(c.Remote, c.Local,
		storage.WithTimeout(cfg.Timeout),
		storage.WithLogger(c.Logger),
		storage.WithMetrics(c.Metrics),
		storage.WithDatasetOptions(dataset.WithHistoryLimit(c.Config.Analysis.HistoryLimit)),
	)
	return err
}

// InitDatabase opens the database and applies the blob table migration.
func (c *Container) InitDatabase(ctx context.Context) error {
	if c.DB != nil {
		return nil
	}
	db, err := postgres.Connect(ctx, c.Config.Storage.DatabaseURL)
	if err != nil {
		return err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return err
	}
	c.DB = db
	return nil
}

func (c *Container) initServices() {
	previewer := excel.NewPreviewer(excel.DefaultReaderConfig(), c.Logger)
	c.Analysis = app.NewAnalysisService(c.Store, c.Metrics, c.Logger)
	c.Workspace = app.NewWorkspaceService(c.Store, previewer, c.Logger)
}

// WriteMetrics writes the registry to path in text exposition format, for
// the node_exporter textfile collector. It does nothing when metrics are
// disabled.
func (c *Container) WriteMetrics(path string) error {
	if c.Registry == nil {
		c.Logger.With("container").Warn("metrics disabled, not writing %s", path)
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error
	if c.GCS != nil {
		if err := c.GCS.Close(); err != nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
