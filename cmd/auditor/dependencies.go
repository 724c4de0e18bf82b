package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/audit"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/discovery"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice/validation"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/parts"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/config"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/cron"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/db"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/push"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/storage"
)

// partsSource is what the run needs from a parts store.
type partsSource interface {
	parts.Lookup
	discovery.PartCatalog
}

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	Parts         partsSource
	DiscoverySink discovery.LogSink
	DiscoveryRepo *discovery.Repository

	// Services
	Lookup     validation.PartLookup
	Aggregator *discovery.Aggregator
	Processor  *audit.Processor
	Metrics    *audit.Metrics
	Registry   *prometheus.Registry
	Scheduler  *cron.Scheduler
	Input      storage.Storage
	Output     storage.Storage
	Push       *push.Service
	Email      *push.EmailService
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if cfg.Database.Enabled {
		if err := deps.initDatabase(); err != nil {
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
	}

	// Initialize repositories
	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	// Initialize services
	if err := deps.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		slog.Bool("database", deps.DB != nil),
		slog.String("validation_mode", string(cfg.Validation.Mode)),
	)

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	// Run migrations
	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories picks Postgres when a database is configured and
// in-memory stores otherwise.
func (d *Dependencies) initRepositories() error {
	if d.DB != nil {
		d.Parts = parts.NewRepository(d.DB.Pool)
		d.DiscoveryRepo = discovery.NewRepository(d.DB.Pool)
		d.DiscoverySink = d.DiscoveryRepo
		d.Logger.Info("repositories initialized", slog.String("store", "postgres"))
		return nil
	}

	catalog := parts.NewMemoryCatalog()
	if path := d.Config.Parts.CSVPath; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open parts csv: %w", err)
		}
		defer f.Close()

		if catalog, err = parts.LoadCSV(f); err != nil {
			return err
		}
	}
	d.Parts = catalog
	d.DiscoverySink = discovery.NewMemorySink()

	d.Logger.Info("repositories initialized",
		slog.String("store", "memory"),
		slog.String("parts_csv", d.Config.Parts.CSVPath),
	)
	return nil
}

// initServices initializes the business logic layer
func (d *Dependencies) initServices(ctx context.Context) error {
	d.Lookup = parts.NewCachingLookup(d.Parts)

	d.Aggregator = discovery.NewAggregator(d.DiscoverySink, d.Logger)
	if d.Config.Discovery.Suggestions {
		suggester, err := discovery.LoadSuggester(ctx, d.Parts, d.Config.Discovery.SuggestionLimit)
		if err != nil {
			return fmt.Errorf("load part suggestions: %w", err)
		}
		d.Aggregator.WithSuggester(suggester)
	}

	processor, err := audit.NewProcessor(audit.Config{
		Workers:     d.Config.Batch.Workers,
		FileTimeout: d.Config.Batch.FileTimeout,
		Validation:  d.Config.Validation.Configuration(),
	}, d.Lookup, d.Aggregator, d.Logger)
	if err != nil {
		return err
	}
	d.Processor = processor

	if d.Config.Observability.MetricsEnabled {
		d.Registry = prometheus.NewRegistry()
		d.Metrics = audit.NewMetrics(d.Registry)
		d.Processor.WithMetrics(d.Metrics)
	}

	if d.DiscoveryRepo != nil {
		d.Scheduler = cron.NewScheduler(d.DiscoveryRepo, cron.Config{
			Schedule:      d.Config.Discovery.CleanupSchedule,
			RetentionDays: d.Config.Discovery.RetentionDays,
		}, d.Logger)
	}

	if d.Input, err = storage.New(&storage.Config{
		Type:      storage.StorageTypeLocal,
		LocalPath: d.Config.Batch.InputDir,
	}); err != nil {
		return err
	}
	if d.Output, err = storage.New(&storage.Config{
		Type:      storage.StorageTypeLocal,
		LocalPath: filepath.Dir(d.Config.Report.OutputPath),
	}); err != nil {
		return err
	}

	d.Push = push.NewService(d.Config.Push.Endpoint, d.Config.Push.Tokens, d.Logger)
	d.Email = push.NewEmailService(d.Config.Push.ResendAPIKey, d.Config.Push.EmailFrom, d.Config.Push.EmailTo, d.Logger)

	d.Logger.Info("services initialized",
		slog.Bool("push", d.Push.Enabled()),
		slog.Bool("email", d.Email.Enabled()),
	)
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
