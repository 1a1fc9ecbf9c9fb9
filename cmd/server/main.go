package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/tadbeer/visaflow/internal/application/service"
	"github.com/tadbeer/visaflow/internal/config"
	"github.com/tadbeer/visaflow/internal/infrastructure/persistence/repository"
	"github.com/tadbeer/visaflow/internal/infrastructure/storage"
	httpadapter "github.com/tadbeer/visaflow/internal/interfaces/http"
	"github.com/tadbeer/visaflow/internal/lookup"
	"github.com/tadbeer/visaflow/internal/metrics"
	"github.com/tadbeer/visaflow/internal/report"
	"github.com/tadbeer/visaflow/pkg/database"
	"github.com/tadbeer/visaflow/pkg/utils"
)

func main() {
	// A local .env overrides nothing already exported; absence is fine.
	_ = gotenv.Load()

	configPath := os.Getenv("VISAFLOW_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting visa case workflow service",
		zap.Int("port", cfg.Server.Port),
		zap.String("db", cfg.Database.Path))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create database directory", zap.Error(err))
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(ctx, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	attachmentStore, err := storage.NewAttachmentStore(cfg.Attachments.BaseDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize attachment store", zap.Error(err))
	}

	caseRepo := repository.NewCaseRepository(db, logger)
	lookupSource := repository.NewLookupSource(db, logger)

	lookups := lookup.NewProvider(lookupSource, logger,
		lookup.WithRefreshInterval(cfg.Lookups.RefreshInterval))
	if err := lookups.Init(ctx); err != nil {
		logger.Fatal("Failed to load lookup data", zap.Error(err))
	}
	if err := lookups.StartAutoRefresh(ctx); err != nil {
		logger.Fatal("Failed to start lookup refresher", zap.Error(err))
	}
	defer lookups.Stop()

	m := metrics.New()

	caseService := service.NewCaseService(caseRepo, lookups, attachmentStore, m, logger)
	custodyService := service.NewCustodyService(caseRepo, attachmentStore, m, logger)
	exporter := report.NewRegisterExporter(caseRepo, logger)

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, caseService, custodyService, lookups, exporter, attachmentStore, logger)

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}
