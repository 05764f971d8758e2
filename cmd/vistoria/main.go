package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/vistoria/internal/cache"
	"github.com/vbonduro/vistoria/internal/config"
	"github.com/vbonduro/vistoria/internal/db"
	"github.com/vbonduro/vistoria/internal/logging"
	"github.com/vbonduro/vistoria/internal/metrics"
	"github.com/vbonduro/vistoria/internal/photostore"
	"github.com/vbonduro/vistoria/internal/photostore/local"
	s3store "github.com/vbonduro/vistoria/internal/photostore/s3"
	"github.com/vbonduro/vistoria/internal/report"
	"github.com/vbonduro/vistoria/internal/service"
	"github.com/vbonduro/vistoria/internal/store"
	"github.com/vbonduro/vistoria/internal/vision"
	claudevision "github.com/vbonduro/vistoria/internal/vision/claude"
	ollamavision "github.com/vbonduro/vistoria/internal/vision/ollama"
	"github.com/vbonduro/vistoria/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	photoStg, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize photo store: %w", err)
	}
	if c, ok := photoStg.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("using UTC for report dates", "error", err)
	}

	m := metrics.New()
	opts := []service.Option{
		service.WithMetrics(m),
		service.WithLocation(loc),
		service.WithReportOptions(report.WithGeometry(report.Geometry{
			PageWidth:  cfg.ReportPageWidth,
			PageHeight: cfg.ReportPageHeight,
			Margin:     cfg.ReportMargin,
			LineHeight: cfg.ReportLineHeight,
		})),
	}

	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		logger.Info("using redis stats cache", "addr", cfg.RedisAddr, "ttl", cfg.StatsCacheTTL)
		opts = append(opts, service.WithStatsCache(cache.NewRedisStatsCache(client, cfg.StatsCacheTTL)))
	}

	if assessor := newAssessor(cfg, logger); assessor != nil {
		opts = append(opts, service.WithAssessor(assessor))
	}

	svc := service.NewInspectionService(
		store.NewPropertyStore(database),
		store.NewObservationStore(database),
		store.NewPhotoStore(database),
		store.NewSettingsStore(database),
		store.NewBackupStore(database),
		photoStg,
		logger,
		opts...,
	)
	server := web.NewServer(svc, m, logger)

	return server.ListenAndServe(ctx, cfg.ListenAddr)
}

func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (photostore.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case "s3":
		logger.Info("using S3 photo store", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return s3store.NewS3PhotoStore(ctx, s3store.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "local":
		logger.Info("using local photo store", "path", cfg.PhotoLocalPath)
		return local.NewLocalPhotoStore(cfg.PhotoLocalPath)
	default:
		return nil, fmt.Errorf("unknown PHOTO_BACKEND %q", cfg.PhotoBackend)
	}
}

// newAssessor returns nil when photo assessment is disabled or misconfigured.
func newAssessor(cfg *config.Config, logger *slog.Logger) vision.Assessor {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
			return nil
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeAssessor(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaAssessor(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("photo assessment disabled")
		return nil
	}
}
