package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"wizqueue/internal/archive"
	"wizqueue/internal/config"
	"wizqueue/internal/daemon"
	"wizqueue/internal/extraction"
	"wizqueue/internal/httpapi"
	"wizqueue/internal/invoice"
	"wizqueue/internal/logging"
	"wizqueue/internal/preflight"
	"wizqueue/internal/processing"
	"wizqueue/internal/queue"
	"wizqueue/internal/rasterize"
	"wizqueue/internal/services/ollama"
	"wizqueue/internal/storage"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// SkipPreflight disables the startup readiness checks.
	SkipPreflight bool
}

// Run starts the wizqueue daemon and blocks until SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if !opts.SkipPreflight {
		logPreflight(signalCtx, logger, cfg)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "wizqueued.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	db, err := storage.Open(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}
	defer db.Close()

	queueStore := queue.NewStore(db)
	invoices := invoice.NewStore(db)

	model := ollama.NewClient(ollama.Config{
		BaseURL:        cfg.Ollama.BaseURL,
		Model:          cfg.Ollama.Model,
		TimeoutSeconds: cfg.Ollama.TimeoutSeconds,
		Temperature:    cfg.Ollama.Temperature,
		TopP:           cfg.Ollama.TopP,
	}, ollama.WithRetryMaxAttempts(cfg.Ollama.RetryAttempts))

	pipeline, err := NewPipeline(cfg, model, logger)
	if err != nil {
		return err
	}

	archiver, err := archive.New(cfg.Archive)
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}
	if m, ok := archiver.(*archive.Minio); ok {
		if err := m.EnsureBucket(signalCtx); err != nil {
			logger.Warn("archive bucket unavailable; uploads will not be archived until it is reachable",
				logging.String("bucket", m.Bucket()),
				logging.Error(err),
			)
		}
	}

	processor := processing.NewProcessor(invoices, pipeline, archiver, logger)
	pool := processing.NewPool(cfg.Processing.Workers, cfg.Processing.QueueSize, processor.Handle, logger)

	comps := daemon.Components{Pool: pool}
	switch cfg.Processing.Broker {
	case config.BrokerAMQP:
		publisher, err := processing.DialAMQPPublisher(cfg.Processing.AMQPURL, cfg.Processing.AMQPQueue)
		if err != nil {
			return err
		}
		comps.Dispatcher = publisher
		comps.Consumer = processing.NewAMQPConsumer(cfg.Processing.AMQPURL, cfg.Processing.AMQPQueue, pool, logger)
	default:
		comps.Dispatcher = processing.NewPoolDispatcher(pool)
		comps.Pending = invoices
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	api, err := httpapi.New(cfg, httpapi.Deps{
		Queue:      queueStore,
		Invoices:   invoices,
		Dispatcher: comps.Dispatcher,
		Tasks:      pool,
		DB:         db,
		Model:      model,
	}, logger)
	if err != nil {
		_ = comps.Dispatcher.Close()
		return fmt.Errorf("create api: %w", err)
	}
	comps.API = api

	d, err := daemon.New(cfg, comps, logger)
	if err != nil {
		_ = comps.Dispatcher.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	return d.Run(signalCtx)
}

// NewPipeline builds the extraction pipeline for cfg. The CLI extract
// command uses it too.
func NewPipeline(cfg *config.Config, model extraction.VisionModel, logger *slog.Logger) (*extraction.Pipeline, error) {
	rasterizer, err := rasterize.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init rasterizer: %w", err)
	}
	return extraction.NewPipeline(rasterizer, model,
		extraction.WithLogger(logger),
		extraction.WithPageConcurrency(cfg.Extraction.PageConcurrency),
	), nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			continue
		}
		logger.Warn("preflight check failed", logging.String("check", r.Name), logging.String("detail", r.Detail))
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
