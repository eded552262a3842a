// Package bootstrap assembles the application graph shared by the api and
// worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgesight/forgesight/internal/config"
	"github.com/forgesight/forgesight/internal/core/ports"
	"github.com/forgesight/forgesight/internal/core/usecase"
	"github.com/forgesight/forgesight/internal/infrastructure/analyzer/docmeta"
	"github.com/forgesight/forgesight/internal/infrastructure/analyzer/ela"
	"github.com/forgesight/forgesight/internal/infrastructure/analyzer/textlayout"
	"github.com/forgesight/forgesight/internal/infrastructure/imageprep"
	"github.com/forgesight/forgesight/internal/infrastructure/ocrengine"
	"github.com/forgesight/forgesight/internal/infrastructure/queue/nats"
	"github.com/forgesight/forgesight/internal/infrastructure/report"
	"github.com/forgesight/forgesight/internal/infrastructure/repository/postgres"
	"github.com/forgesight/forgesight/internal/infrastructure/resilience"
	"github.com/forgesight/forgesight/internal/infrastructure/storage/localfs"
	"github.com/forgesight/forgesight/internal/observability/logging"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Storage   ports.ObjectStorage
	Pipeline  ports.ForensicPipeline
	Renderer  ports.ReportRenderer
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string, observer usecase.PipelineObserver) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	analysisCfg := cfg.Analysis()
	preparer := imageprep.NewPreparer(cfg.TempDir)
	ocr := ocrengine.New()
	analyzers := []ports.SignalAnalyzer{
		ela.New(analysisCfg, cfg.TempDir),
		textlayout.New(analysisCfg, ocr, ports.OCROptions{
			Language:             cfg.OCRLanguage,
			PageSegmentationMode: cfg.OCRPageSegMod,
			EngineMode:           cfg.OCREngineMode,
		}, cfg.TempDir),
		docmeta.New(analysisCfg, preparer),
	}

	pipeline, err := usecase.NewFusionEngine(analysisCfg, preparer, analyzers, logger, observer)
	if err != nil {
		return nil, fmt.Errorf("init fusion engine: %w", err)
	}

	renderer := report.NewRenderer()
	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue, preparer)
	processUC := usecase.NewProcessDocumentUseCase(repo, storage, pipeline, renderer)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Repo:      repo,
		Storage:   storage,
		Pipeline:  pipeline,
		Renderer:  renderer,
		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
