// Package server wires configuration into the services shared by the CLI and
// the daemon, and hosts the daemon's gRPC surface.
package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/tradedocs/internal/classify"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/export"
	"github.com/joseph-ayodele/tradedocs/internal/extract"
	"github.com/joseph-ayodele/tradedocs/internal/ingest"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
	"github.com/joseph-ayodele/tradedocs/internal/llm/provider"
	"github.com/joseph-ayodele/tradedocs/internal/metrics"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
	repo "github.com/joseph-ayodele/tradedocs/internal/repository"
	"github.com/joseph-ayodele/tradedocs/internal/review"
	"github.com/joseph-ayodele/tradedocs/internal/rules"
	"github.com/joseph-ayodele/tradedocs/internal/storage"
)

// App holds every service built from one Config.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	DB        *repo.Client
	Repos     *repo.Repositories
	Store     *storage.LocalStore
	Processor *pipeline.Processor
	Rules     *rules.Engine
	Ingest    *ingest.Service
	Review    *review.Service
	Metrics   *metrics.Service
	Export    *export.Service

	// Completer is nil when no model provider is configured.
	Completer llm.Completer
}

// NewApp connects the database and builds the services. Close releases it.
func NewApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	app, err := build(cfg, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func build(cfg *common.Config, db *repo.Client, logger *slog.Logger) (*App, error) {
	repos := repo.NewRepositories(db, logger)

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir, logger)
	if err != nil {
		return nil, err
	}

	textExtractor := ocr.NewExtractor(OCRConfig(cfg.OCR), logger)

	mock, err := extract.NewMock(logger)
	if err != nil {
		return nil, err
	}

	completer := provider.New(cfg.LLM, logger)

	var (
		modelClassifier classify.Classifier
		modelExtractor  extract.FieldExtractor
	)
	if completer != nil {
		mc, err := classify.NewModel(completer, logger)
		if err != nil {
			return nil, err
		}
		modelClassifier = mc
		modelExtractor = extract.NewModel(completer, logger)
	}
	if cfg.LLM.UseMock {
		logger.Info("server.extractor.mock")
		modelExtractor = mock
	}

	engine := rules.NewEngine(repos, logger)
	processor := pipeline.NewProcessor(
		logger,
		pipeline.Config{CaseParallelism: cfg.Worker.CaseParallelism},
		repos,
		pipeline.NewTextStage(repos, store, textExtractor, logger),
		pipeline.NewClassifyStage(repos, classify.NewComposite(classify.NewHeuristic(), modelClassifier, logger), logger),
		pipeline.NewFieldStage(repos, modelExtractor, mock, logger),
		engine,
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Repos:     repos,
		Store:     store,
		Processor: processor,
		Rules:     engine,
		Ingest:    ingest.NewService(repos, store, logger),
		Review:    review.NewService(repos, logger),
		Metrics:   metrics.NewService(repos, logger),
		Export:    export.NewService(repos, logger),
		Completer: completer,
	}, nil
}

// OCRConfig maps the config section onto the extractor's settings.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		MinTextChars:  c.MinTextChars,
	}
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
