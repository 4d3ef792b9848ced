package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/extract"
	"github.com/joseph-ayodele/tradedocs/internal/magic"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
	"github.com/joseph-ayodele/tradedocs/internal/storage"
)

// TextStage reads the stored bytes, checks their signature and persists the
// per-page text.
type TextStage struct {
	repos     *repository.Repositories
	store     storage.Store
	extractor extract.TextExtractor
	logger    *slog.Logger
}

func NewTextStage(repos *repository.Repositories, store storage.Store, extractor extract.TextExtractor, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{repos: repos, store: store, extractor: extractor, logger: logger}
}

// Run takes an uploaded document to text_extracted. Document scoped failures
// come back as *StageError; a signature mismatch is reported before the
// document enters processing.
func (s *TextStage) Run(ctx context.Context, doc *entity.Document) ([]*entity.Page, error) {
	data, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		s.logger.Error("pipeline.text.read_failed", "document_id", doc.ID, "path", doc.StoragePath, "error", err)
		return nil, stageError(constants.ErrUnsupportedFile, "", err)
	}
	if !magic.Matches(data, doc.MimeType) {
		s.logger.Warn("pipeline.text.magic_mismatch", "document_id", doc.ID, "mime", doc.MimeType, "sniffed", magic.Sniff(data))
		return nil, stageError(constants.ErrUnsupportedFile, "", nil)
	}

	if err := s.repos.Documents.SetProcessing(ctx, doc.ID); err != nil {
		return nil, err
	}
	doc.Status = constants.DocumentProcessing

	texts, err := s.extractor.Extract(ctx, data, doc.MimeType)
	if err != nil {
		code := ocr.CodeOf(err)
		msg := ""
		var ee *ocr.ExtractError
		if errors.As(err, &ee) {
			msg = ee.Message
		}
		s.logger.Error("pipeline.text.failed", "document_id", doc.ID, "code", code, "error", err)
		return nil, stageError(code, msg, err)
	}
	if len(texts) == 0 {
		return nil, stageError(constants.ErrOCRFailed, "", nil)
	}

	var pages []*entity.Page
	err = s.repos.Client.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if pages, err = s.repos.Pages.Replace(ctx, doc.ID, texts); err != nil {
			return err
		}
		return s.repos.Documents.MarkTextExtracted(ctx, doc.ID, len(pages))
	})
	if err != nil {
		return nil, fmt.Errorf("persist pages: %w", err)
	}
	doc.Status = constants.DocumentTextExtracted
	n := len(pages)
	doc.PageCount = &n

	s.logger.Info("pipeline.text.ok", "document_id", doc.ID, "pages", len(pages))
	return pages, nil
}
