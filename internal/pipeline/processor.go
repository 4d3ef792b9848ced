// Package pipeline drives a document through text extraction,
// classification and field extraction, committing after every stage.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
	"github.com/joseph-ayodele/tradedocs/internal/rules"
)

// CaseValidator runs the rule set of a case.
type CaseValidator interface {
	Run(ctx context.Context, caseID uuid.UUID) (*rules.Report, error)
}

type Config struct {
	CaseParallelism int // documents processed at once by ProcessCase; default 2
}

// Processor coordinates the stages. Errors it returns are infrastructure or
// precondition failures; document scoped failures are recorded on the
// document, which is returned in its error state.
type Processor struct {
	logger    *slog.Logger
	cfg       Config
	repos     *repository.Repositories
	text      *TextStage
	classify  *ClassifyStage
	fields    *FieldStage
	validator CaseValidator
}

func NewProcessor(
	logger *slog.Logger,
	cfg Config,
	repos *repository.Repositories,
	text *TextStage,
	classify *ClassifyStage,
	fields *FieldStage,
	validator CaseValidator,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CaseParallelism <= 0 {
		cfg.CaseParallelism = 2
	}
	return &Processor{
		logger:    logger,
		cfg:       cfg,
		repos:     repos,
		text:      text,
		classify:  classify,
		fields:    fields,
		validator: validator,
	}
}

// Process runs text extraction and classification. A document left in
// text_extracted by an interrupted run resumes at classification.
func (p *Processor) Process(ctx context.Context, documentID uuid.UUID) (*entity.Document, error) {
	doc, err := p.repos.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	var pages []*entity.Page
	switch doc.Status {
	case constants.DocumentUploaded, constants.DocumentProcessing:
		pages, err = p.text.Run(ctx, doc)
		if err != nil {
			return p.fail(ctx, doc, err)
		}
	case constants.DocumentTextExtracted:
		if pages, err = p.repos.Pages.ListByDocument(ctx, doc.ID); err != nil {
			return nil, err
		}
	default:
		return nil, common.InvalidStatef("document %s is %s; use retry to process it again", doc.ID, doc.Status)
	}

	if err := p.classify.Run(ctx, doc, pages); err != nil {
		return p.fail(ctx, doc, err)
	}
	p.logger.Info("processor.process.ok", "document_id", doc.ID, "doc_type", doc.TypeOrEmpty())
	if _, err := p.RefreshCaseStatus(ctx, doc.CaseID); err != nil {
		return nil, err
	}
	return p.repos.Documents.Get(ctx, doc.ID)
}

// ExtractFields runs field extraction on a classified document. deterministic
// selects the golden table replay instead of the model.
func (p *Processor) ExtractFields(ctx context.Context, documentID uuid.UUID, deterministic bool) (*entity.Document, error) {
	doc, err := p.repos.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := p.fields.Run(ctx, doc, deterministic); err != nil {
		return p.fail(ctx, doc, err)
	}
	if _, err := p.RefreshCaseStatus(ctx, doc.CaseID); err != nil {
		return nil, err
	}
	return p.repos.Documents.Get(ctx, doc.ID)
}

// Retry clears every derived record of the document, returns it to uploaded
// and processes it again.
func (p *Processor) Retry(ctx context.Context, documentID uuid.UUID) (*entity.Document, error) {
	doc, err := p.repos.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == constants.DocumentProcessing {
		return nil, common.InvalidStatef("document %s is being processed", doc.ID)
	}
	err = p.repos.Client.WithTx(ctx, func(ctx context.Context) error {
		if _, err := p.repos.Fields.DeleteByDocument(ctx, doc.ID); err != nil {
			return err
		}
		if err := p.repos.Pages.DeleteByDocument(ctx, doc.ID); err != nil {
			return err
		}
		return p.repos.Documents.ResetDerived(ctx, doc.ID)
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("processor.retry", "document_id", doc.ID, "previous_status", doc.Status)

	return p.Process(ctx, doc.ID)
}

// fail records a StageError on the document and recomputes the case status.
// Other errors are returned.
func (p *Processor) fail(ctx context.Context, doc *entity.Document, err error) (*entity.Document, error) {
	se, ok := asStageError(err)
	if !ok {
		p.logger.Error("processor.failed", "document_id", doc.ID, "error", err)
		return nil, err
	}
	// The document must be marked even when the stage ran out of time.
	ctx = context.WithoutCancel(ctx)
	if merr := p.repos.Documents.MarkError(ctx, doc.ID, se.Code, se.Message); merr != nil {
		return nil, merr
	}
	p.logger.Warn("processor.document.error", "document_id", doc.ID, "code", se.Code, "error", se.Err)
	if _, err := p.RefreshCaseStatus(ctx, doc.CaseID); err != nil {
		return nil, err
	}
	return p.repos.Documents.Get(ctx, doc.ID)
}
