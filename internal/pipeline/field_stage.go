package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/extract"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
)

const msgExtractorUnavailable = "AI extraction not available (no model provider configured)."

// FieldStage turns a classified document's pages into evidence backed fields.
type FieldStage struct {
	repos         *repository.Repositories
	model         extract.FieldExtractor
	deterministic extract.FieldExtractor
	logger        *slog.Logger
}

// NewFieldStage wires the extractors. model is nil when no provider is
// configured; deterministic may be nil when the golden table is not wanted.
func NewFieldStage(repos *repository.Repositories, model, deterministic extract.FieldExtractor, logger *slog.Logger) *FieldStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldStage{repos: repos, model: model, deterministic: deterministic, logger: logger}
}

// Run requires a classified or extracted document with a doc type. A
// previously extracted document loses its fields before the extractor runs.
func (s *FieldStage) Run(ctx context.Context, doc *entity.Document, deterministic bool) (*entity.ExtractionUsage, error) {
	if doc.Status != constants.DocumentClassified && doc.Status != constants.DocumentExtracted {
		return nil, common.InvalidStatef("document %s is %s; extraction needs classified or extracted", doc.ID, doc.Status)
	}
	if !doc.HasDocType() {
		return nil, common.InvalidStatef("document %s has no doc type; set it before extracting", doc.ID)
	}

	ex := s.model
	if deterministic {
		ex = s.deterministic
	}
	if ex == nil {
		return nil, stageError(constants.ErrExtractionFailed, msgExtractorUnavailable, nil)
	}

	if doc.Status == constants.DocumentExtracted {
		n, err := s.repos.Fields.DeleteByDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("pipeline.fields.cleared", "document_id", doc.ID, "deleted", n)
	}

	pages, err := s.repos.Pages.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, stageError(constants.ErrExtractionFailed, "The document has no extracted pages.", nil)
	}
	plain := make([]entity.Page, len(pages))
	for i, p := range pages {
		plain[i] = *p
	}

	out, err := ex.ExtractFields(ctx, doc.TypeOrEmpty(), plain)
	if err != nil {
		s.logger.Error("pipeline.fields.extract_failed", "document_id", doc.ID, "error", err)
		return nil, stageError(constants.ErrExtractionFailed, "", err)
	}

	source := ex.Source()
	kept := 0
	err = s.repos.Client.WithTx(ctx, func(ctx context.Context) error {
		for _, c := range out.Candidates {
			if strings.TrimSpace(c.Snippet) == "" || c.Page < 1 {
				s.logger.Warn("pipeline.fields.no_evidence", "document_id", doc.ID, "key", c.CanonicalKey)
				continue
			}
			if err := s.repos.Fields.Create(ctx, fieldFromCandidate(doc, c, source)); err != nil {
				return fmt.Errorf("create field %s: %w", c.CanonicalKey, err)
			}
			kept++
		}
		return s.repos.Documents.MarkExtracted(ctx, doc.ID)
	})
	if err != nil {
		return nil, err
	}
	doc.Status = constants.DocumentExtracted
	doc.ErrorCode, doc.ErrorMessage = nil, nil

	s.logger.Info("pipeline.fields.ok",
		"document_id", doc.ID,
		"doc_type", doc.TypeOrEmpty(),
		"source", source,
		"fields", kept,
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
		"pages_processed", out.Usage.PagesProcessed,
		"pages_skipped", out.Usage.PagesSkipped,
	)
	return &out.Usage, nil
}

func fieldFromCandidate(doc *entity.Document, c entity.FieldCandidate, source constants.FieldSource) *entity.ExtractedField {
	conf := c.Confidence
	return &entity.ExtractedField{
		DocumentID:   doc.ID,
		CaseID:       doc.CaseID,
		CanonicalKey: c.CanonicalKey,
		Value:        c.Value,
		Unit:         c.Unit,
		Page:         c.Page,
		Snippet:      c.Snippet,
		Confidence:   &conf,
		CreatedFrom:  source,
		Tier:         constants.TierL1,
		Status:       constants.FieldPendingReview,
		Visibility:   constants.SupplierOnly,
		Anchors: []entity.EvidenceAnchor{{
			DocumentID:  doc.ID,
			PageNo:      c.Page,
			SnippetText: c.Snippet,
		}},
	}
}
