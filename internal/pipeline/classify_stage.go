package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/classify"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
)

// ClassifyStage assigns a doc type from the first page. It never fails the
// document: an uncertain answer is stored as a null doc type.
type ClassifyStage struct {
	repos      *repository.Repositories
	classifier classify.Classifier
	logger     *slog.Logger
}

func NewClassifyStage(repos *repository.Repositories, classifier classify.Classifier, logger *slog.Logger) *ClassifyStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyStage{repos: repos, classifier: classifier, logger: logger}
}

func (s *ClassifyStage) Run(ctx context.Context, doc *entity.Document, pages []*entity.Page) error {
	firstPage := ""
	if len(pages) > 0 {
		firstPage = pages[0].Text
	}

	var c repository.Classification
	if res := s.classifier.Classify(ctx, doc.OriginalFilename, firstPage); res != nil {
		docType, method, conf := res.DocType, res.Method, res.Confidence
		c = repository.Classification{DocType: &docType, Method: &method, Confidence: &conf}
	}
	if err := s.repos.Documents.MarkClassified(ctx, doc.ID, c); err != nil {
		return err
	}
	doc.Status = constants.DocumentClassified
	doc.DocType, doc.ClassificationMethod, doc.ClassificationConfidence = c.DocType, c.Method, c.Confidence

	if c.DocType == nil {
		s.logger.Warn("pipeline.classify.uncertain", "document_id", doc.ID, "filename", doc.OriginalFilename)
		return nil
	}
	s.logger.Info("pipeline.classify.ok",
		"document_id", doc.ID,
		"doc_type", *c.DocType,
		"method", *c.Method,
		"confidence", *c.Confidence,
	)
	return nil
}
