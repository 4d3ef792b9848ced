// Package review applies reviewer decisions to extracted fields, document
// types and checklist items.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
)

// Service handles review business logic.
type Service struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewService creates a new review service.
func NewService(repos *repository.Repositories, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, logger: logger}
}

// Approve promotes a field to L2 and makes it visible to the buyer.
func (s *Service) Approve(ctx context.Context, fieldID uuid.UUID) (*entity.ExtractedField, error) {
	f, err := s.repos.Fields.Get(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	f.Tier = constants.TierL2
	f.Status = constants.FieldApproved
	f.Visibility = constants.BuyerVisible
	if err := s.repos.Fields.Update(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("review.field.approved", "field_id", f.ID, "key", f.CanonicalKey, "actor", common.ActorFromContext(ctx))
	return f, nil
}

type RejectRequest struct {
	FieldID uuid.UUID `validate:"required"`
	Reason  string    `validate:"max=500"`
}

// Reject marks the field rejected and opens a missing_field checklist item
// asking the supplier for a replacement.
func (s *Service) Reject(ctx context.Context, req RejectRequest) (*entity.ExtractedField, *entity.ChecklistItem, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, nil, err
	}
	f, err := s.repos.Fields.Get(ctx, req.FieldID)
	if err != nil {
		return nil, nil, err
	}

	label := constants.Label(f.CanonicalKey)
	desc := fmt.Sprintf("The value %q for %s was rejected during review.", f.Value, label)
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		desc += " Reason: " + reason
	}
	fid := f.ID
	item := &entity.ChecklistItem{
		CaseID:         f.CaseID,
		Type:           constants.ChecklistMissingField,
		Severity:       constants.SeverityHigh,
		Title:          "Rejected Field: " + label,
		Description:    desc,
		RelatedFieldID: &fid,
	}

	err = s.repos.Client.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Fields.SetStatus(ctx, []uuid.UUID{f.ID}, constants.FieldRejected); err != nil {
			return err
		}
		return s.repos.Checklist.Create(ctx, item)
	})
	if err != nil {
		return nil, nil, err
	}
	f.Status = constants.FieldRejected
	s.logger.Info("review.field.rejected", "field_id", f.ID, "key", f.CanonicalKey, "checklist_id", item.ID)
	return f, item, nil
}

// UpdateRequest carries the columns a reviewer wants to change. Nil means
// unchanged.
type UpdateRequest struct {
	FieldID uuid.UUID              `validate:"required"`
	Value   *string                `validate:"omitempty,not_blank"`
	Unit    *string                `validate:"omitempty,max=32"`
	Page    *int                   `validate:"omitempty,gte=1"`
	Snippet *string                `validate:"omitempty,not_blank"`
	Status  *constants.FieldStatus `validate:"omitempty,oneof=pending_review approved conflict rejected"`
}

// Update edits a field. A new value must come with the snippet that supports
// it; snippet and page changes are mirrored on the field's anchor.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*entity.ExtractedField, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.Value != nil && req.Snippet == nil {
		return nil, common.InvalidInputf("a new value requires a snippet as evidence")
	}
	f, err := s.repos.Fields.Get(ctx, req.FieldID)
	if err != nil {
		return nil, err
	}

	if req.Value != nil {
		v := strings.TrimSpace(*req.Value)
		if v != f.Value {
			f.Value = v
			f.CreatedFrom = constants.SourceManual
		}
	}
	if req.Unit != nil {
		f.Unit = nil
		if u := strings.TrimSpace(*req.Unit); u != "" {
			f.Unit = &u
		}
	}
	evidenceChanged := false
	if req.Page != nil && *req.Page != f.Page {
		f.Page = *req.Page
		evidenceChanged = true
	}
	if req.Snippet != nil && strings.TrimSpace(*req.Snippet) != f.Snippet {
		f.Snippet = strings.TrimSpace(*req.Snippet)
		evidenceChanged = true
	}
	if req.Status != nil {
		f.Status = *req.Status
	}

	err = s.repos.Client.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Fields.Update(ctx, f); err != nil {
			return err
		}
		if !evidenceChanged || len(f.Anchors) == 0 {
			return nil
		}
		a := &f.Anchors[0]
		a.PageNo = f.Page
		a.SnippetText = f.Snippet
		return s.repos.Fields.UpdateAnchor(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("review.field.updated", "field_id", f.ID, "key", f.CanonicalKey, "source", f.CreatedFrom, "evidence_changed", evidenceChanged)
	return f, nil
}

type ManualFieldRequest struct {
	DocumentID   uuid.UUID `validate:"required"`
	CanonicalKey string    `validate:"required,canonical_key"`
	Value        string    `validate:"not_blank"`
	Unit         string    `validate:"max=32"`
	Page         int       `validate:"gte=1"`
	Snippet      string    `validate:"not_blank"`
}

// AddManualField records a value the reviewer read from the document.
func (s *Service) AddManualField(ctx context.Context, req ManualFieldRequest) (*entity.ExtractedField, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	doc, err := s.repos.Documents.Get(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.PageCount != nil && req.Page > *doc.PageCount {
		return nil, common.InvalidInputf("page %d is beyond the document's %d pages", req.Page, *doc.PageCount)
	}

	snippet := strings.TrimSpace(req.Snippet)
	f := &entity.ExtractedField{
		DocumentID:   doc.ID,
		CaseID:       doc.CaseID,
		CanonicalKey: req.CanonicalKey,
		Value:        strings.TrimSpace(req.Value),
		Page:         req.Page,
		Snippet:      snippet,
		CreatedFrom:  constants.SourceManual,
		Anchors: []entity.EvidenceAnchor{{
			DocumentID:  doc.ID,
			PageNo:      req.Page,
			SnippetText: snippet,
		}},
	}
	if u := strings.TrimSpace(req.Unit); u != "" {
		f.Unit = &u
	}
	if err := s.repos.Fields.Create(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("review.field.added", "field_id", f.ID, "document_id", doc.ID, "key", f.CanonicalKey)
	return f, nil
}

// SetDocType overrides the classification of a document. Existing fields are
// kept; extract again to replace them.
func (s *Service) SetDocType(ctx context.Context, documentID uuid.UUID, docType string) (*entity.Document, error) {
	t, ok := constants.ParseDocType(docType)
	if !ok {
		return nil, common.InvalidInputf("unknown document type %q", docType)
	}
	doc, err := s.repos.Documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != constants.DocumentClassified && doc.Status != constants.DocumentExtracted {
		return nil, common.InvalidStatef("document %s is %s; only classified documents can be retyped", doc.ID, doc.Status)
	}
	if err := s.repos.Documents.SetDocType(ctx, doc.ID, t); err != nil {
		return nil, err
	}
	s.logger.Info("review.document.retyped", "document_id", doc.ID, "from", doc.TypeOrEmpty(), "to", t)
	return s.repos.Documents.Get(ctx, doc.ID)
}

// SetChecklistStatus moves a checklist item to done, open or reopened.
func (s *Service) SetChecklistStatus(ctx context.Context, itemID uuid.UUID, status string) (*entity.ChecklistItem, error) {
	st := constants.ChecklistStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.IsValid() {
		return nil, common.InvalidInputf("checklist status must be one of done, open, reopened; got %q", status)
	}
	item, err := s.repos.Checklist.SetStatus(ctx, itemID, st)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review.checklist.status", "item_id", item.ID, "status", item.Status)
	return item, nil
}
