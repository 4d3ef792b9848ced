package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

const (
	tableFields  = "extracted_fields"
	tableAnchors = "evidence_anchors"
)

var fieldColumns = []string{
	"id", "document_id", "case_id", "canonical_key", "value", "unit", "page", "snippet", "confidence",
	"created_from", "tier", "status", "visibility", "created_at", "updated_at",
}

var anchorColumns = []string{"id", "field_id", "document_id", "page_no", "snippet_text", "bbox", "snippet_hash"}

type FieldRepository interface {
	// Create inserts the field together with its anchors. A field without a
	// usable anchor is rejected with ErrInvalidInput.
	Create(ctx context.Context, f *entity.ExtractedField) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractedField, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.ExtractedField, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.ExtractedField, error)
	// DeleteByDocument removes the document's fields; anchors cascade.
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
	SetStatus(ctx context.Context, ids []uuid.UUID, status constants.FieldStatus) error
	// Update writes every mutable column of f. Anchors are not touched.
	Update(ctx context.Context, f *entity.ExtractedField) error
	UpdateAnchor(ctx context.Context, a *entity.EvidenceAnchor) error
}

type fieldRepository struct {
	client *Client
	logger *slog.Logger
}

func NewFieldRepository(client *Client, logger *slog.Logger) FieldRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &fieldRepository{
		client: client,
		logger: logger,
	}
}

func (r *fieldRepository) Create(ctx context.Context, f *entity.ExtractedField) error {
	if f.Snippet == "" || f.Page < 1 || !f.HasEvidence() {
		return common.InvalidInputf("field %s has no evidence anchor", f.CanonicalKey)
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Tier == "" {
		f.Tier = constants.TierL1
	}
	if f.Status == "" {
		f.Status = constants.FieldPendingReview
	}
	if f.Visibility == "" {
		f.Visibility = constants.SupplierOnly
	}
	if f.CreatedFrom == "" {
		f.CreatedFrom = constants.SourceExtraction
	}
	ts := now()
	f.CreatedAt, f.UpdatedAt = ts, ts

	err := r.client.WithTx(ctx, func(ctx context.Context) error {
		q, args := r.client.builder().Insert(tableFields).
			Columns(fieldColumns...).
			Values(
				f.ID, f.DocumentID, f.CaseID, f.CanonicalKey, f.Value, nullablePtr(f.Unit), f.Page, f.Snippet,
				nullableFloat(f.Confidence), string(f.CreatedFrom), string(f.Tier), string(f.Status),
				string(f.Visibility), f.CreatedAt, f.UpdatedAt,
			).
			Query()
		if _, err := r.client.exec(ctx, q, args); err != nil {
			return err
		}

		ins := r.client.builder().Insert(tableAnchors).Columns(anchorColumns...)
		for i := range f.Anchors {
			a := &f.Anchors[i]
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			a.FieldID = f.ID
			if a.DocumentID == uuid.Nil {
				a.DocumentID = f.DocumentID
			}
			if a.SnippetHash == "" {
				a.SnippetHash = entity.SnippetHash(a.SnippetText)
			}
			bbox, err := encodeBBox(a.BBox)
			if err != nil {
				return err
			}
			ins.Values(a.ID, a.FieldID, a.DocumentID, a.PageNo, a.SnippetText, bbox, a.SnippetHash)
		}
		q, args = ins.Query()
		_, err := r.client.exec(ctx, q, args)
		return err
	})
	if err != nil {
		r.logger.Error("failed to create field", "document_id", f.DocumentID, "key", f.CanonicalKey, "error", err)
		return dbError("create field", err)
	}
	return nil
}

func (r *fieldRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractedField, error) {
	out, err := r.selectFields(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NotFoundf("field %s", id)
	}
	return out[0], nil
}

func (r *fieldRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.ExtractedField, error) {
	return r.selectFields(ctx, entsql.EQ("case_id", caseID))
}

func (r *fieldRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.ExtractedField, error) {
	return r.selectFields(ctx, entsql.EQ("document_id", documentID))
}

func (r *fieldRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	var n int64
	err := r.client.WithTx(ctx, func(ctx context.Context) error {
		// Anchors are removed explicitly so the result does not depend on
		// the connection having foreign keys enabled.
		q, args := r.client.builder().Delete(tableAnchors).Where(entsql.EQ("document_id", documentID)).Query()
		if _, err := r.client.exec(ctx, q, args); err != nil {
			return err
		}
		q, args = r.client.builder().Delete(tableFields).Where(entsql.EQ("document_id", documentID)).Query()
		var err error
		n, err = r.client.exec(ctx, q, args)
		return err
	})
	if err != nil {
		r.logger.Error("failed to delete fields", "document_id", documentID, "error", err)
		return 0, dbError("delete fields", err)
	}
	return n, nil
}

func (r *fieldRepository) SetStatus(ctx context.Context, ids []uuid.UUID, status constants.FieldStatus) error {
	if len(ids) == 0 {
		return nil
	}
	q, args := r.client.builder().Update(tableFields).
		Set("status", string(status)).
		Set("updated_at", now()).
		Where(entsql.In("id", uuidArgs(ids)...)).
		Query()
	if _, err := r.client.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to set field status", "count", len(ids), "status", status, "error", err)
		return dbError("set field status", err)
	}
	return nil
}

func (r *fieldRepository) Update(ctx context.Context, f *entity.ExtractedField) error {
	if f.Snippet == "" || f.Page < 1 {
		return common.InvalidInputf("field %s requires a snippet and a page >= 1", f.ID)
	}
	f.UpdatedAt = now()
	u := r.client.builder().Update(tableFields).
		Set("value", f.Value).
		Set("page", f.Page).
		Set("snippet", f.Snippet).
		Set("created_from", string(f.CreatedFrom)).
		Set("tier", string(f.Tier)).
		Set("status", string(f.Status)).
		Set("visibility", string(f.Visibility)).
		Set("updated_at", f.UpdatedAt)
	setOrNull(u, "unit", nullablePtr(f.Unit))
	setOrNull(u, "confidence", nullableFloat(f.Confidence))
	q, args := u.Where(entsql.EQ("id", f.ID)).Query()
	n, err := r.client.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update field", "field_id", f.ID, "error", err)
		return dbError("update field", err)
	}
	if n == 0 {
		return common.NotFoundf("field %s", f.ID)
	}
	return nil
}

func (r *fieldRepository) UpdateAnchor(ctx context.Context, a *entity.EvidenceAnchor) error {
	if a.SnippetText == "" || a.PageNo < 1 {
		return common.InvalidInputf("anchor %s requires a snippet and a page >= 1", a.ID)
	}
	a.SnippetHash = entity.SnippetHash(a.SnippetText)
	bbox, err := encodeBBox(a.BBox)
	if err != nil {
		return err
	}
	u := r.client.builder().Update(tableAnchors).
		Set("page_no", a.PageNo).
		Set("snippet_text", a.SnippetText).
		Set("snippet_hash", a.SnippetHash)
	setOrNull(u, "bbox", bbox)
	q, args := u.Where(entsql.EQ("id", a.ID)).Query()
	n, err := r.client.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update anchor", "anchor_id", a.ID, "error", err)
		return dbError("update anchor", err)
	}
	if n == 0 {
		return common.NotFoundf("anchor %s", a.ID)
	}
	return nil
}

func (r *fieldRepository) selectFields(ctx context.Context, where *entsql.Predicate) ([]*entity.ExtractedField, error) {
	b := r.client.builder()
	q, args := b.Select(fieldColumns...).
		From(b.Table(tableFields)).
		Where(where).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("canonical_key")).
		Query()

	var (
		out  []*entity.ExtractedField
		byID = map[uuid.UUID]*entity.ExtractedField{}
		ids  []uuid.UUID
	)
	err := r.client.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			f                                     entity.ExtractedField
			unit                                  sql.NullString
			confidence                            sql.NullFloat64
			createdFrom, tier, status, visibility string
		)
		if err := rows.Scan(
			&f.ID, &f.DocumentID, &f.CaseID, &f.CanonicalKey, &f.Value, &unit, &f.Page, &f.Snippet, &confidence,
			&createdFrom, &tier, &status, &visibility, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return err
		}
		f.Unit = strPtr[string](unit)
		f.Confidence = floatPtr(confidence)
		f.CreatedFrom = constants.FieldSource(createdFrom)
		f.Tier = constants.Tier(tier)
		f.Status = constants.FieldStatus(status)
		f.Visibility = constants.Visibility(visibility)
		out = append(out, &f)
		byID[f.ID] = &f
		ids = append(ids, f.ID)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to query fields", "error", err)
		return nil, dbError("query fields", err)
	}
	if len(ids) == 0 {
		return out, nil
	}

	q, args = b.Select(anchorColumns...).
		From(b.Table(tableAnchors)).
		Where(entsql.In("field_id", uuidArgs(ids)...)).
		OrderBy(entsql.Asc("page_no")).
		Query()
	err = r.client.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			a    entity.EvidenceAnchor
			bbox sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.FieldID, &a.DocumentID, &a.PageNo, &a.SnippetText, &bbox, &a.SnippetHash); err != nil {
			return err
		}
		if bbox.Valid && bbox.String != "" {
			a.BBox = &entity.BoundingBox{}
			if err := json.Unmarshal([]byte(bbox.String), a.BBox); err != nil {
				return err
			}
		}
		if f, ok := byID[a.FieldID]; ok {
			f.Anchors = append(f.Anchors, a)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to query anchors", "error", err)
		return nil, dbError("query anchors", err)
	}
	return out, nil
}

func encodeBBox(b *entity.BoundingBox) (any, error) {
	if b == nil {
		return nil, nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func uuidArgs(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
