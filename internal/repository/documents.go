package repository

import (
	"context"
	"database/sql"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

const tableDocuments = "documents"

var documentColumns = []string{
	"id", "case_id", "original_filename", "storage_path", "mime_type", "size_bytes", "sha256",
	"page_count", "processing_status", "doc_type", "classification_method", "classification_confidence",
	"error_code", "error_message", "created_at", "updated_at",
}

// Classification is the outcome of the classification stage. A nil DocType
// records an uncertain result.
type Classification struct {
	DocType    *constants.DocType
	Method     *constants.ClassificationMethod
	Confidence *float64
}

type DocumentRepository interface {
	Create(ctx context.Context, d *entity.Document) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.Document, error)
	FindByHash(ctx context.Context, caseID uuid.UUID, sha256 string) (*entity.Document, error)

	SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error
	// SetProcessing moves the document to processing and clears any recorded error.
	SetProcessing(ctx context.Context, id uuid.UUID) error
	MarkTextExtracted(ctx context.Context, id uuid.UUID, pageCount int) error
	MarkClassified(ctx context.Context, id uuid.UUID, c Classification) error
	// SetDocType records a manual classification without touching the processing status.
	SetDocType(ctx context.Context, id uuid.UUID, docType constants.DocType) error
	MarkExtracted(ctx context.Context, id uuid.UUID) error
	MarkError(ctx context.Context, id uuid.UUID, code constants.ErrorCode, message string) error
	// ResetDerived returns the document to uploaded and clears classification,
	// page count and error state.
	ResetDerived(ctx context.Context, id uuid.UUID) error
}

type documentRepository struct {
	client *Client
	logger *slog.Logger
}

func NewDocumentRepository(client *Client, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{
		client: client,
		logger: logger,
	}
}

func (r *documentRepository) Create(ctx context.Context, d *entity.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = constants.DocumentUploaded
	}
	ts := now()
	d.CreatedAt, d.UpdatedAt = ts, ts

	q, args := r.client.builder().Insert(tableDocuments).
		Columns(documentColumns...).
		Values(
			d.ID, d.CaseID, d.OriginalFilename, d.StoragePath, d.MimeType, d.SizeBytes, d.SHA256,
			nullableInt(d.PageCount), string(d.Status), nullablePtr(d.DocType), nullablePtr(d.ClassificationMethod),
			nullableFloat(d.ClassificationConfidence), nullablePtr(d.ErrorCode), nullablePtr(d.ErrorMessage),
			d.CreatedAt, d.UpdatedAt,
		).
		Query()
	if _, err := r.client.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create document", "case_id", d.CaseID, "filename", d.OriginalFilename, "error", err)
		return dbError("create document", err)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	out, err := r.selectDocuments(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NotFoundf("document %s", id)
	}
	return out[0], nil
}

func (r *documentRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.Document, error) {
	return r.selectDocuments(ctx, entsql.EQ("case_id", caseID))
}

func (r *documentRepository) FindByHash(ctx context.Context, caseID uuid.UUID, sha256 string) (*entity.Document, error) {
	out, err := r.selectDocuments(ctx, entsql.And(entsql.EQ("case_id", caseID), entsql.EQ("sha256", sha256)))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NotFoundf("document with sha256 %s in case %s", sha256, caseID)
	}
	return out[0], nil
}

func (r *documentRepository) SetStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error {
	return r.update(ctx, id, "set status", func(u *entsql.UpdateBuilder) {
		u.Set("processing_status", string(status))
	})
}

func (r *documentRepository) SetProcessing(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, "set processing", func(u *entsql.UpdateBuilder) {
		u.Set("processing_status", string(constants.DocumentProcessing)).
			SetNull("error_code").
			SetNull("error_message")
	})
}

func (r *documentRepository) MarkTextExtracted(ctx context.Context, id uuid.UUID, pageCount int) error {
	return r.update(ctx, id, "mark text extracted", func(u *entsql.UpdateBuilder) {
		u.Set("processing_status", string(constants.DocumentTextExtracted)).
			Set("page_count", int64(pageCount))
	})
}

func (r *documentRepository) MarkClassified(ctx context.Context, id uuid.UUID, c Classification) error {
	return r.update(ctx, id, "mark classified", func(u *entsql.UpdateBuilder) {
		u.Set("processing_status", string(constants.DocumentClassified))
		setOrNull(u, "doc_type", nullablePtr(c.DocType))
		setOrNull(u, "classification_method", nullablePtr(c.Method))
		setOrNull(u, "classification_confidence", nullableFloat(c.Confidence))
	})
}

func (r *documentRepository) SetDocType(ctx context.Context, id uuid.UUID, docType constants.DocType) error {
	return r.update(ctx, id, "set doc type", func(u *entsql.UpdateBuilder) {
		u.Set("doc_type", string(docType)).
			Set("classification_method", string(constants.ClassifiedManual)).
			Set("classification_confidence", 1.0)
	})
}

func (r *documentRepository) MarkExtracted(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, "mark extracted", func(u *entsql.UpdateBuilder) {
		u.Set("processing_status", string(constants.DocumentExtracted)).
			SetNull("error_code").
			SetNull("error_message")
	})
}

func (r *documentRepository) MarkError(ctx context.Context, id uuid.UUID, code constants.ErrorCode, message string) error {
	return r.update(ctx, id, "mark error", func(u *entsql.UpdateBuilder) {
		u.Set("processing_status", string(constants.DocumentError)).
			Set("error_code", string(code)).
			Set("error_message", message)
	})
}

func (r *documentRepository) ResetDerived(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, "reset derived state", func(u *entsql.UpdateBuilder) {
		u.Set("processing_status", string(constants.DocumentUploaded)).
			SetNull("page_count").
			SetNull("doc_type").
			SetNull("classification_method").
			SetNull("classification_confidence").
			SetNull("error_code").
			SetNull("error_message")
	})
}

func (r *documentRepository) update(ctx context.Context, id uuid.UUID, op string, set func(u *entsql.UpdateBuilder)) error {
	u := r.client.builder().Update(tableDocuments)
	set(u)
	q, args := u.Set("updated_at", now()).Where(entsql.EQ("id", id)).Query()
	n, err := r.client.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update document", "op", op, "document_id", id, "error", err)
		return dbError(op, err)
	}
	if n == 0 {
		return common.NotFoundf("document %s", id)
	}
	return nil
}

func setOrNull(u *entsql.UpdateBuilder, column string, v any) {
	if v == nil {
		u.SetNull(column)
		return
	}
	u.Set(column, v)
}

func (r *documentRepository) selectDocuments(ctx context.Context, where *entsql.Predicate) ([]*entity.Document, error) {
	b := r.client.builder()
	q, args := b.Select(documentColumns...).
		From(b.Table(tableDocuments)).
		Where(where).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("original_filename")).
		Query()

	var out []*entity.Document
	err := r.client.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			d                                entity.Document
			pageCount                        sql.NullInt64
			status                           string
			docType, method, errCode, errMsg sql.NullString
			confidence                       sql.NullFloat64
		)
		if err := rows.Scan(
			&d.ID, &d.CaseID, &d.OriginalFilename, &d.StoragePath, &d.MimeType, &d.SizeBytes, &d.SHA256,
			&pageCount, &status, &docType, &method, &confidence, &errCode, &errMsg, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return err
		}
		d.PageCount = intPtr(pageCount)
		d.Status = constants.DocumentStatus(status)
		d.DocType = strPtr[constants.DocType](docType)
		d.ClassificationMethod = strPtr[constants.ClassificationMethod](method)
		d.ClassificationConfidence = floatPtr(confidence)
		d.ErrorCode = strPtr[constants.ErrorCode](errCode)
		d.ErrorMessage = strPtr[string](errMsg)
		out = append(out, &d)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to query documents", "error", err)
		return nil, dbError("query documents", err)
	}
	return out, nil
}
