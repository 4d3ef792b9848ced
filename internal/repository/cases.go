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

const tableCases = "cases"

var caseColumns = []string{"id", "reference_no", "title", "product_group", "notes", "status", "created_at", "updated_at"}

type CaseRepository interface {
	Create(ctx context.Context, c *entity.Case) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Case, error)
	GetByReference(ctx context.Context, referenceNo string) (*entity.Case, error)
	List(ctx context.Context) ([]*entity.Case, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.CaseStatus) error
}

type caseRepository struct {
	client *Client
	logger *slog.Logger
}

func NewCaseRepository(client *Client, logger *slog.Logger) CaseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &caseRepository{
		client: client,
		logger: logger,
	}
}

// Create inserts c, filling ID, status and timestamps when unset.
// A duplicate reference number is reported as ErrConflict.
func (r *caseRepository) Create(ctx context.Context, c *entity.Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = constants.CaseDraft
	}
	if c.ProductGroup == "" {
		c.ProductGroup = "textiles"
	}
	ts := now()
	c.CreatedAt, c.UpdatedAt = ts, ts

	q, args := r.client.builder().Insert(tableCases).
		Columns(caseColumns...).
		Values(c.ID, c.ReferenceNo, nullableString(c.Title), c.ProductGroup, nullableString(c.Notes), string(c.Status), c.CreatedAt, c.UpdatedAt).
		Query()
	if _, err := r.client.exec(ctx, q, args); err != nil {
		if isUniqueViolation(err) {
			return common.NewAppError("CASE_EXISTS", "case reference "+c.ReferenceNo+" already exists", common.ErrConflict)
		}
		r.logger.Error("failed to create case", "reference_no", c.ReferenceNo, "error", err)
		return dbError("create case", err)
	}
	return nil
}

func (r *caseRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Case, error) {
	out, err := r.selectCases(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NotFoundf("case %s", id)
	}
	return out[0], nil
}

func (r *caseRepository) GetByReference(ctx context.Context, referenceNo string) (*entity.Case, error) {
	out, err := r.selectCases(ctx, entsql.EQ("reference_no", referenceNo))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NotFoundf("case with reference %q", referenceNo)
	}
	return out[0], nil
}

func (r *caseRepository) List(ctx context.Context) ([]*entity.Case, error) {
	return r.selectCases(ctx, nil)
}

func (r *caseRepository) SetStatus(ctx context.Context, id uuid.UUID, status constants.CaseStatus) error {
	q, args := r.client.builder().Update(tableCases).
		Set("status", string(status)).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := r.client.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update case status", "case_id", id, "error", err)
		return dbError("update case status", err)
	}
	if n == 0 {
		return common.NotFoundf("case %s", id)
	}
	return nil
}

func (r *caseRepository) selectCases(ctx context.Context, where *entsql.Predicate) ([]*entity.Case, error) {
	b := r.client.builder()
	sel := b.Select(caseColumns...).From(b.Table(tableCases)).OrderBy(entsql.Asc("created_at"))
	if where != nil {
		sel = sel.Where(where)
	}
	q, args := sel.Query()

	var out []*entity.Case
	err := r.client.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			c            entity.Case
			title, notes sql.NullString
			status       string
		)
		if err := rows.Scan(&c.ID, &c.ReferenceNo, &title, &c.ProductGroup, &notes, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		c.Title, c.Notes = title.String, notes.String
		c.Status = constants.CaseStatus(status)
		out = append(out, &c)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to query cases", "error", err)
		return nil, dbError("query cases", err)
	}
	return out, nil
}
