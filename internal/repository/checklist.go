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

const tableChecklist = "checklist_items"

var checklistColumns = []string{
	"id", "case_id", "type", "severity", "status", "title", "description", "related_field_id", "completed_at", "created_at",
}

// ChecklistRepository stores remediation items. Items are never deleted.
type ChecklistRepository interface {
	Create(ctx context.Context, item *entity.ChecklistItem) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ChecklistItem, error)
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.ChecklistItem, error)
	// SetStatus sets completed_at when status is done and clears it otherwise.
	SetStatus(ctx context.Context, id uuid.UUID, status constants.ChecklistStatus) (*entity.ChecklistItem, error)
}

type checklistRepository struct {
	client *Client
	logger *slog.Logger
}

func NewChecklistRepository(client *Client, logger *slog.Logger) ChecklistRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &checklistRepository{
		client: client,
		logger: logger,
	}
}

func (r *checklistRepository) Create(ctx context.Context, item *entity.ChecklistItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.Status == "" {
		item.Status = constants.ChecklistOpen
	}
	item.CreatedAt = now()

	var related any
	if item.RelatedFieldID != nil {
		related = *item.RelatedFieldID
	}
	var completed any
	if item.CompletedAt != nil {
		completed = *item.CompletedAt
	}
	q, args := r.client.builder().Insert(tableChecklist).
		Columns(checklistColumns...).
		Values(item.ID, item.CaseID, string(item.Type), string(item.Severity), string(item.Status),
			item.Title, item.Description, related, completed, item.CreatedAt).
		Query()
	if _, err := r.client.exec(ctx, q, args); err != nil {
		r.logger.Error("failed to create checklist item", "case_id", item.CaseID, "type", item.Type, "error", err)
		return dbError("create checklist item", err)
	}
	return nil
}

func (r *checklistRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ChecklistItem, error) {
	out, err := r.selectItems(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NotFoundf("checklist item %s", id)
	}
	return out[0], nil
}

func (r *checklistRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.ChecklistItem, error) {
	return r.selectItems(ctx, entsql.EQ("case_id", caseID))
}

func (r *checklistRepository) SetStatus(ctx context.Context, id uuid.UUID, status constants.ChecklistStatus) (*entity.ChecklistItem, error) {
	u := r.client.builder().Update(tableChecklist).Set("status", string(status))
	if status == constants.ChecklistDone {
		u.Set("completed_at", now())
	} else {
		u.SetNull("completed_at")
	}
	q, args := u.Where(entsql.EQ("id", id)).Query()
	n, err := r.client.exec(ctx, q, args)
	if err != nil {
		r.logger.Error("failed to update checklist item", "item_id", id, "error", err)
		return nil, dbError("update checklist item", err)
	}
	if n == 0 {
		return nil, common.NotFoundf("checklist item %s", id)
	}
	return r.Get(ctx, id)
}

func (r *checklistRepository) selectItems(ctx context.Context, where *entsql.Predicate) ([]*entity.ChecklistItem, error) {
	b := r.client.builder()
	q, args := b.Select(checklistColumns...).
		From(b.Table(tableChecklist)).
		Where(where).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("title")).
		Query()

	var out []*entity.ChecklistItem
	err := r.client.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			item                 entity.ChecklistItem
			typ, severity, state string
			related              uuid.NullUUID
			completed            sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.CaseID, &typ, &severity, &state, &item.Title, &item.Description,
			&related, &completed, &item.CreatedAt); err != nil {
			return err
		}
		item.Type = constants.ChecklistType(typ)
		item.Severity = constants.Severity(severity)
		item.Status = constants.ChecklistStatus(state)
		if related.Valid {
			id := related.UUID
			item.RelatedFieldID = &id
		}
		if completed.Valid {
			t := completed.Time
			item.CompletedAt = &t
		}
		out = append(out, &item)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list checklist items", "error", err)
		return nil, dbError("list checklist items", err)
	}
	return out, nil
}
