package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

const tableResults = "validation_results"

var resultColumns = []string{"id", "case_id", "rule_key", "severity", "status", "message", "related_field_ids", "created_at"}

type ValidationResultRepository interface {
	// ReplaceForCase supersedes every stored result of the case with results.
	ReplaceForCase(ctx context.Context, caseID uuid.UUID, results []*entity.ValidationResult) error
	ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.ValidationResult, error)
}

type validationResultRepository struct {
	client *Client
	logger *slog.Logger
}

func NewValidationResultRepository(client *Client, logger *slog.Logger) ValidationResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &validationResultRepository{
		client: client,
		logger: logger,
	}
}

func (r *validationResultRepository) ReplaceForCase(ctx context.Context, caseID uuid.UUID, results []*entity.ValidationResult) error {
	err := r.client.WithTx(ctx, func(ctx context.Context) error {
		q, args := r.client.builder().Delete(tableResults).Where(entsql.EQ("case_id", caseID)).Query()
		if _, err := r.client.exec(ctx, q, args); err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		ts := now()
		ins := r.client.builder().Insert(tableResults).Columns(resultColumns...)
		for _, res := range results {
			if res.ID == uuid.Nil {
				res.ID = uuid.New()
			}
			res.CaseID = caseID
			res.CreatedAt = ts
			if res.RelatedFieldIDs == nil {
				res.RelatedFieldIDs = []uuid.UUID{}
			}
			related, err := json.Marshal(res.RelatedFieldIDs)
			if err != nil {
				return err
			}
			ins.Values(res.ID, res.CaseID, res.RuleKey, string(res.Severity), string(res.Status), res.Message, string(related), res.CreatedAt)
		}
		q, args = ins.Query()
		_, err := r.client.exec(ctx, q, args)
		return err
	})
	if err != nil {
		r.logger.Error("failed to replace validation results", "case_id", caseID, "error", err)
		return dbError("replace validation results", err)
	}
	return nil
}

func (r *validationResultRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*entity.ValidationResult, error) {
	b := r.client.builder()
	q, args := b.Select(resultColumns...).
		From(b.Table(tableResults)).
		Where(entsql.EQ("case_id", caseID)).
		OrderBy(entsql.Asc("rule_key"), entsql.Asc("status")).
		Query()

	var out []*entity.ValidationResult
	err := r.client.query(ctx, q, args, func(rows *entsql.Rows) error {
		var (
			res              entity.ValidationResult
			severity, status string
			related          sql.NullString
		)
		if err := rows.Scan(&res.ID, &res.CaseID, &res.RuleKey, &severity, &status, &res.Message, &related, &res.CreatedAt); err != nil {
			return err
		}
		res.Severity = constants.Severity(severity)
		res.Status = constants.ResultStatus(status)
		res.RelatedFieldIDs = []uuid.UUID{}
		if related.Valid && related.String != "" {
			if err := json.Unmarshal([]byte(related.String), &res.RelatedFieldIDs); err != nil {
				return err
			}
		}
		out = append(out, &res)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list validation results", "case_id", caseID, "error", err)
		return nil, dbError("list validation results", err)
	}
	return out, nil
}
