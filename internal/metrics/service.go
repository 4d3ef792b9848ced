// Package metrics computes the dashboard figures of a case.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
)

type Service struct {
	repos  *repository.Repositories
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for the days-since-first-upload figure.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repos *repository.Repositories, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repos: repos, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Case loads the case records and computes its metrics.
func (s *Service) Case(ctx context.Context, caseID uuid.UUID) (*entity.CaseMetrics, error) {
	if _, err := s.repos.Cases.Get(ctx, caseID); err != nil {
		return nil, err
	}
	docs, err := s.repos.Documents.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	fields, err := s.repos.Fields.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	items, err := s.repos.Checklist.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	m := Compute(caseID, docs, fields, items, s.now())
	s.logger.Debug("metrics.case", "case_id", caseID, "coverage", m.EvidenceCoveragePct, "conflict_rate", m.ConflictRatePct)
	return m, nil
}

// Compute derives the metrics from already loaded records.
func Compute(caseID uuid.UUID, docs []*entity.Document, fields []*entity.ExtractedField, items []*entity.ChecklistItem, now time.Time) *entity.CaseMetrics {
	m := &entity.CaseMetrics{
		CaseID:              caseID,
		TotalFields:         len(fields),
		RequiredFieldsTotal: len(constants.RequiredFields),
		Documents:           len(docs),
	}

	present := map[string]bool{}
	evidenced := map[string]bool{}
	conflicts := 0
	for _, f := range fields {
		switch f.Tier {
		case constants.TierL1:
			m.L1Fields++
		case constants.TierL2:
			m.L2Fields++
		}
		if f.Visibility == constants.BuyerVisible {
			m.BuyerVisibleFields++
		}
		if f.Status == constants.FieldConflict {
			conflicts++
		}
		present[f.CanonicalKey] = true
		if f.Status != constants.FieldRejected && len(f.Anchors) > 0 {
			evidenced[f.CanonicalKey] = true
		}
	}

	covered := 0
	for _, k := range constants.RequiredFields {
		if present[k] {
			m.RequiredFieldsPresent++
		}
		if evidenced[k] {
			covered++
		}
	}
	m.EvidenceCoveragePct = percent(covered, len(constants.RequiredFields))
	m.ConflictRatePct = percent(conflicts, len(fields))

	for _, it := range items {
		switch it.Status {
		case constants.ChecklistOpen, constants.ChecklistReopened:
			m.ChecklistOpen++
		case constants.ChecklistDone:
			m.ChecklistDone++
		}
	}

	var first time.Time
	for _, d := range docs {
		if d.Status == constants.DocumentError {
			m.DocumentsInError++
		}
		if first.IsZero() || d.CreatedAt.Before(first) {
			first = d.CreatedAt
		}
	}
	if !first.IsZero() {
		days := decimal.NewFromFloat(now.Sub(first).Hours() / 24).Round(1).InexactFloat64()
		m.DaysSinceFirstUpload = &days
	}
	return m
}

// percent returns part/total*100 rounded to one decimal, or 0 for an empty total.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 1).
		InexactFloat64()
}
