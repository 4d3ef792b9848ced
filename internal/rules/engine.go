package rules

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
)

// Report is the outcome of one validation run.
type Report struct {
	CaseID uuid.UUID
	// Results holds every rule key, including rules that emitted a single pass.
	Results map[string][]*entity.ValidationResult
	// Checklist holds the items created by this run.
	Checklist []*entity.ChecklistItem
	Conflicts int
}

// Failed reports whether any rule failed.
func (r *Report) Failed() bool {
	for _, rs := range r.Results {
		for _, res := range rs {
			if res.Status == constants.ResultFail {
				return true
			}
		}
	}
	return false
}

type Option func(*Engine)

// WithClock overrides the source of "today" used by date rules.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRules replaces the default rule set.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// Engine runs the rule set of a case and persists its outcome. Prior results
// of the case are superseded; checklist items are only ever added.
type Engine struct {
	repos  *repository.Repositories
	rules  []Rule
	now    func() time.Time
	logger *slog.Logger
}

func NewEngine(repos *repository.Repositories, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		repos:  repos,
		rules:  DefaultRules(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs every rule against in without touching storage.
func (e *Engine) Evaluate(in Input) map[string]Output {
	out := make(map[string]Output, len(e.rules))
	for _, r := range e.rules {
		o := r.Evaluate(in)
		for _, res := range o.Results {
			res.CaseID = in.CaseID
		}
		out[r.Key()] = o
	}
	return out
}

// Run loads the case, evaluates the rules and stores results, conflict
// statuses and new checklist items in one transaction.
func (e *Engine) Run(ctx context.Context, caseID uuid.UUID) (*Report, error) {
	if _, err := e.repos.Cases.Get(ctx, caseID); err != nil {
		return nil, err
	}
	docs, err := e.repos.Documents.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	fields, err := e.repos.Fields.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	outputs := e.Evaluate(Input{CaseID: caseID, Documents: docs, Fields: fields, Today: e.now()})
	report := &Report{CaseID: caseID, Results: make(map[string][]*entity.ValidationResult, len(outputs))}

	err = e.repos.Client.WithTx(ctx, func(ctx context.Context) error {
		var all []*entity.ValidationResult
		var conflictIDs []uuid.UUID
		var entries []ChecklistEntry
		for _, r := range e.rules {
			o := outputs[r.Key()]
			report.Results[r.Key()] = o.Results
			all = append(all, o.Results...)
			conflictIDs = append(conflictIDs, o.ConflictFieldIDs...)
			entries = append(entries, o.Checklist...)
		}
		if err := e.repos.Results.ReplaceForCase(ctx, caseID, all); err != nil {
			return err
		}
		if len(conflictIDs) > 0 {
			if err := e.repos.Fields.SetStatus(ctx, conflictIDs, constants.FieldConflict); err != nil {
				return err
			}
		}
		report.Conflicts = len(conflictIDs)

		created, err := e.createChecklist(ctx, caseID, entries)
		if err != nil {
			return err
		}
		report.Checklist = created
		return nil
	})
	if err != nil {
		e.logger.Error("rules.run.failed", "case_id", caseID, "error", err)
		return nil, err
	}

	e.logger.Info("rules.run.ok",
		"case_id", caseID,
		"documents", len(docs),
		"fields", len(fields),
		"failed", report.Failed(),
		"conflicts", report.Conflicts,
		"checklist_created", len(report.Checklist),
	)
	return report, nil
}

// createChecklist adds entries that are not already open for the case, so
// repeated runs do not pile up the same task.
func (e *Engine) createChecklist(ctx context.Context, caseID uuid.UUID, entries []ChecklistEntry) ([]*entity.ChecklistItem, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	existing, err := e.repos.Checklist.ListByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	type key struct {
		typ   constants.ChecklistType
		title string
	}
	open := make(map[key]bool, len(existing))
	for _, it := range existing {
		if it.Status != constants.ChecklistDone {
			open[key{it.Type, it.Title}] = true
		}
	}

	var created []*entity.ChecklistItem
	for _, en := range entries {
		k := key{en.Type, en.Title}
		if open[k] {
			continue
		}
		item := &entity.ChecklistItem{
			CaseID:         caseID,
			Type:           en.Type,
			Severity:       en.Severity,
			Status:         constants.ChecklistOpen,
			Title:          en.Title,
			Description:    en.Description,
			RelatedFieldID: en.RelatedFieldID,
		}
		if err := e.repos.Checklist.Create(ctx, item); err != nil {
			return nil, err
		}
		open[k] = true
		created = append(created, item)
	}
	return created, nil
}
