// Package rules evaluates a case's documents and fields and records results
// and remediation checklist items.
package rules

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

// Input is the settled state of one case.
type Input struct {
	CaseID    uuid.UUID
	Documents []*entity.Document
	Fields    []*entity.ExtractedField
	Today     time.Time
}

// ChecklistEntry is a checklist item a rule asks for.
type ChecklistEntry struct {
	Type           constants.ChecklistType
	Severity       constants.Severity
	Title          string
	Description    string
	RelatedFieldID *uuid.UUID
}

// Output of one rule. ConflictFieldIDs are fields the engine must set to
// status conflict; only conflict detection fills it.
type Output struct {
	Results          []*entity.ValidationResult
	Checklist        []ChecklistEntry
	ConflictFieldIDs []uuid.UUID
}

// Rule is independent of every other rule in a run.
type Rule interface {
	Key() string
	Evaluate(in Input) Output
}

// DefaultRules returns the rule set run for every case.
func DefaultRules() []Rule {
	return []Rule{
		MissingCriticalDocs{},
		CompositionSum{},
		QuantityMismatch{},
		CertificateValidity{},
		ConflictDetection{},
	}
}

func result(key string, sev constants.Severity, st constants.ResultStatus, msg string, related ...uuid.UUID) *entity.ValidationResult {
	if related == nil {
		related = []uuid.UUID{}
	}
	return &entity.ValidationResult{
		RuleKey:         key,
		Severity:        sev,
		Status:          st,
		Message:         msg,
		RelatedFieldIDs: related,
	}
}

func single(r *entity.ValidationResult) Output {
	return Output{Results: []*entity.ValidationResult{r}}
}

// active drops rejected fields.
func active(fields []*entity.ExtractedField) []*entity.ExtractedField {
	out := make([]*entity.ExtractedField, 0, len(fields))
	for _, f := range fields {
		if f.Status != constants.FieldRejected {
			out = append(out, f)
		}
	}
	return out
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func ptr[T any](v T) *T { return &v }
