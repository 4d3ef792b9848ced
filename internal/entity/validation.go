package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// ValidationResult is one row emitted by a rule during a validation run.
type ValidationResult struct {
	ID              uuid.UUID              `json:"id"`
	CaseID          uuid.UUID              `json:"case_id"`
	RuleKey         string                 `json:"rule_key"`
	Severity        constants.Severity     `json:"severity"`
	Status          constants.ResultStatus `json:"status"`
	Message         string                 `json:"message"`
	RelatedFieldIDs []uuid.UUID            `json:"related_field_ids"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ChecklistItem is a remediation task for the supplier.
type ChecklistItem struct {
	ID             uuid.UUID                 `json:"id"`
	CaseID         uuid.UUID                 `json:"case_id"`
	Type           constants.ChecklistType   `json:"type"`
	Severity       constants.Severity        `json:"severity"`
	Status         constants.ChecklistStatus `json:"status"`
	Title          string                    `json:"title"`
	Description    string                    `json:"description"`
	RelatedFieldID *uuid.UUID                `json:"related_field_id,omitempty"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}
