package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// Case groups the documents of one shipment.
type Case struct {
	ID           uuid.UUID            `json:"id"`
	ReferenceNo  string               `json:"reference_no"`
	Title        string               `json:"title,omitempty"`
	ProductGroup string               `json:"product_group"`
	Notes        string               `json:"notes,omitempty"`
	Status       constants.CaseStatus `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// CaseMetrics is the dashboard view of a case.
type CaseMetrics struct {
	CaseID                uuid.UUID `json:"case_id"`
	EvidenceCoveragePct   float64   `json:"evidence_coverage_pct"`
	ConflictRatePct       float64   `json:"conflict_rate_pct"`
	DaysSinceFirstUpload  *float64  `json:"days_since_first_upload,omitempty"`
	TotalFields           int       `json:"total_fields"`
	L1Fields              int       `json:"l1_fields"`
	L2Fields              int       `json:"l2_fields"`
	BuyerVisibleFields    int       `json:"buyer_visible_fields"`
	RequiredFieldsPresent int       `json:"required_fields_present"`
	RequiredFieldsTotal   int       `json:"required_fields_total"`
	ChecklistOpen         int       `json:"checklist_open"`
	ChecklistDone         int       `json:"checklist_done"`
	Documents             int       `json:"documents"`
	DocumentsInError      int       `json:"documents_in_error"`
}
