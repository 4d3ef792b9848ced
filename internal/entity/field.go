package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// ExtractedField is one canonical key/value pair backed by evidence.
type ExtractedField struct {
	ID           uuid.UUID             `json:"id"`
	DocumentID   uuid.UUID             `json:"document_id"`
	CaseID       uuid.UUID             `json:"case_id"`
	CanonicalKey string                `json:"canonical_key"`
	Value        string                `json:"value"`
	Unit         *string               `json:"unit,omitempty"`
	Page         int                   `json:"page"`
	Snippet      string                `json:"snippet"`
	Confidence   *float64              `json:"confidence,omitempty"`
	CreatedFrom  constants.FieldSource `json:"created_from"`
	Tier         constants.Tier        `json:"tier"`
	Status       constants.FieldStatus `json:"status"`
	Visibility   constants.Visibility  `json:"visibility"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`

	Anchors []EvidenceAnchor `json:"anchors,omitempty"`
}

// BoundingBox is a page-relative rectangle.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EvidenceAnchor points at the page and snippet a field value was read from.
type EvidenceAnchor struct {
	ID          uuid.UUID    `json:"id"`
	FieldID     uuid.UUID    `json:"field_id"`
	DocumentID  uuid.UUID    `json:"document_id"`
	PageNo      int          `json:"page_no"`
	SnippetText string       `json:"snippet_text"`
	BBox        *BoundingBox `json:"bbox,omitempty"`
	SnippetHash string       `json:"snippet_hash"`
}

// FieldCandidate is an extractor result that has not been persisted yet.
type FieldCandidate struct {
	CanonicalKey string
	Value        string
	Unit         *string
	Page         int
	Snippet      string
	Confidence   float64
}

// ExtractionUsage accounts for model cost of one extraction run.
type ExtractionUsage struct {
	InputTokens    int `json:"input_tokens"`
	OutputTokens   int `json:"output_tokens"`
	PagesProcessed int `json:"pages_processed"`
	PagesSkipped   int `json:"pages_skipped"`
}

// Add accumulates u2 into u.
func (u *ExtractionUsage) Add(u2 ExtractionUsage) {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
	u.PagesProcessed += u2.PagesProcessed
	u.PagesSkipped += u2.PagesSkipped
}

// SnippetHash is the hex sha256 of an evidence snippet.
func SnippetHash(snippet string) string {
	sum := sha256.Sum256([]byte(snippet))
	return hex.EncodeToString(sum[:])
}

// HasEvidence reports whether at least one anchor carries a snippet on a valid page.
func (f *ExtractedField) HasEvidence() bool {
	for _, a := range f.Anchors {
		if a.SnippetText != "" && a.PageNo >= 1 {
			return true
		}
	}
	return false
}
