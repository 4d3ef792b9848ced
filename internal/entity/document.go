package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// Document represents an uploaded file for data transfer between layers.
type Document struct {
	ID                       uuid.UUID                       `json:"id"`
	CaseID                   uuid.UUID                       `json:"case_id"`
	OriginalFilename         string                          `json:"original_filename"`
	StoragePath              string                          `json:"storage_path"`
	MimeType                 string                          `json:"mime_type"`
	SizeBytes                int64                           `json:"size_bytes"`
	SHA256                   string                          `json:"sha256"`
	PageCount                *int                            `json:"page_count,omitempty"`
	Status                   constants.DocumentStatus        `json:"processing_status"`
	DocType                  *constants.DocType              `json:"doc_type,omitempty"`
	ClassificationMethod     *constants.ClassificationMethod `json:"classification_method,omitempty"`
	ClassificationConfidence *float64                        `json:"classification_confidence,omitempty"`
	ErrorCode                *constants.ErrorCode            `json:"error_code,omitempty"`
	ErrorMessage             *string                         `json:"error_message,omitempty"`
	CreatedAt                time.Time                       `json:"created_at"`
	UpdatedAt                time.Time                       `json:"updated_at"`
}

// HasDocType reports whether the document has been classified to a type.
func (d *Document) HasDocType() bool {
	return d.DocType != nil && *d.DocType != ""
}

// TypeOrEmpty returns the doc type or "" when unclassified.
func (d *Document) TypeOrEmpty() constants.DocType {
	if d.DocType == nil {
		return ""
	}
	return *d.DocType
}
