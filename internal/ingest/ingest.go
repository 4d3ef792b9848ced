// Package ingest brings document bytes into a case: direct uploads,
// directory walks and an inbox folder watched for new files.
package ingest

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

// MaxFileSize caps a single upload.
const MaxFileSize = 50 << 20

// UploadRequest is one file to add to a case. An empty MimeType is sniffed
// from the content.
type UploadRequest struct {
	CaseID   uuid.UUID `validate:"required"`
	Filename string    `validate:"not_blank,max=255"`
	MimeType string
	Content  []byte
}

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	Document     *entity.Document
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}
