package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// Page is the extracted text of one document page. PageNumber is 1-indexed.
type Page struct {
	ID         uuid.UUID                  `json:"id"`
	DocumentID uuid.UUID                  `json:"document_id"`
	PageNumber int                        `json:"page_number"`
	Text       string                     `json:"text"`
	Method     constants.ExtractionMethod `json:"extraction_method"`
	CharCount  int                        `json:"char_count"`
}

// PageText is extractor output before it is bound to a document.
type PageText struct {
	PageNumber int
	Text       string
	CharCount  int
	Method     constants.ExtractionMethod
}
