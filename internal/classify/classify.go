// Package classify assigns a document type from its filename and first-page
// text.
package classify

import (
	"context"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// Result is a classifier answer. A nil *Result means "uncertain".
type Result struct {
	DocType    constants.DocType
	Confidence float64
	Method     constants.ClassificationMethod
}

// Classifier never fails: anything it cannot decide is reported as nil.
type Classifier interface {
	Classify(ctx context.Context, filename, text string) *Result
}
