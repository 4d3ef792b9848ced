// Package extract turns classified page text into evidence-backed field
// candidates.
package extract

import (
	"context"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

// TextExtractor is stage 1: file bytes -> per-page text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mime string) ([]entity.PageText, error)
}

// FieldExtractor is stage 3: classified pages -> field candidates.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, docType constants.DocType, pages []entity.Page) (*Output, error)
	// Source is the provenance recorded on fields this extractor produces.
	Source() constants.FieldSource
}

// Output is the deduplicated result of one extraction run.
type Output struct {
	Candidates []entity.FieldCandidate
	Usage      entity.ExtractionUsage
}

// dedupe keeps the highest-confidence candidate per key. Order follows the
// first occurrence of each key.
func dedupe(cands []entity.FieldCandidate) []entity.FieldCandidate {
	index := make(map[string]int, len(cands))
	out := make([]entity.FieldCandidate, 0, len(cands))
	for _, c := range cands {
		i, seen := index[c.CanonicalKey]
		if !seen {
			index[c.CanonicalKey] = len(out)
			out = append(out, c)
			continue
		}
		if c.Confidence > out[i].Confidence {
			out[i] = c
		}
	}
	return out
}
