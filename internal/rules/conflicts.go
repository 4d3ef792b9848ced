package rules

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

// ConflictDetection flags canonical keys that carry different values across
// the case. Every field of a conflicting key is moved to status conflict.
type ConflictDetection struct{}

func (ConflictDetection) Key() string { return "conflict_detection" }

func (r ConflictDetection) Evaluate(in Input) Output {
	var (
		keys  []string
		byKey = make(map[string][]*entity.ExtractedField)
	)
	for _, f := range active(in.Fields) {
		if _, seen := byKey[f.CanonicalKey]; !seen {
			keys = append(keys, f.CanonicalKey)
		}
		byKey[f.CanonicalKey] = append(byKey[f.CanonicalKey], f)
	}

	var out Output
	for _, key := range keys {
		group := byKey[key]
		if len(group) < 2 {
			continue
		}
		distinct := make(map[string]struct{}, len(group))
		for _, f := range group {
			distinct[NormalizeValue(f.Value)] = struct{}{}
		}
		if len(distinct) < 2 {
			continue
		}

		ids := make([]uuid.UUID, len(group))
		values := make([]string, len(group))
		for i, f := range group {
			ids[i] = f.ID
			values[i] = f.Value
		}
		joined := strings.Join(values, " vs ")
		out.Results = append(out.Results, result(r.Key(), constants.SeverityHigh, constants.ResultFail,
			fmt.Sprintf("Different values for %s (%s).", key, joined), ids...))
		out.Checklist = append(out.Checklist, ChecklistEntry{
			Type:           constants.ChecklistConflict,
			Severity:       constants.SeverityHigh,
			Title:          "Conflicting Field: " + key,
			Description:    fmt.Sprintf("%q has different values across documents: %s. Please select the correct value.", key, joined),
			RelatedFieldID: ptr(group[0].ID),
		})
		out.ConflictFieldIDs = append(out.ConflictFieldIDs, ids...)
	}

	if len(out.Results) == 0 {
		return single(result(r.Key(), constants.SeverityMedium, constants.ResultPass,
			"No conflicting values found across documents."))
	}
	return out
}

// NormalizeValue is the comparison form of a field value: trimmed,
// lowercased, without thousands separators.
func NormalizeValue(v string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), ",", "")
}
