package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

var (
	compositionMin = decimal.NewFromInt(99)
	compositionMax = decimal.NewFromInt(101)
)

// CompositionSum checks each document's fibre percentages separately. The
// case passes when at least one document sums to [99, 101].
type CompositionSum struct{}

func (CompositionSum) Key() string { return "composition_sum_100" }

func (r CompositionSum) Evaluate(in Input) Output {
	var (
		order []uuid.UUID
		byDoc = make(map[uuid.UUID][]*entity.ExtractedField)
	)
	for _, f := range active(in.Fields) {
		if !slices.Contains(constants.CompositionKeys, f.CanonicalKey) {
			continue
		}
		if _, seen := byDoc[f.DocumentID]; !seen {
			order = append(order, f.DocumentID)
		}
		byDoc[f.DocumentID] = append(byDoc[f.DocumentID], f)
	}
	if len(order) == 0 {
		return single(result(r.Key(), constants.SeverityMedium, constants.ResultWarn,
			"No material composition fields found."))
	}

	var (
		anyPass bool
		ids     []uuid.UUID
		details []string
	)
	for _, docID := range order {
		total := decimal.Zero
		var bad []string
		for _, f := range byDoc[docID] {
			v, err := ParsePercent(f.Value)
			if err != nil {
				bad = append(bad, f.CanonicalKey)
				continue
			}
			total = total.Add(v)
			ids = append(ids, f.ID)
		}
		switch {
		case len(bad) > 0:
			details = append(details, fmt.Sprintf("doc %s: parse error (%s)", shortID(docID), strings.Join(bad, ", ")))
		case total.GreaterThanOrEqual(compositionMin) && total.LessThanOrEqual(compositionMax):
			anyPass = true
			details = append(details, fmt.Sprintf("doc %s: %s%% (valid)", shortID(docID), total.StringFixed(1)))
		default:
			details = append(details, fmt.Sprintf("doc %s: %s%% (invalid)", shortID(docID), total.StringFixed(1)))
		}
	}

	detail := strings.Join(details, "; ")
	if anyPass {
		return single(result(r.Key(), constants.SeverityHigh, constants.ResultPass,
			"Material composition is valid ("+detail+").", ids...))
	}
	entry := ChecklistEntry{
		Type:        constants.ChecklistCompositionError,
		Severity:    constants.SeverityHigh,
		Title:       "Composition Sum Error",
		Description: "Material percentages do not add up. Expected range: 99-101%. Please check the values.",
	}
	if len(ids) > 0 {
		entry.RelatedFieldID = ptr(ids[0])
	}
	return Output{
		Results:   []*entity.ValidationResult{result(r.Key(), constants.SeverityHigh, constants.ResultFail, "Composition total does not add up ("+detail+").", ids...)},
		Checklist: []ChecklistEntry{entry},
	}
}

// ParsePercent reads "95", "95 %", "4,5%" as an exact decimal.
func ParsePercent(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(strings.TrimSpace(s))
}
