package rules

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// MissingCriticalDocs fails when a required doc type has no non-errored
// document in the case.
type MissingCriticalDocs struct{}

func (MissingCriticalDocs) Key() string { return "missing_critical_docs" }

func (r MissingCriticalDocs) Evaluate(in Input) Output {
	present := make(map[constants.DocType]bool)
	for _, d := range in.Documents {
		if d.HasDocType() && d.Status != constants.DocumentError {
			present[*d.DocType] = true
		}
	}

	var (
		missing []string
		out     Output
	)
	for _, req := range constants.RequiredDocTypes {
		if present[req.Type] {
			continue
		}
		missing = append(missing, req.Label)
		out.Checklist = append(out.Checklist, ChecklistEntry{
			Type:        constants.ChecklistMissingDocument,
			Severity:    constants.SeverityHigh,
			Title:       req.Label + " missing",
			Description: req.Label + " document was not found in this case. Please upload the relevant document.",
		})
	}

	total := len(constants.RequiredDocTypes)
	if len(missing) == 0 {
		return single(result(r.Key(), constants.SeverityHigh, constants.ResultPass,
			fmt.Sprintf("All required document types present (%d/%d).", total, total)))
	}
	out.Results = append(out.Results, result(r.Key(), constants.SeverityHigh, constants.ResultFail,
		"Missing document(s): "+strings.Join(missing, ", ")+"."))
	return out
}
