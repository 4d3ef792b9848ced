package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

const dateLayout = "2006-01-02"

// certificateDateLayouts are tried in order, day-first before month-first.
// Single-digit layout elements also accept zero-padded input.
var certificateDateLayouts = []string{
	"2006-1-2",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"2006/1/2",
	"2/1/2006",
	"1/2/2006",
}

// CertificateValidity fails when the OEKO-TEX valid-until date is unreadable
// or before today.
type CertificateValidity struct{}

func (CertificateValidity) Key() string { return "certificate_validity" }

func (r CertificateValidity) Evaluate(in Input) Output {
	var field *entity.ExtractedField
	for _, f := range active(in.Fields) {
		if f.CanonicalKey == constants.KeyOekotexValidUntil {
			field = f
			break
		}
	}
	if field == nil {
		return single(result(r.Key(), constants.SeverityMedium, constants.ResultWarn,
			"Certificate validity date not found."))
	}

	validUntil, ok := ParseCertificateDate(field.Value)
	if !ok {
		return single(result(r.Key(), constants.SeverityHigh, constants.ResultFail,
			fmt.Sprintf("Certificate date unreadable: %q.", field.Value), field.ID))
	}

	today := dateOnly(in.Today)
	if !validUntil.Before(today) {
		return single(result(r.Key(), constants.SeverityHigh, constants.ResultPass,
			fmt.Sprintf("Certificate valid: %s (today: %s).", validUntil.Format(dateLayout), today.Format(dateLayout)), field.ID))
	}
	return Output{
		Results: []*entity.ValidationResult{result(r.Key(), constants.SeverityHigh, constants.ResultFail,
			fmt.Sprintf("Certificate expired (%s, %s).", constants.KeyOekotexValidUntil, validUntil.Format(dateLayout)), field.ID)},
		Checklist: []ChecklistEntry{{
			Type:           constants.ChecklistExpiredDocument,
			Severity:       constants.SeverityHigh,
			Title:          "Expired Certificate",
			Description:    fmt.Sprintf("OEKO-TEX certificate expired on %s. Please upload an up-to-date certificate.", validUntil.Format(dateLayout)),
			RelatedFieldID: ptr(field.ID),
		}},
	}
}

// ParseCertificateDate tries every accepted layout; the first match wins.
func ParseCertificateDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range certificateDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
