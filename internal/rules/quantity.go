package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

var trailingUnit = regexp.MustCompile(`[a-zA-Z\s]+$`)

// QuantityMismatch compares the total quantity of the first invoice and the
// first packing list.
type QuantityMismatch struct{}

func (QuantityMismatch) Key() string { return "qty_mismatch" }

func (r QuantityMismatch) Evaluate(in Input) Output {
	docTypes := make(map[uuid.UUID]constants.DocType, len(in.Documents))
	for _, d := range in.Documents {
		if d.HasDocType() {
			docTypes[d.ID] = *d.DocType
		}
	}
	var invoice, packing *entity.ExtractedField
	for _, f := range active(in.Fields) {
		if f.CanonicalKey != constants.KeyTotalQuantity {
			continue
		}
		switch docTypes[f.DocumentID] {
		case constants.DocInvoice:
			if invoice == nil {
				invoice = f
			}
		case constants.DocPackingList:
			if packing == nil {
				packing = f
			}
		}
	}
	if invoice == nil || packing == nil {
		return single(result(r.Key(), constants.SeverityMedium, constants.ResultWarn,
			"Cannot compare quantities: the invoice or the packing list has no total quantity."))
	}

	ids := []uuid.UUID{invoice.ID, packing.ID}
	invQty, errInv := ParseQuantity(invoice.Value)
	packQty, errPack := ParseQuantity(packing.Value)
	if errInv != nil || errPack != nil {
		return single(result(r.Key(), constants.SeverityHigh, constants.ResultFail,
			fmt.Sprintf("Quantity values are not numeric: invoice=%q, packing list=%q.", invoice.Value, packing.Value), ids...))
	}
	if invQty.Equal(packQty) {
		return single(result(r.Key(), constants.SeverityHigh, constants.ResultPass,
			fmt.Sprintf("Quantity matches: %s (invoice = packing list).", invQty), ids...))
	}
	return Output{
		Results: []*entity.ValidationResult{result(r.Key(), constants.SeverityHigh, constants.ResultFail,
			fmt.Sprintf("Invoice and packing list quantities differ (invoice=%s, packing=%s).", invQty, packQty), ids...)},
		Checklist: []ChecklistEntry{{
			Type:           constants.ChecklistConflict,
			Severity:       constants.SeverityHigh,
			Title:          "Quantity Mismatch",
			Description:    fmt.Sprintf("The invoice quantity (%s) does not match the packing list quantity (%s).", invQty, packQty),
			RelatedFieldID: ptr(invoice.ID),
		}},
	}
}

// ParseQuantity reads "12,000" or "12000 pcs" as a decimal.
func ParseQuantity(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = trailingUnit.ReplaceAllString(s, "")
	return decimal.NewFromString(s)
}
