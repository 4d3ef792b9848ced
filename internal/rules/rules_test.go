package rules

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

func doc(t constants.DocType, status constants.DocumentStatus) *entity.Document {
	return &entity.Document{ID: uuid.New(), DocType: &t, Status: status}
}

func field(d *entity.Document, key, value string) *entity.ExtractedField {
	return &entity.ExtractedField{
		ID:           uuid.New(),
		DocumentID:   d.ID,
		CanonicalKey: key,
		Value:        value,
		Status:       constants.FieldPendingReview,
	}
}

func onlyResult(t *testing.T, out Output) *entity.ValidationResult {
	t.Helper()
	require.Len(t, out.Results, 1)
	return out.Results[0]
}

func TestMissingCriticalDocs(t *testing.T) {
	all := []*entity.Document{
		doc(constants.DocInvoice, constants.DocumentClassified),
		doc(constants.DocPackingList, constants.DocumentExtracted),
		doc(constants.DocCertificate, constants.DocumentClassified),
		doc(constants.DocTestReport, constants.DocumentClassified),
		doc(constants.DocSDS, constants.DocumentClassified),
	}
	out := MissingCriticalDocs{}.Evaluate(Input{Documents: all})
	res := onlyResult(t, out)
	assert.Equal(t, constants.ResultPass, res.Status)
	assert.Equal(t, "All required document types present (5/5).", res.Message)
	assert.Empty(t, out.Checklist)

	// errored SDS and an unclassified document do not count
	partial := []*entity.Document{
		all[0], all[1], all[2], all[3],
		doc(constants.DocSDS, constants.DocumentError),
		{ID: uuid.New(), Status: constants.DocumentClassified},
	}
	out = MissingCriticalDocs{}.Evaluate(Input{Documents: partial})
	res = onlyResult(t, out)
	assert.Equal(t, constants.ResultFail, res.Status)
	assert.Equal(t, constants.SeverityHigh, res.Severity)
	assert.Equal(t, "Missing document(s): Safety Data Sheet (SDS).", res.Message)
	require.Len(t, out.Checklist, 1)
	assert.Equal(t, constants.ChecklistMissingDocument, out.Checklist[0].Type)
	assert.Equal(t, "Safety Data Sheet (SDS) missing", out.Checklist[0].Title)
}

func TestCompositionSum_Boundaries(t *testing.T) {
	tests := []struct {
		cotton, elastane string
		want             constants.ResultStatus
	}{
		{"94", "5", constants.ResultPass},    // 99.0
		{"96", "5", constants.ResultPass},    // 101.0
		{"93.9", "5", constants.ResultFail},  // 98.9
		{"96.1", "5", constants.ResultFail},  // 101.1
		{"95 %", "5%", constants.ResultPass}, // 100
		{"94,5", "5,5", constants.ResultPass},
	}
	for _, tt := range tests {
		t.Run(tt.cotton+"+"+tt.elastane, func(t *testing.T) {
			d := doc(constants.DocBOM, constants.DocumentExtracted)
			out := CompositionSum{}.Evaluate(Input{Fields: []*entity.ExtractedField{
				field(d, constants.KeyCottonPct, tt.cotton),
				field(d, constants.KeyElastanePct, tt.elastane),
			}})
			res := onlyResult(t, out)
			assert.Equal(t, tt.want, res.Status)
			assert.Len(t, res.RelatedFieldIDs, 2)
			if tt.want == constants.ResultFail {
				require.Len(t, out.Checklist, 1)
				assert.Equal(t, constants.ChecklistCompositionError, out.Checklist[0].Type)
			} else {
				assert.Empty(t, out.Checklist)
			}
		})
	}
}

func TestCompositionSum_AnyDocumentPasses(t *testing.T) {
	bom := doc(constants.DocBOM, constants.DocumentExtracted)
	report := doc(constants.DocTestReport, constants.DocumentExtracted)
	fields := []*entity.ExtractedField{
		field(bom, constants.KeyCottonPct, "95"),
		field(bom, constants.KeyElastanePct, "5"),
		field(report, constants.KeyCottonPct, "80"),
		field(report, constants.KeyElastanePct, "5"),
	}
	res := onlyResult(t, CompositionSum{}.Evaluate(Input{Fields: fields}))
	assert.Equal(t, constants.ResultPass, res.Status)
	assert.Len(t, res.RelatedFieldIDs, 4)
	assert.Contains(t, res.Message, "100.0% (valid)")
	assert.Contains(t, res.Message, "85.0% (invalid)")
}

func TestCompositionSum_ParseErrorIsPerDocument(t *testing.T) {
	bad := doc(constants.DocBOM, constants.DocumentExtracted)
	good := doc(constants.DocTestReport, constants.DocumentExtracted)
	fields := []*entity.ExtractedField{
		field(bad, constants.KeyCottonPct, "ninety"),
		field(good, constants.KeyCottonPct, "100"),
	}
	res := onlyResult(t, CompositionSum{}.Evaluate(Input{Fields: fields}))
	assert.Equal(t, constants.ResultPass, res.Status)
	assert.Contains(t, res.Message, "parse error (material.composition.cotton_pct)")
}

func TestCompositionSum_NoFieldsWarns(t *testing.T) {
	d := doc(constants.DocBOM, constants.DocumentExtracted)
	rejected := field(d, constants.KeyCottonPct, "100")
	rejected.Status = constants.FieldRejected
	res := onlyResult(t, CompositionSum{}.Evaluate(Input{Fields: []*entity.ExtractedField{rejected}}))
	assert.Equal(t, constants.ResultWarn, res.Status)
	assert.Equal(t, constants.SeverityMedium, res.Severity)
}

func TestQuantityMismatch(t *testing.T) {
	inv := doc(constants.DocInvoice, constants.DocumentExtracted)
	pl := doc(constants.DocPackingList, constants.DocumentExtracted)
	docs := []*entity.Document{inv, pl}

	invQty := field(inv, constants.KeyTotalQuantity, "12000")
	plQty := field(pl, constants.KeyTotalQuantity, "12,000 pcs")
	res := onlyResult(t, QuantityMismatch{}.Evaluate(Input{Documents: docs, Fields: []*entity.ExtractedField{invQty, plQty}}))
	assert.Equal(t, constants.ResultPass, res.Status)
	assert.Equal(t, []uuid.UUID{invQty.ID, plQty.ID}, res.RelatedFieldIDs)

	plQty.Value = "11000"
	out := QuantityMismatch{}.Evaluate(Input{Documents: docs, Fields: []*entity.ExtractedField{invQty, plQty}})
	res = onlyResult(t, out)
	assert.Equal(t, constants.ResultFail, res.Status)
	assert.ElementsMatch(t, []uuid.UUID{invQty.ID, plQty.ID}, res.RelatedFieldIDs)
	require.Len(t, out.Checklist, 1)
	assert.Equal(t, constants.ChecklistConflict, out.Checklist[0].Type)
	assert.Equal(t, invQty.ID, *out.Checklist[0].RelatedFieldID)

	plQty.Value = "about twelve thousand"
	res = onlyResult(t, QuantityMismatch{}.Evaluate(Input{Documents: docs, Fields: []*entity.ExtractedField{invQty, plQty}}))
	assert.Equal(t, constants.ResultFail, res.Status)
	assert.Contains(t, res.Message, "not numeric")

	res = onlyResult(t, QuantityMismatch{}.Evaluate(Input{Documents: docs, Fields: []*entity.ExtractedField{invQty}}))
	assert.Equal(t, constants.ResultWarn, res.Status)
}

func TestParseQuantity(t *testing.T) {
	for in, want := range map[string]string{
		"12000":       "12000",
		"12,000":      "12000",
		" 12,000 pcs": "12000",
		"1500.5 kg":   "1500.5",
	} {
		got, err := ParseQuantity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}
	_, err := ParseQuantity("pcs")
	assert.Error(t, err)
}

func TestCertificateValidity(t *testing.T) {
	cert := doc(constants.DocCertificate, constants.DocumentExtracted)
	f := field(cert, constants.KeyOekotexValidUntil, "14 March 2026")
	in := Input{Documents: []*entity.Document{cert}, Fields: []*entity.ExtractedField{f}}

	in.Today = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	out := CertificateValidity{}.Evaluate(in)
	assert.Equal(t, constants.ResultPass, onlyResult(t, out).Status)
	assert.Empty(t, out.Checklist)

	in.Today = time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, constants.ResultPass, onlyResult(t, CertificateValidity{}.Evaluate(in)).Status)

	in.Today = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	out = CertificateValidity{}.Evaluate(in)
	res := onlyResult(t, out)
	assert.Equal(t, constants.ResultFail, res.Status)
	assert.Equal(t, "Certificate expired (certificate.oekotex.valid_until, 2026-03-14).", res.Message)
	require.Len(t, out.Checklist, 1)
	assert.Equal(t, constants.ChecklistExpiredDocument, out.Checklist[0].Type)
	assert.Equal(t, constants.SeverityHigh, out.Checklist[0].Severity)

	f.Value = "sometime next year"
	res = onlyResult(t, CertificateValidity{}.Evaluate(in))
	assert.Equal(t, constants.ResultFail, res.Status)
	assert.Contains(t, res.Message, "unreadable")

	res = onlyResult(t, CertificateValidity{}.Evaluate(Input{Today: in.Today}))
	assert.Equal(t, constants.ResultWarn, res.Status)
}

func TestParseCertificateDate(t *testing.T) {
	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2026-03-14", "2026-3-14", "14 March 2026", "14 Mar 2026", "March 14, 2026",
		"2026/03/14", "14/03/2026", "03/14/2026", " 14 march 2026 ",
	} {
		got, ok := ParseCertificateDate(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	// day-first wins when both readings are valid
	got, ok := ParseCertificateDate("05/03/2026")
	require.True(t, ok)
	assert.Equal(t, time.March, got.Month())

	_, ok = ParseCertificateDate("2026.03.14")
	assert.False(t, ok)
}

func TestConflictDetection(t *testing.T) {
	inv := doc(constants.DocInvoice, constants.DocumentExtracted)
	pl := doc(constants.DocPackingList, constants.DocumentExtracted)

	a := field(inv, constants.KeyTotalQuantity, "12,000")
	b := field(pl, constants.KeyTotalQuantity, "12000")
	out := ConflictDetection{}.Evaluate(Input{Fields: []*entity.ExtractedField{a, b}})
	res := onlyResult(t, out)
	assert.Equal(t, constants.ResultPass, res.Status)
	assert.Equal(t, constants.SeverityMedium, res.Severity)
	assert.Empty(t, out.ConflictFieldIDs)

	b.Value = "11,500"
	out = ConflictDetection{}.Evaluate(Input{Fields: []*entity.ExtractedField{a, b}})
	res = onlyResult(t, out)
	assert.Equal(t, constants.ResultFail, res.Status)
	assert.Equal(t, "Different values for shipment.total_quantity (12,000 vs 11,500).", res.Message)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, out.ConflictFieldIDs)
	require.Len(t, out.Checklist, 1)
	assert.Equal(t, "Conflicting Field: shipment.total_quantity", out.Checklist[0].Title)

	// rejected fields are out of the comparison
	b.Status = constants.FieldRejected
	assert.Equal(t, constants.ResultPass, onlyResult(t, ConflictDetection{}.Evaluate(Input{Fields: []*entity.ExtractedField{a, b}})).Status)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "12000 pcs", NormalizeValue("  12,000 PCS "))
	assert.Equal(t, NormalizeValue("Turkey"), NormalizeValue("turkey"))
}
