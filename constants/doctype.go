package constants

import "strings"

// DocType is the classified type of a trade document.
type DocType string

const (
	DocInvoice     DocType = "invoice"
	DocPackingList DocType = "packing_list"
	DocCertificate DocType = "certificate"
	DocTestReport  DocType = "test_report"
	DocSDS         DocType = "sds"
	DocBOM         DocType = "bom"
)

var allDocTypes = []DocType{
	DocInvoice,
	DocPackingList,
	DocCertificate,
	DocTestReport,
	DocSDS,
	DocBOM,
}

// DocTypes returns every known doc type in a stable order.
func DocTypes() []DocType {
	out := make([]DocType, len(allDocTypes))
	copy(out, allDocTypes)
	return out
}

// DocTypeStrings returns the closed label set as strings.
func DocTypeStrings() []string {
	result := make([]string, len(allDocTypes))
	for i, t := range allDocTypes {
		result[i] = string(t)
	}
	return result
}

// ParseDocType normalizes input and reports whether it names a known doc type.
func ParseDocType(input string) (DocType, bool) {
	normalized := DocType(strings.ToLower(strings.TrimSpace(input)))
	for _, t := range allDocTypes {
		if normalized == t {
			return t, true
		}
	}
	return "", false
}

// RequiredDocType is a document type every case must carry, with its display label.
type RequiredDocType struct {
	Type  DocType
	Label string
}

// RequiredDocTypes is ordered the way missing documents are reported.
var RequiredDocTypes = []RequiredDocType{
	{DocInvoice, "Commercial Invoice"},
	{DocPackingList, "Packing List"},
	{DocCertificate, "Certificate (OEKO-TEX)"},
	{DocTestReport, "Test Report"},
	{DocSDS, "Safety Data Sheet (SDS)"},
}
