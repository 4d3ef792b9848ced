package constants

// Canonical field keys.
const (
	KeyInvoiceNumber        = "shipment.invoice_number"
	KeyInvoiceDate          = "shipment.invoice_date"
	KeyTotalQuantity        = "shipment.total_quantity"
	KeyShipmentUnit         = "shipment.unit"
	KeyPackingListNumber    = "shipment.packing_list_number"
	KeyHSCode               = "customs.hs_code"
	KeyProductSKU           = "product.sku"
	KeyProductName          = "product.name"
	KeyFactoryName          = "factory.name"
	KeyFactoryCountry       = "factory.country"
	KeyOekotexNumber        = "certificate.oekotex.number"
	KeyOekotexValidUntil    = "certificate.oekotex.valid_until"
	KeyCertificateIssuer    = "certificate.issuer"
	KeyLabName              = "test_report.lab_name"
	KeyReportNumber         = "test_report.report_number"
	KeyReportDate           = "test_report.report_date"
	KeyReportResult         = "test_report.result_pass_fail"
	KeyCottonPct            = "material.composition.cotton_pct"
	KeyPolyesterPct         = "material.composition.polyester_pct"
	KeyElastanePct          = "material.composition.elastane_pct"
	KeyViscosePct           = "material.composition.viscose_pct"
	KeyOtherPct             = "material.composition.other_pct"
	KeyTotalPct             = "material.composition.total_pct"
	KeySDSExists            = "sds.exists"
	KeyRestrictedSubstances = "chemical.restricted_substances_pass_fail"
	KeyBatchID              = "batch.id"
	KeyProductionDateFrom   = "batch.production_date_from"
	KeyProductionDateTo     = "batch.production_date_to"
)

// DocTypeFields lists the canonical keys an extractor may emit per doc type.
var DocTypeFields = map[DocType][]string{
	DocInvoice: {
		KeyInvoiceNumber,
		KeyInvoiceDate,
		KeyTotalQuantity,
		KeyShipmentUnit,
		KeyHSCode,
		KeyProductSKU,
		KeyProductName,
		KeyFactoryCountry,
	},
	DocPackingList: {
		KeyPackingListNumber,
		KeyTotalQuantity,
	},
	DocCertificate: {
		KeyOekotexNumber,
		KeyOekotexValidUntil,
		KeyCertificateIssuer,
	},
	DocTestReport: {
		KeyLabName,
		KeyReportNumber,
		KeyReportDate,
		KeyReportResult,
		KeyCottonPct,
		KeyElastanePct,
	},
	DocSDS: {
		KeySDSExists,
		KeyRestrictedSubstances,
	},
	DocBOM: {
		KeyCottonPct,
		KeyElastanePct,
		KeyTotalPct,
		KeyProductSKU,
		KeyProductName,
		KeyBatchID,
		KeyProductionDateFrom,
		KeyProductionDateTo,
		KeyFactoryName,
		KeyFactoryCountry,
	},
}

// FieldLabels are display labels for canonical keys.
var FieldLabels = map[string]string{
	KeyInvoiceNumber:        "Invoice Number",
	KeyInvoiceDate:          "Invoice Date",
	KeyTotalQuantity:        "Total Quantity",
	KeyShipmentUnit:         "Unit",
	KeyHSCode:               "HS Code",
	KeyProductSKU:           "Product SKU",
	KeyProductName:          "Product Name",
	KeyFactoryCountry:       "Factory Country",
	KeyFactoryName:          "Factory Name",
	KeyPackingListNumber:    "Packing List Number",
	KeyOekotexNumber:        "OEKO-TEX Certificate Number",
	KeyOekotexValidUntil:    "Valid Until",
	KeyCertificateIssuer:    "Certificate Issuer",
	KeyLabName:              "Laboratory Name",
	KeyReportNumber:         "Report Number",
	KeyReportDate:           "Report Date",
	KeyReportResult:         "Result (Pass/Fail)",
	KeyCottonPct:            "Cotton (%)",
	KeyPolyesterPct:         "Polyester (%)",
	KeyElastanePct:          "Elastane (%)",
	KeyViscosePct:           "Viscose (%)",
	KeyOtherPct:             "Other Fibres (%)",
	KeyTotalPct:             "Total Composition (%)",
	KeySDSExists:            "SDS Present",
	KeyRestrictedSubstances: "Restricted Substances Result",
	KeyBatchID:              "Batch Number",
	KeyProductionDateFrom:   "Production Start",
	KeyProductionDateTo:     "Production End",
}

// Category groups canonical keys for reports.
type Category string

const (
	CategoryIdentity    Category = "Identity"
	CategoryMaterial    Category = "Material"
	CategoryCertificate Category = "Certificate"
	CategoryTest        Category = "Test"
	CategorySDS         Category = "SDS"
	CategoryFactory     Category = "Factory"
	CategoryProduction  Category = "Production"
	CategoryCustoms     Category = "Customs"
	CategoryOther       Category = "Other"
)

var fieldCategories = map[string]Category{
	KeyInvoiceNumber:        CategoryIdentity,
	KeyInvoiceDate:          CategoryIdentity,
	KeyPackingListNumber:    CategoryIdentity,
	KeyProductSKU:           CategoryIdentity,
	KeyProductName:          CategoryIdentity,
	KeyBatchID:              CategoryIdentity,
	KeyCottonPct:            CategoryMaterial,
	KeyPolyesterPct:         CategoryMaterial,
	KeyElastanePct:          CategoryMaterial,
	KeyViscosePct:           CategoryMaterial,
	KeyOtherPct:             CategoryMaterial,
	KeyTotalPct:             CategoryMaterial,
	KeyTotalQuantity:        CategoryMaterial,
	KeyShipmentUnit:         CategoryMaterial,
	KeyOekotexNumber:        CategoryCertificate,
	KeyOekotexValidUntil:    CategoryCertificate,
	KeyCertificateIssuer:    CategoryCertificate,
	KeyLabName:              CategoryTest,
	KeyReportNumber:         CategoryTest,
	KeyReportDate:           CategoryTest,
	KeyReportResult:         CategoryTest,
	KeySDSExists:            CategorySDS,
	KeyRestrictedSubstances: CategorySDS,
	KeyFactoryName:          CategoryFactory,
	KeyFactoryCountry:       CategoryFactory,
	KeyProductionDateFrom:   CategoryProduction,
	KeyProductionDateTo:     CategoryProduction,
	KeyHSCode:               CategoryCustoms,
}

// CompositionKeys are the percentage fields summed by the composition rule.
var CompositionKeys = []string{
	KeyCottonPct,
	KeyPolyesterPct,
	KeyElastanePct,
	KeyViscosePct,
	KeyOtherPct,
}

// RequiredFields drive the evidence coverage metric.
var RequiredFields = []string{
	KeyInvoiceNumber,
	KeyTotalQuantity,
	KeyCottonPct,
	KeyElastanePct,
}

// Label returns the display label for a key, falling back to the key itself.
func Label(key string) string {
	if l, ok := FieldLabels[key]; ok {
		return l
	}
	return key
}

// CategoryOf returns the report category of a key.
func CategoryOf(key string) Category {
	if c, ok := fieldCategories[key]; ok {
		return c
	}
	return CategoryOther
}

// IsKnownKey reports whether key is a canonical key of any doc type or a composition key.
func IsKnownKey(key string) bool {
	_, ok := FieldLabels[key]
	return ok
}

// AllowedKeys returns the extraction key set for a doc type.
func AllowedKeys(t DocType) []string {
	keys := DocTypeFields[t]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}
