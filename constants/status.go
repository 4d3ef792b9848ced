package constants

// DocumentStatus is the processing state of a document.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentUploaded      DocumentStatus = "uploaded"
	DocumentProcessing    DocumentStatus = "processing"
	DocumentTextExtracted DocumentStatus = "text_extracted"
	DocumentClassified    DocumentStatus = "classified"
	DocumentExtracted     DocumentStatus = "extracted"
	DocumentError         DocumentStatus = "error"
)

// CaseStatus is derived from the statuses of a case's documents.
type CaseStatus string

const (
	CaseDraft      CaseStatus = "draft"
	CaseProcessing CaseStatus = "processing"
	CaseBlocked    CaseStatus = "blocked"
	CaseReadyL1    CaseStatus = "ready_l1"
)

type FieldStatus string

const (
	FieldPendingReview FieldStatus = "pending_review"
	FieldApproved      FieldStatus = "approved"
	FieldConflict      FieldStatus = "conflict"
	FieldRejected      FieldStatus = "rejected"
)

// IsValid reports whether s is a known field status.
func (s FieldStatus) IsValid() bool {
	switch s {
	case FieldPendingReview, FieldApproved, FieldConflict, FieldRejected:
		return true
	}
	return false
}

type Tier string

const (
	TierL1 Tier = "L1" // extracted, unreviewed
	TierL2 Tier = "L2" // reviewed and approved
)

type Visibility string

const (
	SupplierOnly Visibility = "supplier_only"
	BuyerVisible Visibility = "buyer_visible"
)

// FieldSource records how a field came to exist.
type FieldSource string

const (
	SourceExtraction FieldSource = "extraction"
	SourceMock       FieldSource = "mock"
	SourceManual     FieldSource = "manual"
)

type ResultStatus string

const (
	ResultPass ResultStatus = "pass"
	ResultFail ResultStatus = "fail"
	ResultWarn ResultStatus = "warn"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type ChecklistType string

const (
	ChecklistMissingDocument  ChecklistType = "missing_document"
	ChecklistMissingField     ChecklistType = "missing_field"
	ChecklistCompositionError ChecklistType = "composition_error"
	ChecklistConflict         ChecklistType = "conflict_detected"
	ChecklistExpiredDocument  ChecklistType = "expired_document"
)

type ChecklistStatus string

const (
	ChecklistOpen     ChecklistStatus = "open"
	ChecklistDone     ChecklistStatus = "done"
	ChecklistReopened ChecklistStatus = "reopened"
)

// IsValid reports whether s is a status a checklist item may be set to.
func (s ChecklistStatus) IsValid() bool {
	switch s {
	case ChecklistOpen, ChecklistDone, ChecklistReopened:
		return true
	}
	return false
}

// ExtractionMethod tags how a page's text was obtained.
type ExtractionMethod string

const (
	MethodNative    ExtractionMethod = "native"
	MethodTesseract ExtractionMethod = "tesseract"
)

// ClassificationMethod tags which classifier produced a doc type.
type ClassificationMethod string

const (
	ClassifiedHeuristic ClassificationMethod = "heuristic"
	ClassifiedLLM       ClassificationMethod = "llm"
	ClassifiedManual    ClassificationMethod = "manual"
)
