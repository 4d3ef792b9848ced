package constants

// ErrorCode is a document-scoped failure recorded on the document row.
type ErrorCode string

const (
	ErrEncryptedPDF      ErrorCode = "encrypted_pdf"
	ErrLowQualityImage   ErrorCode = "low_quality_image"
	ErrOCRFailed         ErrorCode = "ocr_failed"
	ErrUnsupportedFile   ErrorCode = "unsupported_file"
	ErrExtractionTimeout ErrorCode = "extraction_timeout"
	ErrExtractionFailed  ErrorCode = "extraction_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrEncryptedPDF:      "The PDF is password protected and cannot be read.",
	ErrLowQualityImage:   "The image quality is too low to read any text.",
	ErrOCRFailed:         "Text could not be read from the document.",
	ErrUnsupportedFile:   "The file type is not supported or the file content does not match its declared type.",
	ErrExtractionTimeout: "Text extraction timed out.",
	ErrExtractionFailed:  "Field extraction failed.",
}

// Message returns the human readable message for the code.
func (c ErrorCode) Message() string {
	if m, ok := errorMessages[c]; ok {
		return m
	}
	return string(c)
}
