package llm

import (
	"fmt"
	"strings"
)

const (
	// ClassifyMaxTextChars bounds the first-page text sent for classification.
	ClassifyMaxTextChars = 2000
	// ExtractMaxPageChars bounds the page text sent for extraction.
	ExtractMaxPageChars = 8000
	// SnippetMaxChars bounds a stored evidence snippet.
	SnippetMaxChars = 200
)

// ClassificationSystemPrompt lists the closed label set.
const ClassificationSystemPrompt = `You are a document classifier for textile supply chain documents.

Classify the document into exactly one of these types:
- invoice (commercial invoice, proforma invoice)
- packing_list (packing list, shipment list)
- certificate (OEKO-TEX, GOTS, ISO certificates)
- test_report (SGS, Bureau Veritas, Intertek lab reports)
- sds (Safety Data Sheet, MSDS)
- bom (Bill of Materials, material declaration)

Respond with ONLY valid JSON:
{"doc_type": "<type>", "confidence": <0.0-1.0>}

Do not include any other text.`

// ExtractionSystemPrompt states the evidence contract.
const ExtractionSystemPrompt = `You are a document data extraction engine for textile trade documents.
Extract ONLY values that exist in the document text.
Do NOT generate, estimate, or infer values not present.
Every value must be backed by an exact quote from the text.
Return a JSON array of extracted fields.`

// BuildClassificationPrompt packages the filename and truncated first page.
func BuildClassificationPrompt(filename, firstPageText string) string {
	return "Filename: " + filename + "\n\nFirst page text (truncated):\n" + TruncateRunes(firstPageText, ClassifyMaxTextChars)
}

// BuildExtractionPrompt asks for the allowed keys of one page.
func BuildExtractionPrompt(docType string, pageNo int, pageText string, keys []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document type: %s. Page %d text:\n", docType, pageNo)
	b.WriteString(`"""`)
	b.WriteString(TruncateRunes(pageText, ExtractMaxPageChars))
	b.WriteString("\"\"\"\n\n")
	fmt.Fprintf(&b, "Extract these fields: %s.\n", strings.Join(keys, ", "))
	b.WriteString("For each field found, return:\n")
	fmt.Fprintf(&b, `{ "canonical_key": "...", "value": "...", "unit": "...", "confidence": 0.0-1.0, "page_no": %d, "snippet_text": "exact quote from document, max %d chars" }.`, pageNo, SnippetMaxChars)
	b.WriteString("\n\nIf a field is not found on this page, omit it from the result.\n")
	b.WriteString("Return ONLY valid JSON array, no markdown, no explanation.")
	return b.String()
}

// TruncateRunes cuts s to at most n characters without splitting a rune.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
