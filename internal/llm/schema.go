package llm

// ClassificationSchema is the JSON-Schema of a classification answer. The
// doc_type enum is not enforced here so an out-of-set label can be logged
// before it is discarded.
func ClassificationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"doc_type":   map[string]any{"type": "string"},
			"confidence": map[string]any{"type": []any{"number", "string"}},
		},
		"required": []any{"doc_type"},
	}
}

// ExtractionItemSchema is the JSON-Schema of one extracted field restricted
// to allowedKeys. Only the key, value and snippet are constrained; unit,
// confidence and page_no are coerced by the caller whatever their JSON type.
func ExtractionItemSchema(allowedKeys []string) map[string]any {
	enum := make([]any, len(allowedKeys))
	for i, k := range allowedKeys {
		enum[i] = k
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"canonical_key": map[string]any{"type": "string", "enum": enum},
			"value":         map[string]any{"type": []any{"string", "number", "boolean"}},
			"snippet_text":  map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"canonical_key", "value", "snippet_text"},
	}
}
