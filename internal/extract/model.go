package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
)

const (
	extractMaxTokens  = 2048
	defaultConfidence = 0.5
)

// Model extracts fields page by page with a language model. A page that
// fails is skipped and counted; it never fails the whole run.
type Model struct {
	completer llm.Completer
	logger    *slog.Logger
}

func NewModel(completer llm.Completer, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{completer: completer, logger: logger}
}

func (m *Model) Source() constants.FieldSource { return constants.SourceExtraction }

func (m *Model) ExtractFields(ctx context.Context, docType constants.DocType, pages []entity.Page) (*Output, error) {
	keys := constants.DocTypeFields[docType]
	if len(keys) == 0 {
		m.logger.Warn("extract.model.no_keys", "doc_type", docType)
		return &Output{}, nil
	}
	schema, err := llm.CompileSchema(llm.ExtractionItemSchema(keys))
	if err != nil {
		return nil, fmt.Errorf("compile extraction schema: %w", err)
	}

	var (
		usage entity.ExtractionUsage
		all   []entity.FieldCandidate
	)
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			usage.PagesSkipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prompt := llm.BuildExtractionPrompt(string(docType), p.PageNumber, p.Text, keys)
		resp, err := m.completer.Complete(ctx, llm.UserRequest(llm.ExtractionSystemPrompt, prompt, extractMaxTokens))
		if err != nil {
			m.logger.Error("extract.model.page_failed", "doc_type", docType, "page", p.PageNumber, "error", err)
			usage.PagesSkipped++
			continue
		}
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		usage.PagesProcessed++

		found := m.parse(resp.Text, p.PageNumber, schema)
		m.logger.Debug("extract.model.page_ok", "doc_type", docType, "page", p.PageNumber, "fields", len(found))
		all = append(all, found...)
	}

	out := &Output{Candidates: dedupe(all), Usage: usage}
	m.logger.Info("extract.model.ok",
		"doc_type", docType,
		"fields", len(out.Candidates),
		"pages_processed", usage.PagesProcessed,
		"pages_skipped", usage.PagesSkipped,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
	)
	return out, nil
}

// parse decodes a model answer. Malformed JSON yields nothing; a single
// object is treated as a one-element list.
func (m *Model) parse(raw string, pageNo int, schema *jsonschema.Schema) []entity.FieldCandidate {
	text := llm.StripCodeFences(raw)
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		m.logger.Warn("extract.model.malformed_json", "page", pageNo, "head", llm.TruncateRunes(text, 100))
		return nil
	}
	items, ok := data.([]any)
	if !ok {
		items = []any{data}
	}

	out := make([]entity.FieldCandidate, 0, len(items))
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if err := schema.Validate(item); err != nil {
			m.logger.Debug("extract.model.item_rejected", "page", pageNo, "key", item["canonical_key"], "error", err)
			continue
		}
		key, _ := item["canonical_key"].(string)
		value := strings.TrimSpace(stringify(item["value"]))
		snippet := strings.TrimSpace(stringify(item["snippet_text"]))
		if value == "" {
			m.logger.Debug("extract.model.empty_value", "key", key)
			continue
		}
		if snippet == "" {
			m.logger.Debug("extract.model.no_evidence", "key", key)
			continue
		}

		c := entity.FieldCandidate{
			CanonicalKey: key,
			Value:        value,
			Page:         pageNo,
			Snippet:      llm.TruncateRunes(snippet, llm.SnippetMaxChars),
			Confidence:   clamp01(confidenceOf(item["confidence"])),
		}
		if n, ok := pageOf(item["page_no"]); ok {
			c.Page = n
		}
		if u := strings.TrimSpace(stringify(item["unit"])); u != "" {
			c.Unit = &u
		}
		out = append(out, c)
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func confidenceOf(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return defaultConfidence
}

// pageOf accepts a JSON number or a numeric string of at least 1.
func pageOf(v any) (int, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		return 0, false
	}
	if f < 1 || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func clamp01(f float64) float64 {
	return max(0, min(1, f))
}
