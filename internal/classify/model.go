package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
)

const classifyMaxTokens = 100

// Model asks a language model for the document type. Any failure, including
// an out-of-set label, is reported as uncertain.
type Model struct {
	completer llm.Completer
	schema    *jsonschema.Schema
	logger    *slog.Logger
}

func NewModel(completer llm.Completer, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if completer == nil {
		return nil, fmt.Errorf("classify: completer is required")
	}
	schema, err := llm.CompileSchema(llm.ClassificationSchema())
	if err != nil {
		return nil, err
	}
	return &Model{completer: completer, schema: schema, logger: logger}, nil
}

func (m *Model) Classify(ctx context.Context, filename, text string) *Result {
	req := llm.UserRequest(llm.ClassificationSystemPrompt, llm.BuildClassificationPrompt(filename, text), classifyMaxTokens)
	req.JSONObject = true

	resp, err := m.completer.Complete(ctx, req)
	if err != nil {
		m.logger.Warn("classify.model.failed", "filename", filename, "error", err)
		return nil
	}
	res, err := m.parse(resp.Text)
	if err != nil {
		m.logger.Warn("classify.model.bad_response", "filename", filename, "error", err)
		return nil
	}
	m.logger.Debug("classify.model.ok", "filename", filename, "doc_type", res.DocType, "confidence", res.Confidence)
	return res
}

func (m *Model) parse(raw string) (*Result, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(llm.StripCodeFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := m.schema.Validate(payload); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	label, _ := payload["doc_type"].(string)
	docType, ok := constants.ParseDocType(label)
	if !ok {
		return nil, fmt.Errorf("invalid doc_type %q", label)
	}
	conf, err := confidenceOf(payload["confidence"])
	if err != nil {
		return nil, err
	}
	return &Result{DocType: docType, Confidence: min(conf, 1.0), Method: constants.ClassifiedLLM}, nil
}

func confidenceOf(v any) (float64, error) {
	switch c := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return c, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return 0, fmt.Errorf("confidence %q: %w", c, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("confidence has type %T", v)
	}
}
