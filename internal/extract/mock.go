package extract

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
)

const (
	mockConfidence     = 0.95
	mockSnippetContext = 20
)

//go:embed golden.csv
var goldenCSV []byte

type goldenEntry struct {
	docType  constants.DocType
	key      string
	value    string
	unit     string
	page     int
	contains string
}

// Mock replays a fixed golden table keyed by doc type. It makes no network
// calls and its output depends only on the doc type and the page text.
type Mock struct {
	byType map[constants.DocType][]goldenEntry
	logger *slog.Logger
}

func NewMock(logger *slog.Logger) (*Mock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	byType, err := loadGolden(bytes.NewReader(goldenCSV))
	if err != nil {
		return nil, fmt.Errorf("load golden table: %w", err)
	}
	return &Mock{byType: byType, logger: logger}, nil
}

func (m *Mock) Source() constants.FieldSource { return constants.SourceMock }

func (m *Mock) ExtractFields(_ context.Context, docType constants.DocType, pages []entity.Page) (*Output, error) {
	entries := m.byType[docType]
	if len(entries) == 0 {
		m.logger.Warn("extract.mock.no_entries", "doc_type", docType)
		return &Output{}, nil
	}
	texts := make(map[int]string, len(pages))
	for _, p := range pages {
		texts[p.PageNumber] = p.Text
	}

	cands := make([]entity.FieldCandidate, 0, len(entries))
	for _, e := range entries {
		c := entity.FieldCandidate{
			CanonicalKey: e.key,
			Value:        e.value,
			Page:         e.page,
			Snippet:      llm.TruncateRunes(locateSnippet(texts[e.page], e.contains, e.key), llm.SnippetMaxChars),
			Confidence:   mockConfidence,
		}
		if e.unit != "" {
			u := e.unit
			c.Unit = &u
		}
		cands = append(cands, c)
	}
	m.logger.Info("extract.mock.ok", "doc_type", docType, "fields", len(cands))
	return &Output{
		Candidates: cands,
		Usage:      entity.ExtractionUsage{PagesProcessed: len(pages)},
	}, nil
}

// locateSnippet returns the expected text with a little surrounding context
// when it occurs on the page, the expected text itself when it does not, and
// a placeholder when nothing is expected.
func locateSnippet(pageText, contains, key string) string {
	if contains == "" {
		return "[mock] " + key
	}
	idx := strings.Index(pageText, contains)
	if idx < 0 {
		return contains
	}
	runes := []rune(pageText)
	start := utf8.RuneCountInString(pageText[:idx])
	end := start + utf8.RuneCountInString(contains)
	start = max(0, start-mockSnippetContext)
	end = min(len(runes), end+mockSnippetContext)
	return strings.TrimSpace(string(runes[start:end]))
}

func loadGolden(r io.Reader) (map[constants.DocType][]goldenEntry, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range []string{"doc_type", "canonical_key", "expected_value"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	out := make(map[constants.DocType][]goldenEntry)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		docType, ok := constants.ParseDocType(get(rec, "doc_type"))
		if !ok {
			return nil, fmt.Errorf("line %d: unknown doc_type %q", line, get(rec, "doc_type"))
		}
		page := 1
		if s := get(rec, "expected_page"); s != "" {
			if page, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("line %d: expected_page: %w", line, err)
			}
		}
		out[docType] = append(out[docType], goldenEntry{
			docType:  docType,
			key:      get(rec, "canonical_key"),
			value:    get(rec, "expected_value"),
			unit:     get(rec, "expected_unit"),
			page:     page,
			contains: get(rec, "expected_snippet_contains"),
		})
	}
	return out, nil
}
