// Package export renders a case report as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/metrics"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
)

const (
	SheetSummary    = "Summary"
	SheetFields     = "Fields"
	SheetValidation = "Validation"
	SheetChecklist  = "Checklist"
)

// Service is a small façade over the repositories that produces XLSX bytes.
type Service struct {
	repos  *repository.Repositories
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repos *repository.Repositories, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, logger: logger, now: time.Now}
}

// CaseReport is everything the workbook is built from.
type CaseReport struct {
	Case      *entity.Case
	Documents []*entity.Document
	Fields    []*entity.ExtractedField
	Results   []*entity.ValidationResult
	Checklist []*entity.ChecklistItem
	Metrics   *entity.CaseMetrics
}

// ExportCaseXLSX returns the case report workbook as bytes.
func (s *Service) ExportCaseXLSX(ctx context.Context, caseID uuid.UUID) ([]byte, error) {
	start := time.Now()
	r, err := s.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	out, err := Render(r)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"case_id", caseID,
		"fields", len(r.Fields),
		"results", len(r.Results),
		"checklist", len(r.Checklist),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *Service) load(ctx context.Context, caseID uuid.UUID) (*CaseReport, error) {
	c, err := s.repos.Cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}
	r := &CaseReport{Case: c}
	if r.Documents, err = s.repos.Documents.ListByCase(ctx, caseID); err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	if r.Fields, err = s.repos.Fields.ListByCase(ctx, caseID); err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	if r.Results, err = s.repos.Results.ListByCase(ctx, caseID); err != nil {
		return nil, fmt.Errorf("query validation results: %w", err)
	}
	if r.Checklist, err = s.repos.Checklist.ListByCase(ctx, caseID); err != nil {
		return nil, fmt.Errorf("query checklist: %w", err)
	}
	r.Metrics = metrics.Compute(caseID, r.Documents, r.Fields, r.Checklist, s.now())
	return r, nil
}

// Render builds the workbook: a summary sheet followed by fields,
// validation results and checklist items.
func Render(r *CaseReport) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetFields, SheetValidation, SheetChecklist} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	w := &sheetWriter{f: f, bold: bold}

	w.summary(r)
	w.fields(r)
	w.validation(r)
	w.checklist(r)
	if w.err != nil {
		return nil, fmt.Errorf("xlsx fill: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so row writes read straight.
type sheetWriter struct {
	f    *excelize.File
	bold int
	err  error
}

func (w *sheetWriter) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) header(sheet string, widths []float64, titles ...any) {
	w.row(sheet, 1, titles...)
	if w.err != nil {
		return
	}
	w.err = w.f.SetRowStyle(sheet, 1, 1, w.bold)
	for i, width := range widths {
		if w.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = err
			return
		}
		w.err = w.f.SetColWidth(sheet, col, col, width)
	}
}

func (w *sheetWriter) summary(r *CaseReport) {
	m := r.Metrics
	w.header(SheetSummary, []float64{28, 40}, "Item", "Value")
	rows := [][]any{
		{"Reference", r.Case.ReferenceNo},
		{"Title", r.Case.Title},
		{"Status", string(r.Case.Status)},
		{"Documents", len(r.Documents)},
		{"Documents in error", m.DocumentsInError},
		{"Fields", m.TotalFields},
		{"Approved (L2) fields", m.L2Fields},
		{"Evidence coverage (%)", m.EvidenceCoveragePct},
		{"Conflict rate (%)", m.ConflictRatePct},
		{"Open checklist items", m.ChecklistOpen},
	}
	for i, row := range rows {
		w.row(SheetSummary, i+2, row...)
	}
}

func (w *sheetWriter) fields(r *CaseReport) {
	w.header(SheetFields, []float64{36, 28, 14, 24, 8, 6, 60, 10, 6, 16, 16, 32},
		"Key", "Label", "Category", "Value", "Unit", "Page", "Snippet", "Confidence",
		"Tier", "Status", "Visibility", "Source Document")

	names := make(map[uuid.UUID]string, len(r.Documents))
	for _, d := range r.Documents {
		names[d.ID] = d.OriginalFilename
	}
	for i, fl := range r.Fields {
		var unit, conf any = "", ""
		if fl.Unit != nil {
			unit = *fl.Unit
		}
		if fl.Confidence != nil {
			conf = *fl.Confidence
		}
		w.row(SheetFields, i+2,
			fl.CanonicalKey,
			constants.Label(fl.CanonicalKey),
			string(constants.CategoryOf(fl.CanonicalKey)),
			fl.Value,
			unit,
			fl.Page,
			truncate(strings.Join(strings.Fields(fl.Snippet), " "), 200),
			conf,
			string(fl.Tier),
			string(fl.Status),
			string(fl.Visibility),
			names[fl.DocumentID],
		)
	}
}

func (w *sheetWriter) validation(r *CaseReport) {
	w.header(SheetValidation, []float64{24, 10, 8, 80}, "Rule", "Severity", "Status", "Message")
	for i, res := range r.Results {
		w.row(SheetValidation, i+2, res.RuleKey, string(res.Severity), string(res.Status), res.Message)
	}
}

func (w *sheetWriter) checklist(r *CaseReport) {
	w.header(SheetChecklist, []float64{20, 10, 10, 32, 80, 18}, "Type", "Severity", "Status", "Title", "Description", "Completed")
	for i, it := range r.Checklist {
		completed := ""
		if it.CompletedAt != nil {
			completed = it.CompletedAt.UTC().Format("2006-01-02 15:04")
		}
		w.row(SheetChecklist, i+2, string(it.Type), string(it.Severity), string(it.Status), it.Title, it.Description, completed)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
