// Package ocr turns document bytes into per-page text using poppler and tesseract.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

// DefaultMinTextChars is the native text length below which a PDF page is OCR'd.
const DefaultMinTextChars = 50

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for sparse PDF pages, default 300
	MinTextChars  int // default 50
	MaxPages      int // 0 = no limit
}

// ExtractError is a document scoped extraction failure.
type ExtractError struct {
	Code    constants.ErrorCode
	Message string
	Err     error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractError) Unwrap() error { return e.Err }

func newExtractError(code constants.ErrorCode, err error) *ExtractError {
	return &ExtractError{Code: code, Message: code.Message(), Err: err}
}

// CodeOf returns the error code carried by err, or ocr_failed for anything else.
func CodeOf(err error) constants.ErrorCode {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return constants.ErrExtractionTimeout
	}
	return constants.ErrOCRFailed
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return NewExtractorWithRunner(cfg, execRunner{logger: logger}, logger)
}

// NewExtractorWithRunner builds an extractor that shells out through runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = DefaultMinTextChars
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract returns the ordered page texts of data, picking a strategy from mime.
// Failures are *ExtractError values carrying a document error code.
func (e *Extractor) Extract(ctx context.Context, data []byte, mime string) ([]entity.PageText, error) {
	start := time.Now()
	var ext string
	switch {
	case mime == constants.MimePDF:
		ext = ".pdf"
	case constants.IsImageMime(mime):
		ext = ".img"
	default:
		e.logger.Warn("ocr.unsupported", "mime", mime)
		return nil, newExtractError(constants.ErrUnsupportedFile, fmt.Errorf("unsupported mime type %q", mime))
	}

	tmpDir, err := os.MkdirTemp("", "tradedocs-ocr-*")
	if err != nil {
		return nil, newExtractError(constants.ErrOCRFailed, err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.cleanup.failed", "dir", tmpDir, "error", err)
		}
	}()
	path := filepath.Join(tmpDir, "input"+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, newExtractError(constants.ErrOCRFailed, err)
	}

	var pages []entity.PageText
	if ext == ".pdf" {
		pages, err = e.extractPDF(ctx, path, tmpDir)
	} else {
		pages, err = e.extractImage(ctx, path)
	}
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = newExtractError(constants.ErrExtractionTimeout, ctx.Err())
		}
		e.logger.Warn("ocr.failed", "mime", mime, "code", CodeOf(err), "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, err
	}
	e.logger.Debug("ocr.ok", "mime", mime, "pages", len(pages), "duration_ms", time.Since(start).Milliseconds())
	return pages, nil
}

func pageText(n int, text string, method constants.ExtractionMethod) entity.PageText {
	return entity.PageText{
		PageNumber: n,
		Text:       text,
		CharCount:  utf8.RuneCountInString(text),
		Method:     method,
	}
}
