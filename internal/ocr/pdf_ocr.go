package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

func (e *Extractor) extractPDF(ctx context.Context, path, workDir string) ([]entity.PageText, error) {
	native, err := e.pdfToText(ctx, path)
	if err != nil {
		return nil, err
	}
	if e.cfg.MaxPages > 0 && len(native) > e.cfg.MaxPages {
		native = native[:e.cfg.MaxPages]
	}
	if len(native) == 0 {
		return nil, &ExtractError{Code: constants.ErrOCRFailed, Message: "PDF contains no pages."}
	}

	pages := make([]entity.PageText, 0, len(native))
	for i, raw := range native {
		n := i + 1
		text := Normalize(raw)
		if utf8.RuneCountInString(text) >= e.cfg.MinTextChars {
			pages = append(pages, pageText(n, text, constants.MethodNative))
			continue
		}

		ocrText, err := e.ocrPDFPage(ctx, path, workDir, n)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			e.logger.Warn("ocr.page.fallback_failed", "page", n, "error", err)
		}
		if ocrText != "" && utf8.RuneCountInString(ocrText) > utf8.RuneCountInString(text) {
			pages = append(pages, pageText(n, ocrText, constants.MethodTesseract))
		} else {
			pages = append(pages, pageText(n, text, constants.MethodNative))
		}
	}
	return pages, nil
}

// pdfToText returns the native text of every page. pdftotext separates pages
// with a form feed and terminates the last one with it too.
func (e *Extractor) pdfToText(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, newExtractError(constants.ErrExtractionTimeout, ctx.Err())
		}
		if isEncrypted(string(errb)) {
			return nil, newExtractError(constants.ErrEncryptedPDF, err)
		}
		return nil, &ExtractError{
			Code:    constants.ErrUnsupportedFile,
			Message: "Cannot open PDF: " + strings.TrimSpace(truncate(string(errb), 200)),
			Err:     err,
		}
	}
	text := strings.TrimSuffix(string(out), "\f")
	if strings.TrimSpace(text) == "" && !strings.Contains(string(out), "\f") {
		return nil, nil
	}
	return strings.Split(text, "\f"), nil
}

// isEncrypted matches the messages poppler prints for password protected
// or copy restricted documents. File system errors such as "Permission
// denied" are not encryption.
func isEncrypted(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "incorrect password") ||
		strings.Contains(s, "copying of text from this document is not allowed")
}

// ocrPDFPage renders one page and runs tesseract over it.
func (e *Extractor) ocrPDFPage(ctx context.Context, path, workDir string, page int) (string, error) {
	prefix := filepath.Join(workDir, fmt.Sprintf("page%d", page))
	n := strconv.Itoa(page)
	// pdftoppm -f N -l N -r 300 -png <in.pdf> <prefix>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-f", n, "-l", n, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 200))
	}

	// pdftoppm zero pads the page suffix based on the document's page count.
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no image for page %d", page)
	}
	return e.tesseractOCR(ctx, matches[0])
}
