package ocr

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
)

func (e *Extractor) extractImage(ctx context.Context, path string) ([]entity.PageText, error) {
	txt, err := e.tesseractOCR(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newExtractError(constants.ErrExtractionTimeout, ctx.Err())
		}
		return nil, newExtractError(constants.ErrOCRFailed, err)
	}
	if txt == "" {
		return nil, newExtractError(constants.ErrLowQualityImage, nil)
	}
	return []entity.PageText{pageText(1, txt, constants.MethodTesseract)}, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 200))
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return Normalize(txt), nil
}
