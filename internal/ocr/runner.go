package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs poppler and tesseract binaries. A missing binary is
// reported with its name so a misconfigured PDFTOTEXT_BIN is obvious.
type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	attrs := []any{
		"cmd", name,
		"args", strings.Join(args, " "),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	switch {
	case err == nil:
		r.logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", out.Len())...)
	case errors.Is(err, exec.ErrNotFound):
		r.logger.Error("ocr.exec.missing_binary", attrs...)
		err = fmt.Errorf("%s not found in PATH: %w", name, err)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			attrs = append(attrs, "exit_code", exitErr.ExitCode())
		}
		r.logger.Warn("ocr.exec.failed", append(attrs, "error", err, "stderr", truncate(errb.String(), 8<<10))...)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
