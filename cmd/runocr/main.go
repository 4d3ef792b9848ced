package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/magic"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
	"github.com/joseph-ayodele/tradedocs/internal/server"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file.pdf|file.jpg|file.png>")
		os.Exit(2)
	}
	path := os.Args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	mime := constants.MimeForExt(filepath.Ext(path))
	if mime == "" {
		mime = magic.Sniff(data)
	}
	if !magic.Matches(data, mime) {
		logger.Error("file content does not match its type", "path", path, "mime", mime)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	extractor := ocr.NewExtractor(server.OCRConfig(cfg.OCR), logger)

	start := time.Now()
	pages, err := extractor.Extract(ctx, data, mime)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed",
			"code", ocr.CodeOf(err), "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK", "pages", len(pages), "duration_ms", dur.Milliseconds())
	for _, p := range pages {
		preview := p.Text
		if r := []rune(preview); len(r) > 200 {
			preview = string(r[:200]) + "..."
		}
		logger.Info("page",
			"page", p.PageNumber, "method", p.Method, "chars", p.CharCount, "preview", preview)
	}
}
