package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/classify"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/extract"
	"github.com/joseph-ayodele/tradedocs/internal/llm/provider"
)

// runllm classifies a text file with the configured provider and extracts
// its fields, repeating the run to eyeball model stability.
func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: runllm <file.txt> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	text := string(raw)

	completer := provider.New(cfg.LLM, logger)
	if completer == nil {
		logger.Error("no model provider configured", "provider", cfg.LLM.Provider)
		os.Exit(2)
	}
	model, err := classify.NewModel(completer, logger)
	if err != nil {
		logger.Error("build classifier", "error", err)
		os.Exit(1)
	}
	classifier := classify.NewComposite(classify.NewHeuristic(), model, logger)
	extractor := extract.NewModel(completer, logger)
	pages := []entity.Page{{PageNumber: 1, Text: text, CharCount: len([]rune(text)), Method: constants.MethodNative}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(times)*2*time.Minute)
	defer cancel()

	for i := 1; i <= times; i++ {
		res := classifier.Classify(ctx, filepath.Base(path), text)
		if res == nil {
			logger.Warn("classification uncertain", "run", i)
			continue
		}
		logger.Info("classified", "run", i, "doc_type", res.DocType, "confidence", res.Confidence, "method", res.Method)

		start := time.Now()
		out, err := extractor.ExtractFields(ctx, res.DocType, pages)
		if err != nil {
			logger.Error("extraction failed", "run", i, "error", err)
			continue
		}
		logger.Info("extracted", "run", i,
			"fields", len(out.Candidates),
			"input_tokens", out.Usage.InputTokens,
			"output_tokens", out.Usage.OutputTokens,
			"duration_ms", time.Since(start).Milliseconds())
		for _, c := range out.Candidates {
			logger.Info("field", "key", c.CanonicalKey, "value", c.Value, "page", c.Page, "confidence", c.Confidence)
		}
	}
}
