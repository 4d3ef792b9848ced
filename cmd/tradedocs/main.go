// Command tradedocs is the operator CLI over cases, documents, review and
// reporting.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/server"
)

// app is built once per invocation by the root command. Tests preset it.
var app *server.App

// actor is recorded on review actions.
var actor string

var rootCmd = &cobra.Command{
	Use:               "tradedocs",
	Short:             "Trade compliance document pipeline",
	Long:              `Ingest supplier documents into cases, extract evidence-backed fields and validate them.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actor, "actor", envOr("USER", "cli"), "Name recorded on review actions")
}

func main() {
	err := rootCmd.Execute()
	if app != nil {
		app.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	ctx := common.WithActor(cmd.Context(), actor)
	cmd.SetContext(ctx)
	if app != nil {
		return nil
	}
	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := common.NewLogger(os.Stderr, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	a, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	app = a
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// resolveCase accepts a case id or its reference number.
func resolveCase(ctx context.Context, arg string) (*entity.Case, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return app.Repos.Cases.Get(ctx, id)
	}
	return app.Repos.Cases.GetByReference(ctx, strings.TrimSpace(arg))
}

func parseID(kind, arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, common.InvalidInputf("invalid %s id %q", kind, arg)
	}
	return id, nil
}

func deref[T any](p *T) any {
	if p == nil {
		return "-"
	}
	return *p
}

func printDocument(cmd *cobra.Command, d *entity.Document) {
	cmd.Printf("  %s  %-28s %-15s", d.ID, truncate(d.OriginalFilename, 28), d.Status)
	if d.HasDocType() {
		cmd.Printf(" %s", *d.DocType)
		if d.ClassificationConfidence != nil {
			cmd.Printf(" (%.2f %s)", *d.ClassificationConfidence, deref(d.ClassificationMethod))
		}
	}
	if d.ErrorCode != nil {
		cmd.Printf(" [%s] %s", *d.ErrorCode, deref(d.ErrorMessage))
	}
	cmd.Println()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func errorCount(n int, op string) error {
	return fmt.Errorf("%d %s(s) failed", n, op)
}
