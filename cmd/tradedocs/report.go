package main

import (
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/internal/storage"
)

var validateCmd = &cobra.Command{
	Use:   "validate [case]",
	Short: "Run the validation rules of a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var fieldsCmd = &cobra.Command{
	Use:   "fields [case]",
	Short: "List extracted fields of a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runFields,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics [case]",
	Short: "Show case metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetrics,
}

var exportCmd = &cobra.Command{
	Use:   "export [case]",
	Short: "Write the case report as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default <reference>.xlsx)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(exportCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	report, err := app.Rules.Run(ctx, c.ID)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(report.Results))
	for k := range report.Results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, r := range report.Results[k] {
			cmd.Printf("  %-4s %-6s %-22s %s\n", r.Status, r.Severity, r.RuleKey, r.Message)
		}
	}
	cmd.Printf("Conflicts: %d, checklist items opened: %d\n", report.Conflicts, len(report.Checklist))
	if report.Failed() {
		cmd.Println("Result: FAIL")
	} else {
		cmd.Println("Result: PASS")
	}
	return nil
}

func runFields(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	fields, err := app.Repos.Fields.ListByCase(ctx, c.ID)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		cmd.Printf("No fields for case %s\n", c.ReferenceNo)
		return nil
	}
	for _, f := range fields {
		printField(cmd, f)
	}
	cmd.Printf("Total: %d fields\n", len(fields))
	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	m, err := app.Metrics.Case(ctx, c.ID)
	if err != nil {
		return err
	}
	cmd.Printf("Metrics for %s\n\n", c.ReferenceNo)
	cmd.Printf("  Evidence coverage:  %.1f%% (%d/%d required fields)\n", m.EvidenceCoveragePct, m.RequiredFieldsPresent, m.RequiredFieldsTotal)
	cmd.Printf("  Conflict rate:      %.1f%%\n", m.ConflictRatePct)
	cmd.Printf("  Fields:             %d (L1 %d, L2 %d, buyer visible %d)\n", m.TotalFields, m.L1Fields, m.L2Fields, m.BuyerVisibleFields)
	cmd.Printf("  Checklist:          %d open, %d done\n", m.ChecklistOpen, m.ChecklistDone)
	cmd.Printf("  Documents:          %d (%d in error)\n", m.Documents, m.DocumentsInError)
	if m.DaysSinceFirstUpload != nil {
		cmd.Printf("  Days since upload:  %.1f\n", *m.DaysSinceFirstUpload)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	data, err := app.Export.ExportCaseXLSX(ctx, c.ID)
	if err != nil {
		return err
	}
	out := exportOut
	if out == "" {
		out = storage.SanitizeFilename(c.ReferenceNo) + ".xlsx"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	cmd.Printf("Wrote %s (%d bytes)\n", out, len(data))
	return nil
}
