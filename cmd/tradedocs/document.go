package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [case] [file...]",
	Short: "Upload files into a case",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runUpload,
}

var ingestDirCmd = &cobra.Command{
	Use:   "ingest-dir [case] [dir]",
	Short: "Upload every supported file under a directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runIngestDir,
}

var processCmd = &cobra.Command{
	Use:   "process [doc-id]",
	Short: "Extract text and classify a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var processCaseCmd = &cobra.Command{
	Use:   "process-case [case]",
	Short: "Process every uploaded document of a case and validate it",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcessCase,
}

var extractCmd = &cobra.Command{
	Use:   "extract [doc-id]",
	Short: "Extract fields from a classified document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var retryCmd = &cobra.Command{
	Use:   "retry [doc-id]",
	Short: "Discard derived data and process a document again",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetry,
}

var (
	useMock       bool
	caseExtract   bool
	includeHidden bool
	ingestExts    []string
)

func init() {
	extractCmd.Flags().BoolVar(&useMock, "mock", false, "Use the deterministic extractor")
	processCaseCmd.Flags().BoolVar(&caseExtract, "extract", true, "Extract fields after classification")
	processCaseCmd.Flags().BoolVar(&useMock, "mock", false, "Use the deterministic extractor")
	ingestDirCmd.Flags().BoolVar(&includeHidden, "hidden", false, "Include hidden files and directories")
	ingestDirCmd.Flags().StringSliceVar(&ingestExts, "ext", nil, "File extensions to include (default pdf, jpg, jpeg, png)")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(ingestDirCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(processCaseCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(retryCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	failed := 0
	for _, path := range args[1:] {
		res, err := app.Ingest.IngestPath(ctx, c.ID, path)
		if err != nil {
			failed++
			cmd.Printf("  FAIL  %s: %v\n", filepath.Base(path), err)
			continue
		}
		label := "OK  "
		if res.Deduplicated {
			label = "DUP "
		}
		cmd.Printf("  %s  %s -> %s\n", label, filepath.Base(path), res.Document.ID)
	}
	if failed > 0 {
		return errorCount(failed, "upload")
	}
	return nil
}

func runIngestDir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	results, stats, err := app.Ingest.IngestDirectory(ctx, c.ID, args[1], ingestExts, !includeHidden)
	if err != nil {
		return err
	}
	for _, r := range results {
		switch {
		case r.Err != "":
			cmd.Printf("  FAIL  %s: %s\n", r.SourcePath, r.Err)
		case r.Deduplicated:
			cmd.Printf("  DUP   %s -> %s\n", r.SourcePath, r.Document.ID)
		default:
			cmd.Printf("  OK    %s -> %s\n", r.SourcePath, r.Document.ID)
		}
	}
	cmd.Printf("Scanned %d, matched %d, uploaded %d, duplicates %d, failed %d\n",
		stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed)
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	id, err := parseID("document", args[0])
	if err != nil {
		return err
	}
	doc, err := app.Processor.Process(cmd.Context(), id)
	if err != nil {
		return err
	}
	printDocument(cmd, doc)
	return nil
}

func runProcessCase(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	run, err := app.Processor.ProcessCase(ctx, c.ID, pipeline.CaseOptions{Extract: caseExtract, Deterministic: useMock})
	if err != nil {
		return err
	}
	for _, d := range run.Documents {
		printDocument(cmd, d)
	}
	cmd.Printf("Case %s is %s\n", c.ReferenceNo, run.Status)
	if run.Report != nil {
		cmd.Printf("Validation: %d checklist items opened, %d conflicts\n", len(run.Report.Checklist), run.Report.Conflicts)
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	id, err := parseID("document", args[0])
	if err != nil {
		return err
	}
	doc, err := app.Processor.ExtractFields(cmd.Context(), id, useMock)
	if err != nil {
		return err
	}
	printDocument(cmd, doc)
	if doc.Status == constants.DocumentExtracted {
		fields, err := app.Repos.Fields.ListByDocument(cmd.Context(), doc.ID)
		if err != nil {
			return err
		}
		cmd.Printf("Extracted %d fields\n", len(fields))
	}
	return nil
}

func runRetry(cmd *cobra.Command, args []string) error {
	id, err := parseID("document", args[0])
	if err != nil {
		return err
	}
	doc, err := app.Processor.Retry(cmd.Context(), id)
	if err != nil {
		return err
	}
	printDocument(cmd, doc)
	return nil
}
