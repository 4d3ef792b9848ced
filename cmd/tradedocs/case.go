package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage cases",
}

var caseCreateCmd = &cobra.Command{
	Use:   "create [reference]",
	Short: "Create a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaseCreate,
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cases",
	Args:  cobra.NoArgs,
	RunE:  runCaseList,
}

var caseShowCmd = &cobra.Command{
	Use:   "show [case]",
	Short: "Show a case and its documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaseShow,
}

var (
	caseTitle        string
	caseProductGroup string
	caseNotes        string
)

func init() {
	caseCreateCmd.Flags().StringVar(&caseTitle, "title", "", "Case title")
	caseCreateCmd.Flags().StringVar(&caseProductGroup, "product-group", "textiles", "Product group")
	caseCreateCmd.Flags().StringVar(&caseNotes, "notes", "", "Free-form notes")

	caseCmd.AddCommand(caseCreateCmd)
	caseCmd.AddCommand(caseListCmd)
	caseCmd.AddCommand(caseShowCmd)
	rootCmd.AddCommand(caseCmd)
}

func runCaseCreate(cmd *cobra.Command, args []string) error {
	c := &entity.Case{
		ReferenceNo:  args[0],
		Title:        caseTitle,
		ProductGroup: caseProductGroup,
		Notes:        caseNotes,
	}
	if err := app.Repos.Cases.Create(cmd.Context(), c); err != nil {
		return err
	}
	cmd.Printf("Created case %s (%s)\n", c.ReferenceNo, c.ID)
	return nil
}

func runCaseList(cmd *cobra.Command, _ []string) error {
	cases, err := app.Repos.Cases.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		cmd.Println("No cases found")
		return nil
	}
	for _, c := range cases {
		cmd.Printf("  %s  %-20s %-10s %s\n", c.ID, c.ReferenceNo, c.Status, c.Title)
	}
	cmd.Printf("Total: %d cases\n", len(cases))
	return nil
}

func runCaseShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	docs, err := app.Repos.Documents.ListByCase(ctx, c.ID)
	if err != nil {
		return err
	}

	cmd.Printf("Case: %s\n\n", c.ReferenceNo)
	cmd.Printf("  ID:       %s\n", c.ID)
	if c.Title != "" {
		cmd.Printf("  Title:    %s\n", c.Title)
	}
	cmd.Printf("  Product:  %s\n", c.ProductGroup)
	cmd.Printf("  Status:   %s (derived: %s)\n", c.Status, pipeline.CaseStatusOf(docs))
	cmd.Printf("  Created:  %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	if c.Notes != "" {
		cmd.Printf("  Notes:    %s\n", c.Notes)
	}

	cmd.Printf("\nDocuments (%d):\n", len(docs))
	for _, d := range docs {
		printDocument(cmd, d)
	}
	return nil
}
