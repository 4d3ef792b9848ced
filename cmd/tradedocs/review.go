package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review extracted fields",
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve [field-id]",
	Short: "Approve a field and make it buyer visible",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewApprove,
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject [field-id]",
	Short: "Reject a field and open a checklist item",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewReject,
}

var reviewUpdateCmd = &cobra.Command{
	Use:   "update [field-id]",
	Short: "Edit a field's value, unit, evidence or status",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewUpdate,
}

var reviewAddCmd = &cobra.Command{
	Use:   "add [doc-id] [canonical-key] [value]",
	Short: "Record a field read from the document by hand",
	Args:  cobra.ExactArgs(3),
	RunE:  runReviewAdd,
}

var reviewSetTypeCmd = &cobra.Command{
	Use:   "set-type [doc-id] [doc-type]",
	Short: "Override a document's type",
	Args:  cobra.ExactArgs(2),
	RunE:  runReviewSetType,
}

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Manage remediation checklist items",
}

var checklistListCmd = &cobra.Command{
	Use:   "list [case]",
	Short: "List checklist items of a case",
	Args:  cobra.ExactArgs(1),
	RunE:  runChecklistList,
}

var checklistSetCmd = &cobra.Command{
	Use:   "set [item-id] [open|done|reopened]",
	Short: "Change a checklist item's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runChecklistSet,
}

var (
	rejectReason  string
	updateValue   string
	updateUnit    string
	updatePage    int
	updateSnippet string
	updateStatus  string
	addUnit       string
	addPage       int
	addSnippet    string
)

func init() {
	reviewRejectCmd.Flags().StringVarP(&rejectReason, "reason", "r", "", "Why the value was rejected")

	reviewUpdateCmd.Flags().StringVar(&updateValue, "value", "", "New value (requires --snippet)")
	reviewUpdateCmd.Flags().StringVar(&updateUnit, "unit", "", "New unit; empty clears it")
	reviewUpdateCmd.Flags().IntVar(&updatePage, "page", 0, "Evidence page")
	reviewUpdateCmd.Flags().StringVar(&updateSnippet, "snippet", "", "Evidence snippet")
	reviewUpdateCmd.Flags().StringVar(&updateStatus, "status", "", "pending_review|approved|conflict|rejected")

	reviewAddCmd.Flags().StringVar(&addUnit, "unit", "", "Unit")
	reviewAddCmd.Flags().IntVar(&addPage, "page", 1, "Evidence page")
	reviewAddCmd.Flags().StringVar(&addSnippet, "snippet", "", "Evidence snippet")
	_ = reviewAddCmd.MarkFlagRequired("snippet")

	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
	reviewCmd.AddCommand(reviewUpdateCmd)
	reviewCmd.AddCommand(reviewAddCmd)
	reviewCmd.AddCommand(reviewSetTypeCmd)
	rootCmd.AddCommand(reviewCmd)

	checklistCmd.AddCommand(checklistListCmd)
	checklistCmd.AddCommand(checklistSetCmd)
	rootCmd.AddCommand(checklistCmd)
}

func runReviewApprove(cmd *cobra.Command, args []string) error {
	id, err := parseID("field", args[0])
	if err != nil {
		return err
	}
	f, err := app.Review.Approve(cmd.Context(), id)
	if err != nil {
		return err
	}
	printField(cmd, f)
	return nil
}

func runReviewReject(cmd *cobra.Command, args []string) error {
	id, err := parseID("field", args[0])
	if err != nil {
		return err
	}
	f, item, err := app.Review.Reject(cmd.Context(), review.RejectRequest{FieldID: id, Reason: rejectReason})
	if err != nil {
		return err
	}
	printField(cmd, f)
	cmd.Printf("Opened checklist item %s: %s\n", item.ID, item.Title)
	return nil
}

func runReviewUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID("field", args[0])
	if err != nil {
		return err
	}
	req := review.UpdateRequest{FieldID: id}
	flags := cmd.Flags()
	if flags.Changed("value") {
		req.Value = &updateValue
	}
	if flags.Changed("unit") {
		req.Unit = &updateUnit
	}
	if flags.Changed("page") {
		req.Page = &updatePage
	}
	if flags.Changed("snippet") {
		req.Snippet = &updateSnippet
	}
	if flags.Changed("status") {
		st := constants.FieldStatus(updateStatus)
		req.Status = &st
	}
	f, err := app.Review.Update(cmd.Context(), req)
	if err != nil {
		return err
	}
	printField(cmd, f)
	return nil
}

func runReviewAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID("document", args[0])
	if err != nil {
		return err
	}
	f, err := app.Review.AddManualField(cmd.Context(), review.ManualFieldRequest{
		DocumentID:   id,
		CanonicalKey: args[1],
		Value:        args[2],
		Unit:         addUnit,
		Page:         addPage,
		Snippet:      addSnippet,
	})
	if err != nil {
		return err
	}
	printField(cmd, f)
	return nil
}

func runReviewSetType(cmd *cobra.Command, args []string) error {
	id, err := parseID("document", args[0])
	if err != nil {
		return err
	}
	doc, err := app.Review.SetDocType(cmd.Context(), id, args[1])
	if err != nil {
		return err
	}
	printDocument(cmd, doc)
	return nil
}

func runChecklistList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := resolveCase(ctx, args[0])
	if err != nil {
		return err
	}
	items, err := app.Repos.Checklist.ListByCase(ctx, c.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		cmd.Printf("No checklist items for case %s\n", c.ReferenceNo)
		return nil
	}
	for _, it := range items {
		cmd.Printf("  %s  %-8s %-6s %-18s %s\n", it.ID, it.Status, it.Severity, it.Type, it.Title)
	}
	cmd.Printf("Total: %d items\n", len(items))
	return nil
}

func runChecklistSet(cmd *cobra.Command, args []string) error {
	id, err := parseID("checklist item", args[0])
	if err != nil {
		return err
	}
	it, err := app.Review.SetChecklistStatus(cmd.Context(), id, args[1])
	if err != nil {
		return err
	}
	cmd.Printf("Checklist item %s is %s\n", it.ID, it.Status)
	return nil
}

func printField(cmd *cobra.Command, f *entity.ExtractedField) {
	cmd.Printf("  %s  %-24s %q", f.ID, f.CanonicalKey, f.Value)
	if f.Unit != nil {
		cmd.Printf(" %s", *f.Unit)
	}
	cmd.Printf("  %s/%s/%s  p.%d %q\n", f.Status, f.Tier, f.Visibility, f.Page, truncate(f.Snippet, 60))
}
