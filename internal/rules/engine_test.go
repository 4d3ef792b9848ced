package rules_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/repository/repotest"
	"github.com/joseph-ayodele/tradedocs/internal/rules"
)

func TestEngine_Run(t *testing.T) {
	ctx := context.Background()
	repos := repotest.Open(t)
	c := repotest.CreateCase(t, repos, "PO-1001")

	inv := repotest.CreateDocument(t, repos, c, "invoice.pdf", constants.MimePDF)
	repotest.ClassifyDocument(t, repos, inv, constants.DocInvoice)
	pl := repotest.CreateDocument(t, repos, c, "packing.pdf", constants.MimePDF)
	repotest.ClassifyDocument(t, repos, pl, constants.DocPackingList)
	cert := repotest.CreateDocument(t, repos, c, "oekotex.pdf", constants.MimePDF)
	repotest.ClassifyDocument(t, repos, cert, constants.DocCertificate)

	invQty := repotest.CreateField(t, repos, inv, constants.KeyTotalQuantity, "12,000")
	plQty := repotest.CreateField(t, repos, pl, constants.KeyTotalQuantity, "11,500")
	repotest.CreateField(t, repos, cert, constants.KeyOekotexValidUntil, "14 March 2026")

	today := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	engine := rules.NewEngine(repos, slog.New(slog.DiscardHandler), rules.WithClock(func() time.Time { return today }))

	report, err := engine.Run(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, report.Results, 5)
	assert.True(t, report.Failed())
	assert.Equal(t, 2, report.Conflicts)

	assert.Equal(t, constants.ResultFail, report.Results["qty_mismatch"][0].Status)
	assert.Equal(t, constants.ResultFail, report.Results["certificate_validity"][0].Status)
	assert.Equal(t, constants.ResultFail, report.Results["missing_critical_docs"][0].Status)
	assert.Equal(t, constants.ResultWarn, report.Results["composition_sum_100"][0].Status)
	assert.Equal(t, constants.ResultFail, report.Results["conflict_detection"][0].Status)

	got, err := repos.Fields.Get(ctx, invQty.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.FieldConflict, got.Status)
	got, err = repos.Fields.Get(ctx, plQty.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.FieldConflict, got.Status)

	// missing test report + sds, quantity mismatch, expired certificate, conflict
	assert.Len(t, report.Checklist, 5)

	stored, err := repos.Results.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 5)

	// a second run supersedes results and does not duplicate open checklist items
	again, err := engine.Run(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Checklist)
	stored, err = repos.Results.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 5)
	items, err := repos.Checklist.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestEngine_CompletedItemIsRaisedAgain(t *testing.T) {
	ctx := context.Background()
	repos := repotest.Open(t)
	c := repotest.CreateCase(t, repos, "PO-2002")
	engine := rules.NewEngine(repos, slog.New(slog.DiscardHandler), rules.WithRules(rules.MissingCriticalDocs{}))

	first, err := engine.Run(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, first.Checklist, 5)

	_, err = repos.Checklist.SetStatus(ctx, first.Checklist[0].ID, constants.ChecklistDone)
	require.NoError(t, err)

	second, err := engine.Run(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, second.Checklist, 1)
	assert.Equal(t, first.Checklist[0].Title, second.Checklist[0].Title)
}

func TestEngine_EmptyCase(t *testing.T) {
	repos := repotest.Open(t)
	c := repotest.CreateCase(t, repos, "PO-3003")
	report, err := rules.NewEngine(repos, slog.New(slog.DiscardHandler)).Run(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, report.Results, 5)
	assert.Equal(t, constants.ResultWarn, report.Results["qty_mismatch"][0].Status)
	assert.Equal(t, constants.ResultPass, report.Results["conflict_detection"][0].Status)
}
