package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
	"github.com/joseph-ayodele/tradedocs/internal/repository/repotest"
)

func TestMigrate_Idempotent(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()

	require.NoError(t, repos.Client.Migrate(ctx))
	v, err := repos.Client.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestCaseRepository(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()

	c := repotest.CreateCase(t, repos, "PO-1001")
	assert.Equal(t, constants.CaseDraft, c.Status)
	assert.Equal(t, "textiles", c.ProductGroup)

	got, err := repos.Cases.GetByReference(ctx, "PO-1001")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Test case PO-1001", got.Title)

	err = repos.Cases.Create(ctx, &entity.Case{ReferenceNo: "PO-1001"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConflict))

	require.NoError(t, repos.Cases.SetStatus(ctx, c.ID, constants.CaseBlocked))
	got, err = repos.Cases.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.CaseBlocked, got.Status)

	_, err = repos.Cases.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, common.ErrNotFound))

	all, err := repos.Cases.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDocumentRepository_Lifecycle(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()
	c := repotest.CreateCase(t, repos, "PO-2")
	d := repotest.CreateDocument(t, repos, c, "invoice.pdf", constants.MimePDF)

	require.NoError(t, repos.Documents.MarkError(ctx, d.ID, constants.ErrOCRFailed, constants.ErrOCRFailed.Message()))
	got, err := repos.Documents.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentError, got.Status)
	require.NotNil(t, got.ErrorCode)
	assert.Equal(t, constants.ErrOCRFailed, *got.ErrorCode)

	require.NoError(t, repos.Documents.SetProcessing(ctx, d.ID))
	require.NoError(t, repos.Documents.MarkTextExtracted(ctx, d.ID, 3))
	dt := constants.DocInvoice
	method := constants.ClassifiedHeuristic
	conf := 0.85
	require.NoError(t, repos.Documents.MarkClassified(ctx, d.ID, repository.Classification{DocType: &dt, Method: &method, Confidence: &conf}))

	got, err = repos.Documents.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentClassified, got.Status)
	assert.Nil(t, got.ErrorCode)
	assert.Nil(t, got.ErrorMessage)
	require.NotNil(t, got.PageCount)
	assert.Equal(t, 3, *got.PageCount)
	assert.Equal(t, constants.DocInvoice, got.TypeOrEmpty())
	assert.InDelta(t, 0.85, *got.ClassificationConfidence, 1e-9)

	require.NoError(t, repos.Documents.ResetDerived(ctx, d.ID))
	got, err = repos.Documents.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentUploaded, got.Status)
	assert.Nil(t, got.DocType)
	assert.Nil(t, got.ClassificationMethod)
	assert.Nil(t, got.PageCount)

	byHash, err := repos.Documents.FindByHash(ctx, c.ID, d.SHA256)
	require.NoError(t, err)
	assert.Equal(t, d.ID, byHash.ID)

	_, err = repos.Documents.FindByHash(ctx, c.ID, "nope")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.True(t, errors.Is(repos.Documents.SetStatus(ctx, uuid.New(), constants.DocumentProcessing), common.ErrNotFound))
}

func TestPageRepository_ReplaceIsIdempotent(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()
	c := repotest.CreateCase(t, repos, "PO-3")
	d := repotest.CreateDocument(t, repos, c, "pl.pdf", constants.MimePDF)

	pages := []entity.PageText{
		{PageNumber: 1, Text: "packing list", CharCount: 12, Method: constants.MethodNative},
		{PageNumber: 2, Text: "cartons", CharCount: 7, Method: constants.MethodTesseract},
	}
	_, err := repos.Pages.Replace(ctx, d.ID, pages)
	require.NoError(t, err)
	_, err = repos.Pages.Replace(ctx, d.ID, pages)
	require.NoError(t, err)

	got, err := repos.Pages.ListByDocument(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].PageNumber)
	assert.Equal(t, constants.MethodTesseract, got[1].Method)
}

func TestFieldRepository_EvidenceRequired(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()
	c := repotest.CreateCase(t, repos, "PO-4")
	d := repotest.CreateDocument(t, repos, c, "inv.pdf", constants.MimePDF)

	err := repos.Fields.Create(ctx, &entity.ExtractedField{
		DocumentID:   d.ID,
		CaseID:       c.ID,
		CanonicalKey: constants.KeyInvoiceNumber,
		Value:        "INV-1",
		Page:         1,
		Snippet:      "Invoice No: INV-1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	f := repotest.CreateField(t, repos, d, constants.KeyInvoiceNumber, "INV-1")
	got, err := repos.Fields.Get(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, got.Anchors, 1)
	assert.Equal(t, entity.SnippetHash(got.Snippet), got.Anchors[0].SnippetHash)
	assert.Equal(t, constants.TierL1, got.Tier)
	assert.Equal(t, constants.FieldPendingReview, got.Status)
	assert.Equal(t, constants.SupplierOnly, got.Visibility)
}

func TestFieldRepository_StatusAndDelete(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()
	c := repotest.CreateCase(t, repos, "PO-5")
	inv := repotest.CreateDocument(t, repos, c, "inv.pdf", constants.MimePDF)
	pl := repotest.CreateDocument(t, repos, c, "pl.pdf", constants.MimePDF)

	a := repotest.CreateField(t, repos, inv, constants.KeyTotalQuantity, "12,000")
	b := repotest.CreateField(t, repos, pl, constants.KeyTotalQuantity, "11,500")
	require.NoError(t, repos.Fields.SetStatus(ctx, []uuid.UUID{a.ID, b.ID}, constants.FieldConflict))

	fields, err := repos.Fields.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	for _, f := range fields {
		assert.Equal(t, constants.FieldConflict, f.Status)
		assert.True(t, f.HasEvidence())
	}

	n, err := repos.Fields.DeleteByDocument(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	fields, err = repos.Fields.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, b.ID, fields[0].ID)
}

func TestFieldRepository_UpdateAnchorRehashes(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()
	c := repotest.CreateCase(t, repos, "PO-6")
	d := repotest.CreateDocument(t, repos, c, "cert.pdf", constants.MimePDF)
	f := repotest.CreateField(t, repos, d, constants.KeyOekotexValidUntil, "2026-03-14")

	anchor := f.Anchors[0]
	anchor.SnippetText = "Valid until 14 March 2026"
	anchor.PageNo = 2
	anchor.BBox = &entity.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}
	require.NoError(t, repos.Fields.UpdateAnchor(ctx, &anchor))

	got, err := repos.Fields.Get(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, got.Anchors, 1)
	assert.Equal(t, 2, got.Anchors[0].PageNo)
	assert.Equal(t, entity.SnippetHash("Valid until 14 March 2026"), got.Anchors[0].SnippetHash)
	require.NotNil(t, got.Anchors[0].BBox)
	assert.Equal(t, 3.0, got.Anchors[0].BBox.Width)
}

func TestValidationResultRepository_Supersedes(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()
	c := repotest.CreateCase(t, repos, "PO-7")
	fid := uuid.New()

	first := []*entity.ValidationResult{
		{RuleKey: "qty_mismatch", Severity: constants.SeverityHigh, Status: constants.ResultFail, Message: "x", RelatedFieldIDs: []uuid.UUID{fid}},
		{RuleKey: "conflict_detection", Severity: constants.SeverityMedium, Status: constants.ResultPass, Message: "y"},
	}
	require.NoError(t, repos.Results.ReplaceForCase(ctx, c.ID, first))
	second := []*entity.ValidationResult{
		{RuleKey: "qty_mismatch", Severity: constants.SeverityHigh, Status: constants.ResultPass, Message: "ok"},
	}
	require.NoError(t, repos.Results.ReplaceForCase(ctx, c.ID, second))

	got, err := repos.Results.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, constants.ResultPass, got[0].Status)
	assert.Empty(t, got[0].RelatedFieldIDs)
}

func TestChecklistRepository_CompletedAt(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()
	c := repotest.CreateCase(t, repos, "PO-8")

	item := &entity.ChecklistItem{
		CaseID:      c.ID,
		Type:        constants.ChecklistMissingDocument,
		Severity:    constants.SeverityHigh,
		Title:       "Missing: Invoice",
		Description: "Upload the commercial invoice.",
	}
	require.NoError(t, repos.Checklist.Create(ctx, item))
	assert.Equal(t, constants.ChecklistOpen, item.Status)

	done, err := repos.Checklist.SetStatus(ctx, item.ID, constants.ChecklistDone)
	require.NoError(t, err)
	assert.Equal(t, constants.ChecklistDone, done.Status)
	assert.NotNil(t, done.CompletedAt)

	reopened, err := repos.Checklist.SetStatus(ctx, item.ID, constants.ChecklistReopened)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	items, err := repos.Checklist.ListByCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestWithTx_RollsBack(t *testing.T) {
	repos := repotest.Open(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repos.Client.WithTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Cases.Create(ctx, &entity.Case{ReferenceNo: "TX-1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repos.Cases.GetByReference(ctx, "TX-1")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
