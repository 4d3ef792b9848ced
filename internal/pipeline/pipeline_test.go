package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/classify"
	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/extract"
	"github.com/joseph-ayodele/tradedocs/internal/ocr"
	"github.com/joseph-ayodele/tradedocs/internal/pipeline"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
	"github.com/joseph-ayodele/tradedocs/internal/repository/repotest"
	"github.com/joseph-ayodele/tradedocs/internal/rules"
)

var quiet = slog.New(slog.DiscardHandler)

type memStore struct {
	mu   sync.Mutex
	objs map[string][]byte
}

func newMemStore() *memStore { return &memStore{objs: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objs[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objs[key]
	if !ok {
		return nil, common.NotFoundf("object %s", key)
	}
	return data, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objs, key)
	return nil
}

// fakeText returns the page texts registered for the document bytes.
type fakeText struct {
	mu    sync.Mutex
	pages map[string][]string
	errs  []error // consumed one per call before pages are served
	calls int
}

func (f *fakeText) Extract(_ context.Context, data []byte, _ string) ([]entity.PageText, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	texts, ok := f.pages[string(data)]
	if !ok {
		return nil, &ocr.ExtractError{Code: constants.ErrOCRFailed, Message: "no text"}
	}
	out := make([]entity.PageText, len(texts))
	for i, t := range texts {
		out[i] = entity.PageText{PageNumber: i + 1, Text: t, CharCount: len(t), Method: constants.MethodNative}
	}
	return out, nil
}

type harness struct {
	repos *repository.Repositories
	store *memStore
	text  *fakeText
	proc  *pipeline.Processor
	c     *entity.Case
}

func newHarness(t *testing.T, model extract.FieldExtractor) *harness {
	t.Helper()
	repos := repotest.Open(t)
	store := newMemStore()
	text := &fakeText{pages: map[string][]string{}}
	mock, err := extract.NewMock(quiet)
	require.NoError(t, err)

	proc := pipeline.NewProcessor(quiet, pipeline.Config{CaseParallelism: 2}, repos,
		pipeline.NewTextStage(repos, store, text, quiet),
		pipeline.NewClassifyStage(repos, classify.NewHeuristic(), quiet),
		pipeline.NewFieldStage(repos, model, mock, quiet),
		rules.NewEngine(repos, quiet, rules.WithClock(func() time.Time { return time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC) })),
	)
	return &harness{repos: repos, store: store, text: text, proc: proc, c: repotest.CreateCase(t, repos, "PO-"+uuid.NewString()[:8])}
}

// upload stores content for a new document and registers its page texts.
func (h *harness) upload(t *testing.T, filename, mime string, content []byte, pages ...string) *entity.Document {
	t.Helper()
	d := repotest.CreateDocument(t, h.repos, h.c, filename, mime)
	require.NoError(t, h.store.Put(context.Background(), d.StoragePath, content))
	if pages != nil {
		h.text.pages[string(content)] = pages
	}
	return d
}

func pdf(body string) []byte { return []byte("%PDF-1.7\n" + body) }

const invoiceText = "COMMERCIAL INVOICE\nInvoice No.: INV-2024-0815   Date: 15 August 2024\nTotal: 12,000 pcs\nOrigin: Turkey"

func TestProcess_MagicMismatch(t *testing.T) {
	h := newHarness(t, nil)
	d := h.upload(t, "invoice.pdf", constants.MimePDF, []byte("PK\x03\x04 not a pdf"), "whatever")

	out, err := h.proc.Process(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentError, out.Status)
	require.NotNil(t, out.ErrorCode)
	assert.Equal(t, constants.ErrUnsupportedFile, *out.ErrorCode)
	assert.Equal(t, constants.ErrUnsupportedFile.Message(), *out.ErrorMessage)
	assert.Zero(t, h.text.calls, "text extraction must not start")

	pages, err := h.repos.Pages.ListByDocument(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestProcess_MissingBytes(t *testing.T) {
	h := newHarness(t, nil)
	d := repotest.CreateDocument(t, h.repos, h.c, "lost.pdf", constants.MimePDF)

	out, err := h.proc.Process(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentError, out.Status)
	assert.Equal(t, constants.ErrUnsupportedFile, *out.ErrorCode)
}

func TestProcess_ClassifiesAndStoresPages(t *testing.T) {
	h := newHarness(t, nil)
	d := h.upload(t, "scan.pdf", constants.MimePDF, pdf("inv"), invoiceText, "page two")

	out, err := h.proc.Process(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentClassified, out.Status)
	require.NotNil(t, out.DocType)
	assert.Equal(t, constants.DocInvoice, *out.DocType)
	assert.Equal(t, constants.ClassifiedHeuristic, *out.ClassificationMethod)
	require.NotNil(t, out.PageCount)
	assert.Equal(t, 2, *out.PageCount)
	assert.Nil(t, out.ErrorCode)

	pages, err := h.repos.Pages.ListByDocument(context.Background(), d.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, invoiceText, pages[0].Text)

	_, err = h.proc.Process(context.Background(), d.ID)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestProcess_UncertainClassificationStillAdvances(t *testing.T) {
	h := newHarness(t, nil)
	d := h.upload(t, "scan_0001.pdf", constants.MimePDF, pdf("x"), "lorem ipsum dolor")

	out, err := h.proc.Process(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentClassified, out.Status)
	assert.Nil(t, out.DocType)

	_, err = h.proc.ExtractFields(context.Background(), d.ID, true)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestProcess_ExtractionErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want constants.ErrorCode
	}{
		{"encrypted", &ocr.ExtractError{Code: constants.ErrEncryptedPDF, Message: constants.ErrEncryptedPDF.Message()}, constants.ErrEncryptedPDF},
		{"timeout", fmt.Errorf("pdftotext: %w", context.DeadlineExceeded), constants.ErrExtractionTimeout},
		{"other", errors.New("exit status 1"), constants.ErrOCRFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			d := h.upload(t, "invoice.pdf", constants.MimePDF, pdf(tt.name), invoiceText)
			h.text.errs = []error{tt.err}

			out, err := h.proc.Process(context.Background(), d.ID)
			require.NoError(t, err)
			assert.Equal(t, constants.DocumentError, out.Status)
			assert.Equal(t, tt.want, *out.ErrorCode)
		})
	}
}

func TestExtractFields_Deterministic(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	d := h.upload(t, "01_commercial_invoice.pdf", constants.MimePDF, pdf("inv"), invoiceText)

	_, err := h.proc.Process(ctx, d.ID)
	require.NoError(t, err)
	out, err := h.proc.ExtractFields(ctx, d.ID, true)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentExtracted, out.Status)

	fields, err := h.repos.Fields.ListByDocument(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, fields, 8)
	for _, f := range fields {
		assert.True(t, f.HasEvidence(), f.CanonicalKey)
		require.Len(t, f.Anchors, 1)
		assert.Equal(t, entity.SnippetHash(f.Anchors[0].SnippetText), f.Anchors[0].SnippetHash)
		assert.Equal(t, constants.SourceMock, f.CreatedFrom)
		assert.Equal(t, constants.TierL1, f.Tier)
		assert.Equal(t, constants.SupplierOnly, f.Visibility)
	}

	// re-extraction replaces instead of appending
	_, err = h.proc.ExtractFields(ctx, d.ID, true)
	require.NoError(t, err)
	fields, err = h.repos.Fields.ListByDocument(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, fields, 8)
}

func TestExtractFields_NoModel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	d := h.upload(t, "invoice.pdf", constants.MimePDF, pdf("inv"), invoiceText)
	_, err := h.proc.Process(ctx, d.ID)
	require.NoError(t, err)

	out, err := h.proc.ExtractFields(ctx, d.ID, false)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentError, out.Status)
	assert.Equal(t, constants.ErrExtractionFailed, *out.ErrorCode)
	assert.Contains(t, *out.ErrorMessage, "AI extraction not available")
}

func TestExtractFields_RequiresClassification(t *testing.T) {
	h := newHarness(t, nil)
	d := h.upload(t, "invoice.pdf", constants.MimePDF, pdf("inv"), invoiceText)

	_, err := h.proc.ExtractFields(context.Background(), d.ID, true)
	assert.ErrorIs(t, err, common.ErrConflict)
}

type snapshot struct {
	docType constants.DocType
	fields  []string
}

func snap(t *testing.T, h *harness, id uuid.UUID) snapshot {
	t.Helper()
	d, err := h.repos.Documents.Get(context.Background(), id)
	require.NoError(t, err)
	fields, err := h.repos.Fields.ListByDocument(context.Background(), id)
	require.NoError(t, err)
	s := snapshot{docType: d.TypeOrEmpty()}
	for _, f := range fields {
		s.fields = append(s.fields, f.CanonicalKey+"="+f.Value+"@"+f.Snippet)
	}
	sort.Strings(s.fields)
	return s
}

func TestRetry_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	d := h.upload(t, "invoice.pdf", constants.MimePDF, pdf("inv"), invoiceText)

	// first attempt fails transiently
	h.text.errs = []error{&ocr.ExtractError{Code: constants.ErrOCRFailed, Message: "tesseract crashed"}}
	out, err := h.proc.Process(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, constants.DocumentError, out.Status)

	out, err = h.proc.Retry(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, constants.DocumentClassified, out.Status)
	assert.Nil(t, out.ErrorCode)
	_, err = h.proc.ExtractFields(ctx, d.ID, true)
	require.NoError(t, err)
	first := snap(t, h, d.ID)
	require.NotEmpty(t, first.fields)

	_, err = h.proc.Retry(ctx, d.ID)
	require.NoError(t, err)
	_, err = h.proc.ExtractFields(ctx, d.ID, true)
	require.NoError(t, err)
	assert.Equal(t, first, snap(t, h, d.ID))

	pages, err := h.repos.Pages.ListByDocument(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestProcessCase(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.upload(t, "01_commercial_invoice.pdf", constants.MimePDF, pdf("inv"), invoiceText)
	h.upload(t, "02_packing_list.pdf", constants.MimePDF, pdf("pl"), "PACKING LIST PL-2024-0815\nTotal 12,000 pcs")
	bad := h.upload(t, "03_oekotex_certificate.pdf", constants.MimePDF, []byte("GIF89a"), "")

	run, err := h.proc.ProcessCase(ctx, h.c.ID, pipeline.CaseOptions{Extract: true, Deterministic: true})
	require.NoError(t, err)
	assert.Equal(t, constants.CaseBlocked, run.Status)
	require.Len(t, run.Documents, 3)
	require.NotNil(t, run.Report)
	assert.Equal(t, constants.ResultPass, run.Report.Results["qty_mismatch"][0].Status)

	c, err := h.repos.Cases.Get(ctx, h.c.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.CaseBlocked, c.Status)

	// fixing the bad document clears the block
	require.NoError(t, h.store.Put(ctx, bad.StoragePath, pdf("cert")))
	h.text.pages[string(pdf("cert"))] = []string{"OEKO-TEX STANDARD 100 certificate SH025 189432"}
	_, err = h.proc.Retry(ctx, bad.ID)
	require.NoError(t, err)
	c, err = h.repos.Cases.Get(ctx, h.c.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.CaseReadyL1, c.Status)
}

func caseStatus(t *testing.T, h *harness) constants.CaseStatus {
	t.Helper()
	c, err := h.repos.Cases.Get(context.Background(), h.c.ID)
	require.NoError(t, err)
	return c.Status
}

func TestProcess_UpdatesCaseStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	good := h.upload(t, "invoice.pdf", constants.MimePDF, pdf("inv"), invoiceText)
	bad := h.upload(t, "certificate.pdf", constants.MimePDF, []byte("PK\x03\x04 zip"), "")
	require.Equal(t, constants.CaseDraft, caseStatus(t, h))

	_, err := h.proc.Process(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.CaseProcessing, caseStatus(t, h), "one document is still uploaded")

	out, err := h.proc.Process(ctx, bad.ID)
	require.NoError(t, err)
	require.Equal(t, constants.DocumentError, out.Status)
	assert.Equal(t, constants.CaseBlocked, caseStatus(t, h))
}

func TestExtractFields_FailureBlocksCase(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	d := h.upload(t, "invoice.pdf", constants.MimePDF, pdf("inv"), invoiceText)

	_, err := h.proc.Process(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, constants.CaseReadyL1, caseStatus(t, h))

	out, err := h.proc.ExtractFields(ctx, d.ID, false)
	require.NoError(t, err)
	require.Equal(t, constants.DocumentError, out.Status)
	assert.Equal(t, constants.CaseBlocked, caseStatus(t, h))

	_, err = h.proc.Retry(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.CaseReadyL1, caseStatus(t, h))
}

func TestCaseStatusOf(t *testing.T) {
	d := func(st constants.DocumentStatus) *entity.Document { return &entity.Document{Status: st} }
	tests := []struct {
		name string
		docs []*entity.Document
		want constants.CaseStatus
	}{
		{"empty", nil, constants.CaseDraft},
		{"all uploaded", []*entity.Document{d(constants.DocumentUploaded)}, constants.CaseDraft},
		{"in flight", []*entity.Document{d(constants.DocumentProcessing), d(constants.DocumentError)}, constants.CaseProcessing},
		{"error", []*entity.Document{d(constants.DocumentClassified), d(constants.DocumentError)}, constants.CaseBlocked},
		{"ready", []*entity.Document{d(constants.DocumentClassified), d(constants.DocumentExtracted)}, constants.CaseReadyL1},
		{"partially started", []*entity.Document{d(constants.DocumentClassified), d(constants.DocumentUploaded)}, constants.CaseProcessing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pipeline.CaseStatusOf(tt.docs))
		})
	}
}
