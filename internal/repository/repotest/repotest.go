// Package repotest opens throwaway SQLite databases for tests.
package repotest

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/entity"
	"github.com/joseph-ayodele/tradedocs/internal/repository"
)

// Open returns migrated repositories backed by a SQLite file in t.TempDir().
// A file is used instead of :memory: so every pooled connection sees the same data.
func Open(t *testing.T) *repository.Repositories {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	client, err := repository.Open(ctx, repository.Config{
		URL: "sqlite:" + filepath.Join(t.TempDir(), "test.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	require.NoError(t, client.Migrate(ctx))

	return repository.NewRepositories(client, logger)
}

// CreateCase inserts a case with the given reference.
func CreateCase(t *testing.T, repos *repository.Repositories, ref string) *entity.Case {
	t.Helper()
	c := &entity.Case{ReferenceNo: ref, Title: "Test case " + ref}
	require.NoError(t, repos.Cases.Create(context.Background(), c))
	return c
}

// CreateDocument inserts an uploaded document into the case.
func CreateDocument(t *testing.T, repos *repository.Repositories, c *entity.Case, filename, mime string) *entity.Document {
	t.Helper()
	d := &entity.Document{
		CaseID:           c.ID,
		OriginalFilename: filename,
		StoragePath:      "cases/" + c.ID.String() + "/" + filename,
		MimeType:         mime,
		SizeBytes:        1,
		SHA256:           entity.SnippetHash(filename),
		Status:           constants.DocumentUploaded,
	}
	require.NoError(t, repos.Documents.Create(context.Background(), d))
	return d
}

// CreateField inserts a field on the document with a single anchor at page 1.
func CreateField(t *testing.T, repos *repository.Repositories, doc *entity.Document, key, value string) *entity.ExtractedField {
	t.Helper()
	conf := 0.9
	snippet := key + ": " + value
	f := &entity.ExtractedField{
		DocumentID:   doc.ID,
		CaseID:       doc.CaseID,
		CanonicalKey: key,
		Value:        value,
		Page:         1,
		Snippet:      snippet,
		Confidence:   &conf,
		Anchors:      []entity.EvidenceAnchor{{PageNo: 1, SnippetText: snippet}},
	}
	require.NoError(t, repos.Fields.Create(context.Background(), f))
	return f
}

// ClassifyDocument moves the document to classified with the given type.
func ClassifyDocument(t *testing.T, repos *repository.Repositories, doc *entity.Document, docType constants.DocType) {
	t.Helper()
	method := constants.ClassifiedHeuristic
	conf := 0.9
	require.NoError(t, repos.Documents.MarkClassified(context.Background(), doc.ID, repository.Classification{
		DocType:    &docType,
		Method:     &method,
		Confidence: &conf,
	}))
	doc.Status = constants.DocumentClassified
	doc.DocType = &docType
}
