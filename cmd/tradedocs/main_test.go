package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/internal/common"
	"github.com/joseph-ayodele/tradedocs/internal/server"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func setupApp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := common.DefaultConfig()
	cfg.Database.URL = "sqlite:" + filepath.Join(dir, "cli.db")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.LLM.Provider = "none"

	a, err := server.NewApp(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	app = a
	t.Cleanup(func() {
		a.Close()
		app = nil
	})
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestCaseCommands(t *testing.T) {
	setupApp(t)

	out, err := execute(t, "case", "create", "PO-1001", "--title", "Spring order")
	require.NoError(t, err)
	assert.Contains(t, out, "Created case PO-1001")

	_, err = execute(t, "case", "create", "PO-1001")
	require.Error(t, err)

	out, err = execute(t, "case", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PO-1001")
	assert.Contains(t, out, "Total: 1 cases")

	out, err = execute(t, "case", "show", "PO-1001")
	require.NoError(t, err)
	assert.Contains(t, out, "Spring order")
	assert.Contains(t, out, "Documents (0)")
}

func TestUploadAndReports(t *testing.T) {
	dir := setupApp(t)
	_, err := execute(t, "case", "create", "PO-2002")
	require.NoError(t, err)

	file := filepath.Join(dir, "label.png")
	require.NoError(t, os.WriteFile(file, pngBytes, 0o644))

	out, err := execute(t, "upload", "PO-2002", file)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	out, err = execute(t, "upload", "PO-2002", file)
	require.NoError(t, err)
	assert.Contains(t, out, "DUP")

	out, err = execute(t, "case", "show", "PO-2002")
	require.NoError(t, err)
	assert.Contains(t, out, "label.png")
	assert.Contains(t, out, "uploaded")

	out, err = execute(t, "fields", "PO-2002")
	require.NoError(t, err)
	assert.Contains(t, out, "No fields")

	out, err = execute(t, "validate", "PO-2002")
	require.NoError(t, err)
	assert.Contains(t, out, "Missing document(s)")
	assert.Contains(t, out, "Result: FAIL")

	out, err = execute(t, "checklist", "list", "PO-2002")
	require.NoError(t, err)
	assert.Contains(t, out, "missing_document")

	out, err = execute(t, "metrics", "PO-2002")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:          1 (0 in error)")

	xlsx := filepath.Join(dir, "report.xlsx")
	out, err = execute(t, "export", "PO-2002", "--out", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDocumentCommands_BadInput(t *testing.T) {
	setupApp(t)

	_, err := execute(t, "process", "not-a-uuid")
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = execute(t, "case", "show", "PO-missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = execute(t, "upload", "PO-missing")
	require.Error(t, err)
}
