package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	key := DocumentKey(uuid.New(), uuid.New(), "Commercial Invoice.pdf")
	require.NoError(t, s.Put(ctx, key, []byte("%PDF-1.7")))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), got)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)

	err = s.Put(context.Background(), "../outside.txt", []byte("x"))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Commercial Invoice.pdf":    "Commercial_Invoice.pdf",
		"../../etc/passwd":          "passwd",
		`C:\scans\packing list.png`: "packing_list.png",
		"...":                       "document",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestDocumentKey(t *testing.T) {
	c, d := uuid.New(), uuid.New()
	assert.Equal(t, "cases/"+c.String()+"/"+d.String()+"/sds.pdf", DocumentKey(c, d, "sds.pdf"))
}
