package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocType(t *testing.T) {
	tests := []struct {
		in   string
		want DocType
		ok   bool
	}{
		{"invoice", DocInvoice, true},
		{"  Packing_List ", DocPackingList, true},
		{"SDS", DocSDS, true},
		{"receipt", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDocType(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMimeForExt(t *testing.T) {
	assert.Equal(t, MimePDF, MimeForExt(".PDF"))
	assert.Equal(t, MimeJPEG, MimeForExt("jpg"))
	assert.Equal(t, MimeJPEG, MimeForExt(".jpeg"))
	assert.Equal(t, MimePNG, MimeForExt("png"))
	assert.Empty(t, MimeForExt(".tiff"))
}

func TestKeyTables(t *testing.T) {
	for dt, keys := range DocTypeFields {
		for _, k := range keys {
			assert.True(t, IsKnownKey(k), "%s key %s has no label", dt, k)
		}
	}
	for _, k := range CompositionKeys {
		assert.True(t, IsKnownKey(k), k)
	}
	for _, k := range RequiredFields {
		assert.True(t, IsKnownKey(k), k)
	}
	assert.Equal(t, "Invoice Number", Label(KeyInvoiceNumber))
	assert.Equal(t, "made_up", Label("made_up"))
	assert.Equal(t, CategoryOther, CategoryOf("made_up"))

	keys := AllowedKeys(DocInvoice)
	keys[0] = "mutated"
	assert.NotEqual(t, "mutated", DocTypeFields[DocInvoice][0])
}

func TestErrorCodeMessage(t *testing.T) {
	assert.Equal(t, "Text extraction timed out.", ErrExtractionTimeout.Message())
	assert.Equal(t, "something_else", ErrorCode("something_else").Message())
}
