// Package magic checks document bytes against the signature of their declared type.
package magic

import (
	"bytes"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/tradedocs/constants"
)

var signatures = map[string][]byte{
	constants.MimePDF:  []byte("%PDF"),
	constants.MimeJPEG: {0xFF, 0xD8, 0xFF},
	constants.MimePNG:  {0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'},
}

// Matches reports whether data starts with the signature registered for mime.
// Empty content never matches; mime types without a signature always do.
func Matches(data []byte, mime string) bool {
	if len(data) == 0 {
		return false
	}
	sig, ok := signatures[normalize(mime)]
	if !ok {
		return true
	}
	return bytes.HasPrefix(data, sig)
}

// Sniff detects the mime type of data from its content, without parameters.
func Sniff(data []byte) string {
	return normalize(mimetype.Detect(data).String())
}

// Supported reports whether mime has a registered signature.
func Supported(mime string) bool {
	_, ok := signatures[normalize(mime)]
	return ok
}

func normalize(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
