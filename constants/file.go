package constants

import "strings"

const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// AllowedExtensions holds the default allowed file extensions for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForExt maps a normalized extension to the mime type we declare for it.
func MimeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return MimePDF
	case "jpg", "jpeg":
		return MimeJPEG
	case "png":
		return MimePNG
	default:
		return ""
	}
}

// IsImageMime reports whether the mime type is handled by image OCR.
func IsImageMime(mime string) bool {
	return mime == MimeJPEG || mime == MimePNG
}
