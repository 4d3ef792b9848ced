package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/tradedocs/constants"
)

// extSet builds a lookup of normalized extensions, falling back to the
// default allowed set when exts is empty.
func extSet(exts []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, e := range exts {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	if len(set) == 0 {
		return constants.AllowedExtensions
	}
	return set
}

func allowedExt(path string, exts map[string]struct{}) bool {
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// isHidden checks if a file or directory is hidden (starts with '.').
func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
