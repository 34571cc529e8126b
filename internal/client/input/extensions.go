package input

import (
	"path/filepath"
	"slices"
	"strings"
)

// normalizeKnownExtensions lower-cases and strips the leading dot so that
// "PNG", ".png" and "png" all match.
func normalizeKnownExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" && !slices.Contains(out, ext) {
			out = append(out, ext)
		}
	}
	return out
}

// hasKnownExtension accepts everything when known is empty.
func hasKnownExtension(name string, known []string) bool {
	if len(known) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	return slices.Contains(known, ext)
}
