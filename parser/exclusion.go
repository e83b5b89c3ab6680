package parser

import (
	"log/slog"
	"os"
	"strings"
)

// ExclusionList is a set of URL substrings. A media URL is excluded when any
// entry is contained within it; matching is containment, not equality, so one
// CDN path fragment can cover every size variant of an asset.
type ExclusionList []string

// Excluded reports whether the URL matches any exclusion entry.
func (l ExclusionList) Excluded(url string) bool {
	if url == "" {
		return false
	}
	for _, sub := range l {
		if strings.Contains(url, sub) {
			return true
		}
	}
	return false
}

// LoadExclusions reads a newline-delimited exclusion file, ignoring blank
// lines. A missing or unreadable file is non-fatal: it logs a warning and
// returns an empty list, so harvesting proceeds without exclusions.
func LoadExclusions(path string) ExclusionList {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("exclusion list unavailable, no media will be excluded",
			"path", path, "error", err)
		return nil
	}
	var list ExclusionList
	for _, line := range strings.Split(string(data), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
