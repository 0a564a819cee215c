// Package security guards filesystem paths built from request or operator
// input.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ContainedPath joins elems onto root and rejects the result if it escapes
// root. The check is lexical so it also works against in-memory filesystems.
func ContainedPath(root string, elems ...string) (string, error) {
	cleanRoot := filepath.Clean(root)
	joined := filepath.Join(append([]string{cleanRoot}, elems...)...)

	rel, err := filepath.Rel(cleanRoot, joined)
	if err != nil {
		return "", fmt.Errorf("path is outside %s: %w", root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("path traversal detected: %q escapes %s", filepath.Join(elems...), root)
	}
	return joined, nil
}

// IsPlainFilename reports whether name is a single path element with no
// separators or dot segments.
func IsPlainFilename(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// SanitizeFilename makes a safe filename from an arbitrary string such as a
// site name. Characters other than ASCII letters, digits, dot, underscore and
// dash become an underscore; runs of underscores collapse; the result is at
// most 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
