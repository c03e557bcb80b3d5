package utils

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MaxFilenameLength bounds sanitized filenames, extension included.
const MaxFilenameLength = 120

// IsWithin reports whether candidate resolves to root or a descendant of
// root. Both paths are made absolute and lexically cleaned before
// comparison, so `..` segments cannot escape and sibling directories with
// a shared name prefix (archive vs archive2) are not confused.
func IsWithin(candidate, root string) bool {
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(absRoot, absCandidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateArchiveDestination gates archive writes: target must be a strict
// descendant of archiveRoot. The root itself is rejected, as is anything
// that only reaches the root's neighborhood through traversal.
func ValidateArchiveDestination(target, archiveRoot string) bool {
	if !IsWithin(target, archiveRoot) {
		return false
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	absRoot, err := filepath.Abs(archiveRoot)
	if err != nil {
		return false
	}
	return absTarget != absRoot
}

// SanitizeFilename strips path separators and control characters from a
// user-supplied filename, collapses runs of replaced characters, and
// truncates to MaxFilenameLength runes. Deterministic and side-effect free.
func SanitizeFilename(name string) string {
	// Drop any directory components first; only the base name survives.
	name = filepath.Base(filepath.ToSlash(name))

	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || unicode.IsControl(r):
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		default:
			b.WriteRune(r)
			lastDash = false
		}
	}

	cleaned := strings.Trim(b.String(), "-. ")
	if cleaned == "" || cleaned == ".." {
		return "file"
	}

	runes := []rune(cleaned)
	if len(runes) <= MaxFilenameLength {
		return cleaned
	}

	// Keep the extension when truncating so classification still works.
	ext := filepath.Ext(cleaned)
	if len(ext) >= MaxFilenameLength {
		return string(runes[:MaxFilenameLength])
	}
	stem := runes[:MaxFilenameLength-len(ext)]
	return string(stem) + ext
}
