package catalog

import (
	"path/filepath"
	"strings"
	"unicode"

	"wardrobeapi/languageutil"
)

const (
	FallbackName  = "file"
	MaxNameLength = 120
)

func allowedRune(r rune) bool {
	switch {
	case r == '_' || r == '-':
		return true
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case unicode.IsLetter(r) || unicode.IsNumber(r):
		return true
	case unicode.IsSpace(r):
		return true
	}
	return false
}

// SanitizeName replaces everything outside the whitelist (word characters,
// CJK ideographs, hyphen, whitespace) with '_' and caps the result at
// MaxNameLength runes. Path separators and dots never survive.
func SanitizeName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FallbackName
	}
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		if !allowedRune(r) {
			r = '_'
		}
		out = append(out, r)
		if len(out) == MaxNameLength {
			break
		}
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return FallbackName
	}
	return name
}

// ObjectStem is SanitizeName for object keys: whitespace runs become '_'.
func ObjectStem(raw string) string {
	return languageutil.CollapseSpaces(SanitizeName(raw), "_")
}

// FileStem strips directories and the extension from an uploaded filename.
func FileStem(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
