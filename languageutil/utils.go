package languageutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// FoldKey returns the comparison key for label lookups: full-width forms are
// narrowed, case is folded and all whitespace is dropped.
func FoldKey(s string) string {
	s = width.Fold.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), "")
}

// CollapseSpaces replaces every run of whitespace with a single sep.
func CollapseSpaces(s string, sep string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), sep)
}
