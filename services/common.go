package services

import "fmt"

// StrPointer returns nil for an empty string.
func StrPointer(str string) *string {
	if str == "" {
		return nil
	}
	return &str
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:n]))
}
