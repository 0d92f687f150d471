package util

import (
	"strings"
	"unicode"
)

// LowerCamel lowercases the leading capital run of a PascalCase name.
// Handles acronyms properly (e.g., "IOPort" -> "ioPort", "URL" -> "url").
func LowerCamel(s string) string {
	runes := []rune(s)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return s
	case n == 1 || n == len(runes):
		// "Name" -> "name", "URL" -> "url"
	case unicode.IsLower(runes[n]):
		// Keep the capital that starts the next word: "IOPort" -> "ioPort"
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// UpperFirst capitalizes the first letter, keeping the rest as-is
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ToPascalCase converts dotted, snake_case or kebab-case names to PascalCase
func ToPascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(UpperFirst(part))
	}
	return result.String()
}

// TrimAffixes removes the first matching prefix and the first matching
// suffix, never reducing s to an empty string.
func TrimAffixes(s string, prefixes, suffixes []string) string {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) && len(s) > len(p) {
			s = s[len(p):]
			break
		}
	}
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, suf) && len(s) > len(suf) {
			s = s[:len(s)-len(suf)]
			break
		}
	}
	return s
}
