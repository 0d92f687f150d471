package util

import (
	"strconv"
	"strings"
	"unicode"
)

// TypeScript reserved words and names the generated code already binds
var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "as": true, "implements": true, "interface": true, "let": true,
	"package": true, "private": true, "protected": true, "public": true,
	"static": true, "yield": true, "await": true, "arguments": true, "eval": true,
	"undefined": true,
}

// IsReserved reports whether name cannot be used as a binding
func IsReserved(name string) bool {
	return reserved[name]
}

// Identifier makes name a valid TypeScript binding: characters outside
// [A-Za-z0-9_$] become "_", a leading digit is prefixed with "_" and
// reserved words get a trailing "_".
func Identifier(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
			sb.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" {
		return "_"
	}
	if IsReserved(out) {
		return out + "_"
	}
	return out
}

// Quote renders s as a double-quoted TypeScript string literal
func Quote(s string) string {
	return strconv.Quote(s)
}

// DocLine escapes text for a single-line /** */ comment
func DocLine(text string) string {
	return strings.ReplaceAll(text, "*/", "*\\/")
}
