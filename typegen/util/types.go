// Package util holds the rendering helpers shared by the TypeScript backends.
package util

import (
	"strings"

	"github.com/teranos/capgen/ats"
)

// TypeConverterConfig configures how wire types are spelled in the target language
type TypeConverterConfig struct {
	// Named returns the target name for a Named type id
	Named func(typeID string) string

	// ArrayFormat formats an array type given the element type
	// e.g. TypeScript: "%s[]", or "Array<%s>" for compound elements
	ArrayFormat func(elemType string) string

	// OptionalFormat marks a value that may be absent
	// e.g. TypeScript: "%s | undefined"
	OptionalFormat func(t string) string

	// UnknownType is returned for unrepresentable types
	UnknownType string
}

// TypeScript is the conversion used by both backends
func TypeScript(named func(typeID string) string) *TypeConverterConfig {
	return &TypeConverterConfig{
		Named: named,
		ArrayFormat: func(elem string) string {
			if strings.ContainsAny(elem, " |") {
				return "Array<" + elem + ">"
			}
			return elem + "[]"
		},
		OptionalFormat: func(t string) string { return t + " | undefined" },
		UnknownType:    "unknown",
	}
}

// ConvertType spells t in the target language. Optional types get
// OptionalFormat unless bare is set; parameter lists express optionality
// with "?" instead.
func ConvertType(t ats.Type, config *TypeConverterConfig, bare bool) string {
	var out string
	switch t.Kind {
	case ats.Primitive:
		out = t.Name
	case ats.Named:
		out = config.Named(t.TypeID)
	case ats.Array:
		if t.Elem == nil {
			out = config.ArrayFormat(config.UnknownType)
		} else {
			out = config.ArrayFormat(ConvertType(*t.Elem, config, false))
		}
	default:
		return config.UnknownType
	}
	if t.Optional && !bare && !t.IsVoid() {
		return config.OptionalFormat(out)
	}
	return out
}
