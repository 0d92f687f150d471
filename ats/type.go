// Package ats classifies reflected types into the abstract wire types that
// cross the language boundary.
//
// Every later stage asks the same TypeMap whether a member can be exposed.
// There is exactly one TypeMap per run and it is never mutated after
// NewTypeMap returns.
package ats

import "github.com/teranos/capgen/metadata"

// Kind discriminates wire types
type Kind uint8

const (
	Unrepresentable Kind = iota
	Primitive
	Named
	Array
)

func (k Kind) String() string {
	switch k {
	case Primitive:
		return "primitive"
	case Named:
		return "named"
	case Array:
		return "array"
	default:
		return "unrepresentable"
	}
}

// Primitive names
const (
	String  = "string"
	Number  = "number"
	Boolean = "boolean"
	Void    = "void"
)

// Type is an abstract wire type
type Type struct {
	Kind Kind

	// Name is the primitive name for Primitive types
	Name string

	// TypeID is the run-wide identifier of a Named type
	TypeID string
	// Sig is the absolute signature of a Named type
	Sig *metadata.TypeSig
	// Builder marks the builder root and builder-family instantiations
	Builder bool

	// Elem is the element of an Array
	Elem *Type

	// Optional marks values that may be absent (nullable wrappers)
	Optional bool

	// Control marks unrepresentable plumbing types, such as cancellation
	// tokens, that are skipped rather than rejected in trailing position
	Control bool
	// Reason explains why a type is unrepresentable
	Reason string
}

// Representable reports whether values of the type can cross the boundary
func (t Type) Representable() bool {
	switch t.Kind {
	case Primitive, Named:
		return true
	case Array:
		return t.Elem != nil && t.Elem.Representable()
	default:
		return false
	}
}

// IsVoid reports whether the type is the void primitive
func (t Type) IsVoid() bool {
	return t.Kind == Primitive && t.Name == Void
}

// ID renders the wire type identifier, e.g. "string", "number[]" or a Named type id.
// Optionality is not part of the identifier.
func (t Type) ID() string {
	switch t.Kind {
	case Primitive:
		return t.Name
	case Named:
		return t.TypeID
	case Array:
		if t.Elem == nil {
			return "[]"
		}
		return t.Elem.ID() + "[]"
	default:
		return ""
	}
}

func (t Type) String() string {
	s := t.ID()
	if t.Kind == Unrepresentable {
		s = "unrepresentable"
		if t.Reason != "" {
			s += "(" + t.Reason + ")"
		}
	}
	if t.Optional {
		s += "?"
	}
	return s
}

// NamedTypes returns the Named types t refers to, looking through arrays
func (t Type) NamedTypes() []Type {
	switch t.Kind {
	case Named:
		return []Type{t}
	case Array:
		if t.Elem != nil {
			return t.Elem.NamedTypes()
		}
	}
	return nil
}

func primitive(name string) Type {
	return Type{Kind: Primitive, Name: name}
}

func unrepresentable(reason string) Type {
	return Type{Kind: Unrepresentable, Reason: reason}
}

// TrimTrailing returns how many leading parameters remain once trailing
// control parameters and trailing optional parameters that cannot cross
// the boundary are removed. optional[i] reports whether parameter i
// declares a default.
func TrimTrailing(types []Type, optional []bool) int {
	n := len(types)
	for n > 0 {
		last := types[n-1]
		if last.Control || (!last.Representable() && optional[n-1]) {
			n--
			continue
		}
		break
	}
	return n
}
