// Package metadata reads compiled integration modules without executing them.
//
// A module is a `.capmod` file holding structural metadata only: type
// definitions, their methods and properties, signatures and custom
// attributes. Nothing in a module is runnable; the Reader parses tables and
// resolves cross-module type references lazily through an ordered list of
// search directories.
//
// # Layers
//
//  1. Definitions (this file): the decoded, immutable tables of one module
//  2. Codec (wire.go): the binary format, Protocol Buffers wire encoding
//  3. Sources (source.go): a YAML authoring format compiled into definitions
//  4. Reader (reader.go): search-path loading, caching and type resolution
package metadata

import (
	"strconv"
	"strings"
)

// FormatVersion is the module format version written by Encode.
// Decode rejects modules declaring a newer version.
const FormatVersion = 1

// Extension is the file extension of compiled modules
const Extension = ".capmod"

// TypeFlags describes a type definition
type TypeFlags uint32

const (
	TypePublic TypeFlags = 1 << iota
	TypeStatic
	TypeInterface
	TypeAbstract
	TypeSealed
	TypeEnum
	TypeDelegate
	TypeValueType
)

// MethodFlags describes a method definition
type MethodFlags uint32

const (
	MethodPublic MethodFlags = 1 << iota
	MethodStatic
	MethodExtension
)

// ParamFlags describes a parameter definition
type ParamFlags uint32

const (
	// ParamOptional marks a parameter declared with a default value
	ParamOptional ParamFlags = 1 << iota
)

// PropertyFlags describes a property definition
type PropertyFlags uint32

const (
	PropertyGetter PropertyFlags = 1 << iota // public getter
	PropertySetter                           // public setter
	PropertyStatic
)

// SigKind discriminates TypeSig shapes
type SigKind uint8

const (
	SigNamed        SigKind = iota + 1 // a non-generic type definition
	SigArray                           // Args[0] is the element
	SigGeneric                         // instantiation of Ref with Args
	SigGenericParam                    // Param indexes the enclosing type's generic parameters
	SigPointer                         // Args[0] is the pointee
	SigByRef                           // Args[0] is the referenced type
)

func (k SigKind) String() string {
	switch k {
	case SigNamed:
		return "named"
	case SigArray:
		return "array"
	case SigGeneric:
		return "generic"
	case SigGenericParam:
		return "generic-param"
	case SigPointer:
		return "pointer"
	case SigByRef:
		return "byref"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// TypeRef names a type definition. An empty Module means the module that
// contains the reference, except for System.* names which always belong to
// the built-in module.
type TypeRef struct {
	Module string
	Name   string // full name, e.g. "Aspire.Hosting.ApplicationModel.IResourceBuilder`1"
}

// String renders the reference as "Module::Name", or just Name when relative
func (r TypeRef) String() string {
	if r.Module == "" {
		return r.Name
	}
	return r.Module + "::" + r.Name
}

// In returns the reference with an empty module filled in
func (r TypeRef) In(module string) TypeRef {
	if r.Module == "" {
		if IsSystemName(r.Name) {
			r.Module = SystemModule
		} else {
			r.Module = module
		}
	}
	return r
}

// TypeSig is a type signature as it appears in a member declaration
type TypeSig struct {
	Kind  SigKind
	Ref   TypeRef
	Args  []*TypeSig
	Param int
}

// Named builds a SigNamed signature
func Named(module, name string) *TypeSig {
	return &TypeSig{Kind: SigNamed, Ref: TypeRef{Module: module, Name: name}}
}

// Generic builds a SigGeneric signature
func Generic(module, name string, args ...*TypeSig) *TypeSig {
	return &TypeSig{Kind: SigGeneric, Ref: TypeRef{Module: module, Name: name}, Args: args}
}

// ArrayOf builds a SigArray signature
func ArrayOf(elem *TypeSig) *TypeSig {
	return &TypeSig{Kind: SigArray, Args: []*TypeSig{elem}}
}

// GenericParam builds a SigGenericParam signature
func GenericParam(index int) *TypeSig {
	return &TypeSig{Kind: SigGenericParam, Param: index}
}

// Elem returns the element of an array, pointer or by-ref signature
func (s *TypeSig) Elem() *TypeSig {
	if len(s.Args) == 0 {
		return nil
	}
	return s.Args[0]
}

// In returns a deep copy with every relative reference made absolute in module
func (s *TypeSig) In(module string) *TypeSig {
	if s == nil {
		return nil
	}
	out := &TypeSig{Kind: s.Kind, Ref: s.Ref, Param: s.Param}
	if s.Kind == SigNamed || s.Kind == SigGeneric {
		out.Ref = s.Ref.In(module)
	}
	if len(s.Args) > 0 {
		out.Args = make([]*TypeSig, len(s.Args))
		for i, a := range s.Args {
			out.Args[i] = a.In(module)
		}
	}
	return out
}

// Substitute returns a deep copy with generic parameters replaced by args.
// Parameters outside args are left in place.
func (s *TypeSig) Substitute(args []*TypeSig) *TypeSig {
	if s == nil {
		return nil
	}
	if s.Kind == SigGenericParam {
		if s.Param >= 0 && s.Param < len(args) {
			return args[s.Param]
		}
		return s
	}
	out := &TypeSig{Kind: s.Kind, Ref: s.Ref, Param: s.Param}
	if len(s.Args) > 0 {
		out.Args = make([]*TypeSig, len(s.Args))
		for i, a := range s.Args {
			out.Args[i] = a.Substitute(args)
		}
	}
	return out
}

// ID renders a stable identifier for the signature.
// For absolute signatures it is unique across all modules of a run.
func (s *TypeSig) ID() string {
	if s == nil {
		return ""
	}
	switch s.Kind {
	case SigNamed:
		return refID(s.Ref)
	case SigGeneric:
		parts := make([]string, len(s.Args))
		for i, a := range s.Args {
			parts[i] = a.ID()
		}
		return refID(s.Ref) + "<" + strings.Join(parts, ",") + ">"
	case SigArray:
		return s.Elem().ID() + "[]"
	case SigGenericParam:
		return "!" + strconv.Itoa(s.Param)
	case SigPointer:
		return s.Elem().ID() + "*"
	case SigByRef:
		return s.Elem().ID() + "&"
	default:
		return "?"
	}
}

func (s *TypeSig) String() string {
	return s.ID()
}

func refID(r TypeRef) string {
	if r.Module == "" {
		return r.Name
	}
	return r.Module + "/" + r.Name
}

// NamedArg is a named custom-attribute argument
type NamedArg struct {
	Name  string
	Value string
}

// Attribute is a custom attribute applied to a module, type or member.
// Arguments are stored as their string renderings.
type Attribute struct {
	Type  TypeRef
	Args  []string
	Named []NamedArg
}

// Arg returns the positional argument at i
func (a *Attribute) Arg(i int) (string, bool) {
	if i < 0 || i >= len(a.Args) {
		return "", false
	}
	return a.Args[i], true
}

// NamedValue returns the value of a named argument
func (a *Attribute) NamedValue(name string) (string, bool) {
	for _, n := range a.Named {
		if n.Name == name {
			return n.Value, true
		}
	}
	return "", false
}

// ParamDef is a method parameter
type ParamDef struct {
	Name  string
	Type  *TypeSig
	Flags ParamFlags
}

// Optional reports whether the parameter declares a default value
func (p *ParamDef) Optional() bool { return p.Flags&ParamOptional != 0 }

// MethodDef is a method declared on a type
type MethodDef struct {
	Name       string
	Flags      MethodFlags
	Return     *TypeSig
	Params     []*ParamDef
	Attributes []*Attribute
}

func (m *MethodDef) IsPublic() bool    { return m.Flags&MethodPublic != 0 }
func (m *MethodDef) IsStatic() bool    { return m.Flags&MethodStatic != 0 }
func (m *MethodDef) IsExtension() bool { return m.Flags&MethodExtension != 0 }

// PropertyDef is a property declared on a type
type PropertyDef struct {
	Name       string
	Type       *TypeSig
	Flags      PropertyFlags
	Attributes []*Attribute
}

// Readable reports whether the property has a public getter
func (p *PropertyDef) Readable() bool { return p.Flags&PropertyGetter != 0 }

// Writable reports whether the property has a public setter
func (p *PropertyDef) Writable() bool { return p.Flags&PropertySetter != 0 }

func (p *PropertyDef) IsStatic() bool { return p.Flags&PropertyStatic != 0 }

// TypeDef is a type definition
type TypeDef struct {
	Namespace     string
	Name          string // simple name, with a "`N" arity suffix for generic definitions
	Flags         TypeFlags
	GenericParams []string
	Methods       []*MethodDef
	Properties    []*PropertyDef
	Attributes    []*Attribute
}

// FullName returns Namespace.Name
func (t *TypeDef) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// BaseName returns the simple name without its generic arity suffix
func (t *TypeDef) BaseName() string {
	if i := strings.IndexByte(t.Name, '`'); i >= 0 {
		return t.Name[:i]
	}
	return t.Name
}

func (t *TypeDef) IsPublic() bool    { return t.Flags&TypePublic != 0 }
func (t *TypeDef) IsStatic() bool    { return t.Flags&TypeStatic != 0 }
func (t *TypeDef) IsInterface() bool { return t.Flags&TypeInterface != 0 }
func (t *TypeDef) IsDelegate() bool  { return t.Flags&TypeDelegate != 0 }
func (t *TypeDef) IsEnum() bool      { return t.Flags&TypeEnum != 0 }
func (t *TypeDef) IsValueType() bool { return t.Flags&TypeValueType != 0 }

// ModuleDef is the decoded content of one module file
type ModuleDef struct {
	Name       string
	Version    string
	References []string
	Types      []*TypeDef
	Attributes []*Attribute
}

// ArityName appends the "`N" generic arity suffix to name when n > 0 and
// the suffix is missing.
func ArityName(name string, n int) string {
	if n == 0 || strings.IndexByte(name, '`') >= 0 {
		return name
	}
	return name + "`" + strconv.Itoa(n)
}
