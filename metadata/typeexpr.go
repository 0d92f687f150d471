package metadata

import (
	"strings"
	"unicode"

	"github.com/teranos/capgen/errors"
)

// shorthand names accepted in type expressions of module sources
var builtinAliases = map[string]string{
	"string":              "System.String",
	"bool":                "System.Boolean",
	"byte":                "System.Byte",
	"sbyte":               "System.SByte",
	"char":                "System.Char",
	"short":               "System.Int16",
	"ushort":              "System.UInt16",
	"int":                 "System.Int32",
	"uint":                "System.UInt32",
	"long":                "System.Int64",
	"ulong":               "System.UInt64",
	"float":               "System.Single",
	"double":              "System.Double",
	"decimal":             "System.Decimal",
	"object":              "System.Object",
	"void":                "System.Void",
	"Uri":                 "System.Uri",
	"Guid":                "System.Guid",
	"TimeSpan":            "System.TimeSpan",
	"DateTime":            "System.DateTime",
	"DateTimeOffset":      "System.DateTimeOffset",
	"Nullable":            "System.Nullable",
	"Action":              "System.Action",
	"Func":                "System.Func",
	"IServiceProvider":    "System.IServiceProvider",
	"Task":                "System.Threading.Tasks.Task",
	"CancellationToken":   "System.Threading.CancellationToken",
	"IEnumerable":         "System.Collections.Generic.IEnumerable",
	"ICollection":         "System.Collections.Generic.ICollection",
	"IList":               "System.Collections.Generic.IList",
	"List":                "System.Collections.Generic.List",
	"IReadOnlyList":       "System.Collections.Generic.IReadOnlyList",
	"IDictionary":         "System.Collections.Generic.IDictionary",
	"IReadOnlyDictionary": "System.Collections.Generic.IReadOnlyDictionary",
	"Dictionary":          "System.Collections.Generic.Dictionary",
}

// ParseTypeExpr parses a type expression of the module source format:
//
//	string              shorthand for System.String
//	int?                System.Nullable`1<System.Int32>
//	string[]            array of System.String
//	List<Foo>           generic instantiation, arity suffix added
//	Mod::Ns.Type        type declared in module Mod
//	T                   generic parameter when T is in generics
//
// aliases maps extra names to "[Mod::]Full.Name" strings and wins over shorthands.
func ParseTypeExpr(expr string, aliases map[string]string, generics []string) (*TypeSig, error) {
	p := &typeParser{src: expr, aliases: aliases, generics: generics}
	sig, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return sig, nil
}

type typeParser struct {
	src      string
	pos      int
	aliases  map[string]string
	generics []string
}

func (p *typeParser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(errors.Newf(format, args...), "type expression %q at offset %d", p.src, p.pos)
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if c == '.' || c == '_' || c == '`' || unicode.IsLetter(c) || unicode.IsDigit(c) {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parseType() (*TypeSig, error) {
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected a type name")
	}
	module := ""
	if p.consume("::") {
		module = name
		name = p.ident()
		if name == "" {
			return nil, p.errorf("expected a type name after %s::", module)
		}
	}

	var args []*TypeSig
	if p.consume("<") {
		for {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.consume(",") {
				continue
			}
			if p.consume(">") {
				break
			}
			return nil, p.errorf("expected ',' or '>'")
		}
	}

	sig := p.base(module, name, args)

	for {
		switch {
		case p.consume("[]"):
			sig = ArrayOf(sig)
		case p.consume("?"):
			sig = Generic(SystemModule, "System.Nullable`1", sig)
		default:
			return sig, nil
		}
	}
}

// base builds the signature for a possibly aliased name
func (p *typeParser) base(module, name string, args []*TypeSig) *TypeSig {
	if module == "" && len(args) == 0 {
		for i, g := range p.generics {
			if g == name {
				return GenericParam(i)
			}
		}
	}
	if module == "" {
		if full, ok := p.aliases[name]; ok {
			if i := strings.Index(full, "::"); i >= 0 {
				module, name = full[:i], full[i+2:]
			} else {
				name = full
			}
		} else if full, ok := builtinAliases[name]; ok {
			name = full
		}
	}
	if len(args) == 0 {
		return Named(module, name)
	}
	return Generic(module, ArityName(name, len(args)), args...)
}
