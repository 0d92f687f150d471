package metadata

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/teranos/capgen/errors"
)

// Field numbers of the module format. Every message is a Protocol Buffers
// message; unknown fields are skipped so newer writers stay readable.
//
//	Module      { 1 name, 2 version, 3 references*, 4 types*, 5 attributes*, 6 format }
//	TypeDef     { 1 namespace, 2 name, 3 flags, 4 generic_params*, 5 methods*, 6 properties*, 7 attributes* }
//	MethodDef   { 1 name, 2 flags, 3 return, 4 params*, 5 attributes* }
//	ParamDef    { 1 name, 2 type, 3 flags }
//	PropertyDef { 1 name, 2 type, 3 flags, 4 attributes* }
//	TypeSig     { 1 kind, 2 ref, 3 args*, 4 param }
//	TypeRef     { 1 module, 2 name }
//	Attribute   { 1 type, 2 args*, 3 named* }
//	NamedArg    { 1 name, 2 value }
const (
	fieldModuleName       protowire.Number = 1
	fieldModuleVersion    protowire.Number = 2
	fieldModuleReferences protowire.Number = 3
	fieldModuleTypes      protowire.Number = 4
	fieldModuleAttributes protowire.Number = 5
	fieldModuleFormat     protowire.Number = 6

	fieldTypeNamespace  protowire.Number = 1
	fieldTypeName       protowire.Number = 2
	fieldTypeFlags      protowire.Number = 3
	fieldTypeGenerics   protowire.Number = 4
	fieldTypeMethods    protowire.Number = 5
	fieldTypeProperties protowire.Number = 6
	fieldTypeAttributes protowire.Number = 7

	fieldMethodName       protowire.Number = 1
	fieldMethodFlags      protowire.Number = 2
	fieldMethodReturn     protowire.Number = 3
	fieldMethodParams     protowire.Number = 4
	fieldMethodAttributes protowire.Number = 5

	fieldParamName  protowire.Number = 1
	fieldParamType  protowire.Number = 2
	fieldParamFlags protowire.Number = 3

	fieldPropertyName       protowire.Number = 1
	fieldPropertyType       protowire.Number = 2
	fieldPropertyFlags      protowire.Number = 3
	fieldPropertyAttributes protowire.Number = 4

	fieldSigKind  protowire.Number = 1
	fieldSigRef   protowire.Number = 2
	fieldSigArgs  protowire.Number = 3
	fieldSigParam protowire.Number = 4

	fieldRefModule protowire.Number = 1
	fieldRefName   protowire.Number = 2

	fieldAttrType  protowire.Number = 1
	fieldAttrArgs  protowire.Number = 2
	fieldAttrNamed protowire.Number = 3

	fieldNamedName  protowire.Number = 1
	fieldNamedValue protowire.Number = 2
)

// maxSigDepth bounds signature nesting so hostile input cannot exhaust the stack
const maxSigDepth = 32

// Encode serializes a module definition into the binary module format.
// Zero values are omitted, so Decode(Encode(m)) yields an equivalent definition.
func Encode(m *ModuleDef) []byte {
	var b []byte
	b = appendString(b, fieldModuleName, m.Name)
	b = appendString(b, fieldModuleVersion, m.Version)
	for _, ref := range m.References {
		b = protowire.AppendTag(b, fieldModuleReferences, protowire.BytesType)
		b = protowire.AppendString(b, ref)
	}
	for _, t := range m.Types {
		b = appendMessage(b, fieldModuleTypes, encodeType(t))
	}
	for _, a := range m.Attributes {
		b = appendMessage(b, fieldModuleAttributes, encodeAttribute(a))
	}
	b = protowire.AppendTag(b, fieldModuleFormat, protowire.VarintType)
	b = protowire.AppendVarint(b, FormatVersion)
	return b
}

func encodeType(t *TypeDef) []byte {
	var b []byte
	b = appendString(b, fieldTypeNamespace, t.Namespace)
	b = appendString(b, fieldTypeName, t.Name)
	b = appendVarint(b, fieldTypeFlags, uint64(t.Flags))
	for _, g := range t.GenericParams {
		b = protowire.AppendTag(b, fieldTypeGenerics, protowire.BytesType)
		b = protowire.AppendString(b, g)
	}
	for _, m := range t.Methods {
		b = appendMessage(b, fieldTypeMethods, encodeMethod(m))
	}
	for _, p := range t.Properties {
		b = appendMessage(b, fieldTypeProperties, encodeProperty(p))
	}
	for _, a := range t.Attributes {
		b = appendMessage(b, fieldTypeAttributes, encodeAttribute(a))
	}
	return b
}

func encodeMethod(m *MethodDef) []byte {
	var b []byte
	b = appendString(b, fieldMethodName, m.Name)
	b = appendVarint(b, fieldMethodFlags, uint64(m.Flags))
	if m.Return != nil {
		b = appendMessage(b, fieldMethodReturn, encodeSig(m.Return))
	}
	for _, p := range m.Params {
		var pb []byte
		pb = appendString(pb, fieldParamName, p.Name)
		if p.Type != nil {
			pb = appendMessage(pb, fieldParamType, encodeSig(p.Type))
		}
		pb = appendVarint(pb, fieldParamFlags, uint64(p.Flags))
		b = appendMessage(b, fieldMethodParams, pb)
	}
	for _, a := range m.Attributes {
		b = appendMessage(b, fieldMethodAttributes, encodeAttribute(a))
	}
	return b
}

func encodeProperty(p *PropertyDef) []byte {
	var b []byte
	b = appendString(b, fieldPropertyName, p.Name)
	if p.Type != nil {
		b = appendMessage(b, fieldPropertyType, encodeSig(p.Type))
	}
	b = appendVarint(b, fieldPropertyFlags, uint64(p.Flags))
	for _, a := range p.Attributes {
		b = appendMessage(b, fieldPropertyAttributes, encodeAttribute(a))
	}
	return b
}

func encodeSig(s *TypeSig) []byte {
	var b []byte
	b = appendVarint(b, fieldSigKind, uint64(s.Kind))
	if s.Ref != (TypeRef{}) {
		b = appendMessage(b, fieldSigRef, encodeRef(s.Ref))
	}
	for _, a := range s.Args {
		b = appendMessage(b, fieldSigArgs, encodeSig(a))
	}
	b = appendVarint(b, fieldSigParam, uint64(s.Param))
	return b
}

func encodeRef(r TypeRef) []byte {
	var b []byte
	b = appendString(b, fieldRefModule, r.Module)
	b = appendString(b, fieldRefName, r.Name)
	return b
}

func encodeAttribute(a *Attribute) []byte {
	var b []byte
	b = appendMessage(b, fieldAttrType, encodeRef(a.Type))
	for _, arg := range a.Args {
		b = protowire.AppendTag(b, fieldAttrArgs, protowire.BytesType)
		b = protowire.AppendString(b, arg)
	}
	for _, n := range a.Named {
		var nb []byte
		nb = appendString(nb, fieldNamedName, n.Name)
		nb = appendString(nb, fieldNamedValue, n.Value)
		b = appendMessage(b, fieldAttrNamed, nb)
	}
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// fieldError carries the field path of a decoding failure
type fieldError struct {
	path []string
	err  error
}

func (e *fieldError) Error() string {
	return strings.Join(e.path, ".") + ": " + e.err.Error()
}

func (e *fieldError) Unwrap() error { return e.err }

// at prefixes err's field path with segment
func at(segment string, err error) error {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*fieldError); ok {
		fe.path = append([]string{segment}, fe.path...)
		return fe
	}
	return &fieldError{path: []string{segment}, err: err}
}

// Decode parses a module from its binary form. file only labels errors.
// Any structural violation is reported as errors.ErrMalformedModule with the
// offending field path.
func Decode(file string, data []byte) (*ModuleDef, error) {
	m, err := decodeModule(data)
	if err != nil {
		path := "module"
		cause := err
		if fe, ok := err.(*fieldError); ok {
			path = "module." + strings.Join(fe.path, ".")
			cause = fe.err
		}
		return nil, errors.NewMalformedModule(file, path, cause)
	}
	return m, nil
}

func decodeModule(data []byte) (*ModuleDef, error) {
	m := &ModuleDef{}
	var format uint64
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldModuleName:
			return consumeString(typ, b, &m.Name)
		case fieldModuleVersion:
			return consumeString(typ, b, &m.Version)
		case fieldModuleReferences:
			var ref string
			n, err := consumeString(typ, b, &ref)
			if err == nil {
				m.References = append(m.References, ref)
			}
			return n, at("references", err)
		case fieldModuleTypes:
			idx := len(m.Types)
			return consumeMessage(typ, b, func(v []byte) error {
				t, err := decodeType(v)
				if err != nil {
					return at(fmt.Sprintf("types[%d]", idx), err)
				}
				m.Types = append(m.Types, t)
				return nil
			})
		case fieldModuleAttributes:
			idx := len(m.Attributes)
			return consumeMessage(typ, b, func(v []byte) error {
				a, err := decodeAttribute(v)
				if err != nil {
					return at(fmt.Sprintf("attributes[%d]", idx), err)
				}
				m.Attributes = append(m.Attributes, a)
				return nil
			})
		case fieldModuleFormat:
			return consumeVarint(typ, b, &format)
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}

	if format > FormatVersion {
		return nil, at("format", errors.Newf("unsupported format version %d (reader supports %d)", format, FormatVersion))
	}
	if m.Name == "" {
		return nil, at("name", errors.New("module name is required"))
	}

	// Type names must be unique inside a module
	seen := make(map[string]bool, len(m.Types))
	for i, t := range m.Types {
		if seen[t.FullName()] {
			return nil, at(fmt.Sprintf("types[%d]", i), errors.Newf("duplicate type %s", t.FullName()))
		}
		seen[t.FullName()] = true
	}
	return m, nil
}

func decodeType(data []byte) (*TypeDef, error) {
	t := &TypeDef{}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldTypeNamespace:
			return consumeString(typ, b, &t.Namespace)
		case fieldTypeName:
			return consumeString(typ, b, &t.Name)
		case fieldTypeFlags:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			t.Flags = TypeFlags(v)
			return n, err
		case fieldTypeGenerics:
			var g string
			n, err := consumeString(typ, b, &g)
			if err == nil {
				t.GenericParams = append(t.GenericParams, g)
			}
			return n, at("generic_params", err)
		case fieldTypeMethods:
			idx := len(t.Methods)
			return consumeMessage(typ, b, func(v []byte) error {
				m, err := decodeMethod(v)
				if err != nil {
					return at(fmt.Sprintf("methods[%d]", idx), err)
				}
				t.Methods = append(t.Methods, m)
				return nil
			})
		case fieldTypeProperties:
			idx := len(t.Properties)
			return consumeMessage(typ, b, func(v []byte) error {
				p, err := decodeProperty(v)
				if err != nil {
					return at(fmt.Sprintf("properties[%d]", idx), err)
				}
				t.Properties = append(t.Properties, p)
				return nil
			})
		case fieldTypeAttributes:
			idx := len(t.Attributes)
			return consumeMessage(typ, b, func(v []byte) error {
				a, err := decodeAttribute(v)
				if err != nil {
					return at(fmt.Sprintf("attributes[%d]", idx), err)
				}
				t.Attributes = append(t.Attributes, a)
				return nil
			})
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	if t.Name == "" {
		return nil, at("name", errors.New("type name is required"))
	}
	return t, nil
}

func decodeMethod(data []byte) (*MethodDef, error) {
	m := &MethodDef{}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldMethodName:
			return consumeString(typ, b, &m.Name)
		case fieldMethodFlags:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			m.Flags = MethodFlags(v)
			return n, err
		case fieldMethodReturn:
			return consumeMessage(typ, b, func(v []byte) error {
				s, err := decodeSig(v, 0)
				m.Return = s
				return at("return", err)
			})
		case fieldMethodParams:
			idx := len(m.Params)
			return consumeMessage(typ, b, func(v []byte) error {
				p, err := decodeParam(v)
				if err != nil {
					return at(fmt.Sprintf("params[%d]", idx), err)
				}
				m.Params = append(m.Params, p)
				return nil
			})
		case fieldMethodAttributes:
			idx := len(m.Attributes)
			return consumeMessage(typ, b, func(v []byte) error {
				a, err := decodeAttribute(v)
				if err != nil {
					return at(fmt.Sprintf("attributes[%d]", idx), err)
				}
				m.Attributes = append(m.Attributes, a)
				return nil
			})
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	if m.Name == "" {
		return nil, at("name", errors.New("method name is required"))
	}
	return m, nil
}

func decodeParam(data []byte) (*ParamDef, error) {
	p := &ParamDef{}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldParamName:
			return consumeString(typ, b, &p.Name)
		case fieldParamType:
			return consumeMessage(typ, b, func(v []byte) error {
				s, err := decodeSig(v, 0)
				p.Type = s
				return at("type", err)
			})
		case fieldParamFlags:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			p.Flags = ParamFlags(v)
			return n, err
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	if p.Type == nil {
		return nil, at("type", errors.Newf("parameter %q has no type", p.Name))
	}
	return p, nil
}

func decodeProperty(data []byte) (*PropertyDef, error) {
	p := &PropertyDef{}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldPropertyName:
			return consumeString(typ, b, &p.Name)
		case fieldPropertyType:
			return consumeMessage(typ, b, func(v []byte) error {
				s, err := decodeSig(v, 0)
				p.Type = s
				return at("type", err)
			})
		case fieldPropertyFlags:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			p.Flags = PropertyFlags(v)
			return n, err
		case fieldPropertyAttributes:
			idx := len(p.Attributes)
			return consumeMessage(typ, b, func(v []byte) error {
				a, err := decodeAttribute(v)
				if err != nil {
					return at(fmt.Sprintf("attributes[%d]", idx), err)
				}
				p.Attributes = append(p.Attributes, a)
				return nil
			})
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, at("name", errors.New("property name is required"))
	}
	if p.Type == nil {
		return nil, at("type", errors.Newf("property %q has no type", p.Name))
	}
	return p, nil
}

func decodeSig(data []byte, depth int) (*TypeSig, error) {
	if depth > maxSigDepth {
		return nil, errors.Newf("signature nesting exceeds %d", maxSigDepth)
	}
	s := &TypeSig{}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSigKind:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			s.Kind = SigKind(v)
			return n, err
		case fieldSigRef:
			return consumeMessage(typ, b, func(v []byte) error {
				r, err := decodeRef(v)
				s.Ref = r
				return at("ref", err)
			})
		case fieldSigArgs:
			idx := len(s.Args)
			return consumeMessage(typ, b, func(v []byte) error {
				a, err := decodeSig(v, depth+1)
				if err != nil {
					return at(fmt.Sprintf("args[%d]", idx), err)
				}
				s.Args = append(s.Args, a)
				return nil
			})
		case fieldSigParam:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			if v > 1<<16 {
				return n, errors.Newf("generic parameter index %d out of range", v)
			}
			s.Param = int(v)
			return n, err
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	return s, validateSig(s)
}

func validateSig(s *TypeSig) error {
	switch s.Kind {
	case SigNamed:
		if s.Ref.Name == "" {
			return errors.New("named signature without a type reference")
		}
	case SigGeneric:
		if s.Ref.Name == "" {
			return errors.New("generic signature without a type reference")
		}
		if len(s.Args) == 0 {
			return errors.New("generic signature without type arguments")
		}
	case SigArray, SigPointer, SigByRef:
		if len(s.Args) != 1 {
			return errors.Newf("%s signature needs exactly one element, got %d", s.Kind, len(s.Args))
		}
	case SigGenericParam:
	default:
		return errors.Newf("unknown signature kind %d", s.Kind)
	}
	return nil
}

func decodeRef(data []byte) (TypeRef, error) {
	var r TypeRef
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldRefModule:
			return consumeString(typ, b, &r.Module)
		case fieldRefName:
			return consumeString(typ, b, &r.Name)
		}
		return -1, nil
	})
	return r, err
}

func decodeAttribute(data []byte) (*Attribute, error) {
	a := &Attribute{}
	err := walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldAttrType:
			return consumeMessage(typ, b, func(v []byte) error {
				r, err := decodeRef(v)
				a.Type = r
				return at("type", err)
			})
		case fieldAttrArgs:
			var s string
			n, err := consumeString(typ, b, &s)
			if err == nil {
				a.Args = append(a.Args, s)
			}
			return n, at("args", err)
		case fieldAttrNamed:
			return consumeMessage(typ, b, func(v []byte) error {
				var na NamedArg
				err := walk(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case fieldNamedName:
						return consumeString(typ, b, &na.Name)
					case fieldNamedValue:
						return consumeString(typ, b, &na.Value)
					}
					return -1, nil
				})
				if err != nil {
					return at("named", err)
				}
				a.Named = append(a.Named, na)
				return nil
			})
		}
		return -1, nil
	})
	if err != nil {
		return nil, err
	}
	if a.Type.Name == "" {
		return nil, at("type", errors.New("attribute without a type reference"))
	}
	return a, nil
}

// walk iterates the fields of one message. visit returns how many bytes of
// the field value it consumed, or -1 to have the value skipped.
func walk(data []byte, visit func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		m, err := visit(num, typ, data)
		if err != nil {
			return err
		}
		if m < 0 {
			m = protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		data = data[m:]
	}
	return nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, errors.Newf("expected length-delimited field, got wire type %d", typ)
	}
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, errors.Newf("expected varint field, got wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = v
	return n, nil
}

func consumeMessage(typ protowire.Type, b []byte, fn func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, errors.Newf("expected embedded message, got wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, fn(v)
}
