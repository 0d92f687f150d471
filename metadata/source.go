package metadata

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/capgen/errors"
)

// Source is the YAML authoring form of a module. `capgen pack` compiles it
// into the binary module format.
//
//	name: Aspire.Test
//	version: 1.0.0
//	aliases:
//	  Builder: Aspire.Hosting::Aspire.Hosting.ApplicationModel.IResourceBuilder
//	attributes:
//	  - type: Aspire.Hosting::Aspire.Hosting.CapabilityNamespaceAttribute
//	    args: [aspire.test]
//	types:
//	  - name: Aspire.Test.TestRedisExtensions
//	    static: true
//	    methods:
//	      - name: AddTestRedis
//	        extension: true
//	        returns: Builder<Aspire.Test.TestRedisResource>
//	        params:
//	          - {name: builder, type: Builder<Aspire.Test.TestRedisResource>}
//	          - {name: name, type: string}
//	          - {name: port, type: int?, optional: true}
type Source struct {
	Name       string            `yaml:"name"`
	Version    string            `yaml:"version,omitempty"`
	References []string          `yaml:"references,omitempty"`
	Aliases    map[string]string `yaml:"aliases,omitempty"`
	Attributes []SourceAttribute `yaml:"attributes,omitempty"`
	Types      []SourceType      `yaml:"types"`
}

// SourceAttribute is a custom attribute. Type is a type expression.
type SourceAttribute struct {
	Type  string            `yaml:"type"`
	Args  []string          `yaml:"args,omitempty"`
	Named map[string]string `yaml:"named,omitempty"`
}

// SourceType declares a type. Name is the full name; the namespace is
// everything before the last dot.
type SourceType struct {
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind,omitempty"` // class (default), interface, struct, enum, delegate
	Public     *bool             `yaml:"public,omitempty"`
	Static     bool              `yaml:"static,omitempty"`
	Abstract   bool              `yaml:"abstract,omitempty"`
	Generics   []string          `yaml:"generics,omitempty"`
	Attributes []SourceAttribute `yaml:"attributes,omitempty"`
	Properties []SourceProperty  `yaml:"properties,omitempty"`
	Methods    []SourceMethod    `yaml:"methods,omitempty"`
}

// SourceProperty declares a property. Properties are readable unless get is false.
type SourceProperty struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Get        *bool             `yaml:"get,omitempty"`
	Set        bool              `yaml:"set,omitempty"`
	Static     bool              `yaml:"static,omitempty"`
	Attributes []SourceAttribute `yaml:"attributes,omitempty"`
}

// SourceMethod declares a method. Extension methods are implicitly static.
type SourceMethod struct {
	Name       string            `yaml:"name"`
	Public     *bool             `yaml:"public,omitempty"`
	Static     bool              `yaml:"static,omitempty"`
	Extension  bool              `yaml:"extension,omitempty"`
	Returns    string            `yaml:"returns,omitempty"`
	Params     []SourceParam     `yaml:"params,omitempty"`
	Attributes []SourceAttribute `yaml:"attributes,omitempty"`
}

// SourceParam declares a method parameter
type SourceParam struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional,omitempty"`
}

var kindFlags = map[string]TypeFlags{
	"":          0,
	"class":     0,
	"interface": TypeInterface | TypeAbstract,
	"struct":    TypeValueType | TypeSealed,
	"enum":      TypeEnum | TypeValueType | TypeSealed,
	"delegate":  TypeDelegate | TypeSealed,
}

// ParseSource compiles a YAML module source into a module definition.
// file only labels errors, which are errors.ErrMalformedModule with the
// path of the offending entry.
func ParseSource(file string, data []byte) (*ModuleDef, error) {
	var src Source
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&src); err != nil {
		return nil, errors.NewMalformedModule(file, "source", err)
	}
	return src.Compile(file)
}

// Compile converts the source into a module definition
func (s *Source) Compile(file string) (*ModuleDef, error) {
	c := &compiler{file: file, src: s, refs: make(map[string]bool)}
	return c.compile()
}

type compiler struct {
	file string
	src  *Source
	refs map[string]bool
}

func (c *compiler) fail(path string, err error) error {
	return errors.NewMalformedModule(c.file, path, err)
}

func (c *compiler) compile() (*ModuleDef, error) {
	if c.src.Name == "" {
		return nil, c.fail("name", errors.New("module name is required"))
	}
	m := &ModuleDef{Name: c.src.Name, Version: c.src.Version}
	if m.Version == "" {
		m.Version = "1.0.0"
	}

	attrs, err := c.attributes("attributes", c.src.Attributes, nil)
	if err != nil {
		return nil, err
	}
	m.Attributes = attrs

	seen := make(map[string]bool)
	for i, st := range c.src.Types {
		path := fmt.Sprintf("types[%d]", i)
		t, err := c.typeDef(path, st)
		if err != nil {
			return nil, err
		}
		if seen[t.FullName()] {
			return nil, c.fail(path, errors.Newf("duplicate type %s", t.FullName()))
		}
		seen[t.FullName()] = true
		m.Types = append(m.Types, t)
	}

	for _, r := range c.src.References {
		c.refs[r] = true
	}
	delete(c.refs, m.Name)
	delete(c.refs, SystemModule)
	for r := range c.refs {
		m.References = append(m.References, r)
	}
	sort.Strings(m.References)
	return m, nil
}

func (c *compiler) typeDef(path string, st SourceType) (*TypeDef, error) {
	if st.Name == "" {
		return nil, c.fail(path+".name", errors.New("type name is required"))
	}
	flags, ok := kindFlags[st.Kind]
	if !ok {
		return nil, c.fail(path+".kind", errors.Newf("unknown kind %q", st.Kind))
	}
	if st.Public == nil || *st.Public {
		flags |= TypePublic
	}
	if st.Static {
		flags |= TypeStatic | TypeAbstract | TypeSealed
	}
	if st.Abstract {
		flags |= TypeAbstract
	}

	t := &TypeDef{Name: st.Name, Flags: flags, GenericParams: st.Generics}
	if i := strings.LastIndexByte(st.Name, '.'); i >= 0 {
		t.Namespace, t.Name = st.Name[:i], st.Name[i+1:]
	}
	t.Name = ArityName(t.Name, len(st.Generics))

	var err error
	if t.Attributes, err = c.attributes(path+".attributes", st.Attributes, st.Generics); err != nil {
		return nil, err
	}

	for i, sp := range st.Properties {
		ppath := fmt.Sprintf("%s.properties[%d]", path, i)
		if sp.Name == "" {
			return nil, c.fail(ppath+".name", errors.New("property name is required"))
		}
		sig, err := c.typeExpr(ppath+".type", sp.Type, st.Generics)
		if err != nil {
			return nil, err
		}
		p := &PropertyDef{Name: sp.Name, Type: sig}
		if sp.Get == nil || *sp.Get {
			p.Flags |= PropertyGetter
		}
		if sp.Set {
			p.Flags |= PropertySetter
		}
		if sp.Static {
			p.Flags |= PropertyStatic
		}
		if p.Attributes, err = c.attributes(ppath+".attributes", sp.Attributes, st.Generics); err != nil {
			return nil, err
		}
		t.Properties = append(t.Properties, p)
	}

	for i, sm := range st.Methods {
		mpath := fmt.Sprintf("%s.methods[%d]", path, i)
		m, err := c.method(mpath, sm, st.Generics)
		if err != nil {
			return nil, err
		}
		t.Methods = append(t.Methods, m)
	}
	return t, nil
}

func (c *compiler) method(path string, sm SourceMethod, generics []string) (*MethodDef, error) {
	if sm.Name == "" {
		return nil, c.fail(path+".name", errors.New("method name is required"))
	}
	m := &MethodDef{Name: sm.Name}
	if sm.Public == nil || *sm.Public {
		m.Flags |= MethodPublic
	}
	if sm.Static || sm.Extension {
		m.Flags |= MethodStatic
	}
	if sm.Extension {
		m.Flags |= MethodExtension
		if len(sm.Params) == 0 {
			return nil, c.fail(path+".params", errors.New("extension method needs a receiver parameter"))
		}
	}

	ret := sm.Returns
	if ret == "" {
		ret = "void"
	}
	var err error
	if m.Return, err = c.typeExpr(path+".returns", ret, generics); err != nil {
		return nil, err
	}

	for i, sp := range sm.Params {
		ppath := fmt.Sprintf("%s.params[%d]", path, i)
		if sp.Name == "" {
			return nil, c.fail(ppath+".name", errors.New("parameter name is required"))
		}
		sig, err := c.typeExpr(ppath+".type", sp.Type, generics)
		if err != nil {
			return nil, err
		}
		p := &ParamDef{Name: sp.Name, Type: sig}
		if sp.Optional {
			p.Flags |= ParamOptional
		}
		m.Params = append(m.Params, p)
	}

	if m.Attributes, err = c.attributes(path+".attributes", sm.Attributes, generics); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *compiler) attributes(path string, in []SourceAttribute, generics []string) ([]*Attribute, error) {
	var out []*Attribute
	for i, sa := range in {
		apath := fmt.Sprintf("%s[%d]", path, i)
		sig, err := c.typeExpr(apath+".type", sa.Type, generics)
		if err != nil {
			return nil, err
		}
		if sig.Kind != SigNamed {
			return nil, c.fail(apath+".type", errors.Newf("attribute type must be a plain type name, got %s", sa.Type))
		}
		a := &Attribute{Type: sig.Ref, Args: sa.Args}
		names := make([]string, 0, len(sa.Named))
		for n := range sa.Named {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			a.Named = append(a.Named, NamedArg{Name: n, Value: sa.Named[n]})
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *compiler) typeExpr(path, expr string, generics []string) (*TypeSig, error) {
	if expr == "" {
		return nil, c.fail(path, errors.New("type is required"))
	}
	sig, err := ParseTypeExpr(expr, c.src.Aliases, generics)
	if err != nil {
		return nil, c.fail(path, err)
	}
	c.collectRefs(sig)
	return sig, nil
}

func (c *compiler) collectRefs(sig *TypeSig) {
	if sig.Ref.Module != "" {
		c.refs[sig.Ref.Module] = true
	}
	for _, a := range sig.Args {
		c.collectRefs(a)
	}
}
