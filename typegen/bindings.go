package typegen

import (
	"sort"
	"strings"

	"github.com/teranos/capgen/appmodel"
	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/capability"
	"github.com/teranos/capgen/internal/util"
	"github.com/teranos/capgen/proxygraph"
	tsutil "github.com/teranos/capgen/typegen/util"
)

// Param is a rendered parameter
type Param struct {
	Name string
	Type string
	// Optional parameters render as "name?: T"; an optional parameter
	// followed by a required one renders as "name: T | undefined" instead.
	Optional bool
}

// Decl renders the parameter declaration
func (p Param) Decl() string {
	if p.Optional {
		return p.Name + "?: " + p.Type
	}
	return p.Name + ": " + p.Type
}

// Binding is the rendered form of one capability
type Binding struct {
	ID         string
	Name       string // exported function name
	Member     string // name when mounted on the receiver class
	Source     string
	Receiver   string
	ReceiverID string // proxy type id when the receiver is a proxy, else ""
	Params     []Param
	Args       []string // the receiver first, then the parameters
	Result     string   // resolved value type of the returned promise
	Context    bool
}

// Signature renders the parameter list without the receiver
func (b Binding) Signature() string {
	return joinParams(b.Params)
}

// Property is the rendered form of a proxy property
type Property struct {
	Name       string
	MemberName string
	Type       string
	Setter     string // "" when read-only
}

// Method is the rendered form of a proxy method
type Method struct {
	Name       string
	MemberName string
	Params     []Param
	Args       []string
	Result     string
}

// Signature renders the parameter list
func (m Method) Signature() string {
	return joinParams(m.Params)
}

// Proxy is the rendered form of a proxy type
type Proxy struct {
	ClassName  string
	TypeID     string
	FullName   string
	Properties []Property
	Methods    []Method
}

// Render is the backend-neutral rendering of a model. Backends differ only
// in how they print it.
type Render struct {
	Bindings []Binding
	Proxies  []Proxy
	// Refs lists the proxy classes the bindings mention, sorted
	Refs []string
}

// NewRender spells every capability and proxy of m in TypeScript, in the
// model's deterministic order.
func NewRender(m *appmodel.ApplicationModel) *Render {
	conv := tsutil.TypeScript(func(typeID string) string {
		if p, ok := m.Proxy(typeID); ok {
			return p.ClassName
		}
		return "unknown"
	})
	r := &Render{}
	refs := make(map[string]bool)
	for _, c := range m.Ordered() {
		r.Bindings = append(r.Bindings, binding(c, conv))
		named := append(c.Constraint.NamedTypes(), c.Return.NamedTypes()...)
		for _, p := range c.Parameters {
			named = append(named, p.Type.NamedTypes()...)
		}
		for _, n := range named {
			refs[conv.Named(n.TypeID)] = true
		}
	}
	for name := range refs {
		r.Refs = append(r.Refs, name)
	}
	sort.Strings(r.Refs)
	for _, p := range m.ProxyTypes() {
		r.Proxies = append(r.Proxies, proxy(p, conv))
	}
	return r
}

// ProxyNames returns the class names in declaration order
func (r *Render) ProxyNames() []string {
	out := make([]string, len(r.Proxies))
	for i, p := range r.Proxies {
		out[i] = p.ClassName
	}
	return out
}

func binding(c *capability.Capability, conv *tsutil.TypeConverterConfig) Binding {
	export := c.ExportName
	if export == "" {
		export = c.MethodName
	}
	b := Binding{
		ID:       c.ID,
		Name:     tsutil.Identifier(export),
		Member:   tsutil.Identifier(c.MethodName),
		Source:   c.Source,
		Receiver: tsutil.ConvertType(c.Constraint, conv, true),
		Args:     []string{"this"},
		Result:   tsutil.ConvertType(c.Return, conv, false),
		Context:  c.IsContextProperty,
	}
	if c.Constraint.Kind == ats.Named {
		b.ReceiverID = c.Constraint.TypeID
	}
	if c.IsContextProperty {
		// The context parameter is the receiver itself
		return b
	}
	names := make([]string, len(c.Parameters))
	types := make([]ats.Type, len(c.Parameters))
	optional := make([]bool, len(c.Parameters))
	for i, p := range c.Parameters {
		names[i], types[i], optional[i] = p.Name, p.Type, p.Optional
	}
	b.Params = params(names, types, optional, conv)
	for _, p := range b.Params {
		b.Args = append(b.Args, p.Name)
	}
	return b
}

func proxy(p *proxygraph.ProxyType, conv *tsutil.TypeConverterConfig) Proxy {
	out := Proxy{ClassName: p.ClassName, TypeID: p.TypeID(), FullName: p.FullName}
	for _, prop := range p.Properties {
		rp := Property{
			Name:       member(prop.Name),
			MemberName: prop.MemberName,
			Type:       tsutil.ConvertType(prop.Type, conv, false),
		}
		if prop.Writable {
			rp.Setter = "set" + util.UpperFirst(rp.Name)
		}
		out.Properties = append(out.Properties, rp)
	}
	for _, m := range p.Methods {
		names := make([]string, len(m.Parameters))
		types := make([]ats.Type, len(m.Parameters))
		optional := make([]bool, len(m.Parameters))
		for i, mp := range m.Parameters {
			names[i], types[i], optional[i] = mp.Name, mp.Type, mp.Optional
		}
		rm := Method{
			Name:       member(m.Name),
			MemberName: m.MemberName,
			Params:     params(names, types, optional, conv),
			Result:     tsutil.ConvertType(m.Return, conv, false),
		}
		for _, mp := range rm.Params {
			rm.Args = append(rm.Args, mp.Name)
		}
		out.Methods = append(out.Methods, rm)
	}
	return out
}

// params spells a parameter list. Only a trailing run of optional
// parameters can use "?"; earlier optional ones accept undefined explicitly.
func params(names []string, types []ats.Type, optional []bool, conv *tsutil.TypeConverterConfig) []Param {
	out := make([]Param, len(names))
	trailing := true
	for i := len(names) - 1; i >= 0; i-- {
		p := Param{Name: tsutil.Identifier(names[i])}
		switch {
		case optional[i] && trailing:
			p.Optional = true
			p.Type = tsutil.ConvertType(types[i], conv, true)
		case optional[i]:
			p.Type = tsutil.ConvertType(types[i], conv, true) + " | undefined"
		default:
			trailing = false
			p.Type = tsutil.ConvertType(types[i], conv, false)
		}
		out[i] = p
	}
	return out
}

// Names every proxy object already carries
var baseMembers = map[string]bool{"handle": true, "toJSON": true, "invokeMember": true, "constructor": true}

func member(name string) string {
	name = tsutil.Identifier(name)
	if baseMembers[name] {
		return name + "_"
	}
	return name
}

func joinParams(ps []Param) string {
	decls := make([]string, len(ps))
	for i, p := range ps {
		decls[i] = p.Decl()
	}
	return strings.Join(decls, ", ")
}
