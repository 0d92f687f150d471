// Package proxygraph discovers the host-side types a client must be able to
// hold a handle to, starting from one or more roots and following exposed
// members. Each distinct type becomes exactly one ProxyType.
package proxygraph

import (
	"sort"
	"strings"

	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/metadata"
)

// Parameter is a parameter of a proxy method
type Parameter struct {
	Name     string   `json:"name"`
	Type     ats.Type `json:"-"`
	Optional bool     `json:"isOptional"`
}

// Property is a readable property exposed on a proxy
type Property struct {
	Name       string   `json:"name"`       // client-side name
	MemberName string   `json:"memberName"` // host-side name sent over the channel
	Type       ats.Type `json:"-"`
	Writable   bool     `json:"writable"`
}

// Method is an instance method exposed on a proxy
type Method struct {
	Name       string      `json:"name"`
	MemberName string      `json:"memberName"`
	Parameters []Parameter `json:"parameters"`
	Return     ats.Type    `json:"-"`
}

// ProxyType is a node of the graph
type ProxyType struct {
	ClassName string   `json:"className"`
	Type      ats.Type `json:"-"`
	// FullName is the host-side type name the proxy stands for
	FullName string `json:"fullName"`
	Module   string `json:"module"`

	Properties []*Property `json:"properties"`
	Methods    []*Method   `json:"methods"`
}

// TypeID returns the wire type identifier the proxy represents
func (p *ProxyType) TypeID() string { return p.Type.TypeID }

// Dropped records a member excluded from a proxy
type Dropped struct {
	TypeID string `json:"typeId"`
	Member string `json:"member"`
	Reason string `json:"reason"`
}

// Graph is the set of proxy types reachable from the roots
type Graph struct {
	byID    map[string]*ProxyType
	visited []*ProxyType // in discovery order
	Dropped []Dropped
}

// Lookup returns the proxy for a Named type id
func (g *Graph) Lookup(typeID string) (*ProxyType, bool) {
	p, ok := g.byID[typeID]
	return p, ok
}

// Len returns the number of proxy types
func (g *Graph) Len() int { return len(g.visited) }

// Types returns the proxy types sorted by class name, then type id
func (g *Graph) Types() []*ProxyType {
	out := make([]*ProxyType, len(g.visited))
	copy(out, g.visited)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassName != out[j].ClassName {
			return out[i].ClassName < out[j].ClassName
		}
		return out[i].TypeID() < out[j].TypeID()
	})
	return out
}

// CheckNames rejects class names that collide with each other or with a
// reserved name. reserved maps an exported name to a description of the
// source that claims it.
func CheckNames(g *Graph, reserved map[string]string) error {
	claimed := make(map[string]string, len(reserved)+g.Len())
	for name, source := range reserved {
		claimed[name] = source
	}
	for _, p := range g.Types() {
		source := "proxy type " + p.TypeID()
		if prev, ok := claimed[p.ClassName]; ok {
			err := errors.Newf("generated name %q is claimed by both %s and %s", p.ClassName, prev, source)
			err = errors.Mark(err, errors.ErrProxyNameCollision)
			return errors.WithHint(err, "rename one of the host types or methods")
		}
		claimed[p.ClassName] = source
	}
	return nil
}

// ClassName derives the client class name of a resolved type: the interface
// "I" prefix is removed and generic instantiations are spelled
// <Base>Of<Arg1>And<Arg2>.
func ClassName(reader *metadata.Reader, t *metadata.Type) string {
	name := t.Def.BaseName()
	if t.Def.IsInterface() {
		name = stripInterfacePrefix(name)
	}
	if len(t.Args) == 0 {
		return name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = argName(reader, t.Module.Name(), a)
	}
	return name + "Of" + strings.Join(args, "And")
}

func argName(reader *metadata.Reader, from string, sig *metadata.TypeSig) string {
	switch sig.Kind {
	case metadata.SigNamed, metadata.SigGeneric:
		if t, err := reader.Resolve(from, sig); err == nil {
			return ClassName(reader, t)
		}
		name := sig.Ref.Name
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		if i := strings.IndexByte(name, '`'); i >= 0 {
			name = name[:i]
		}
		return name
	case metadata.SigArray:
		return argName(reader, from, sig.Elem()) + "Array"
	case metadata.SigGenericParam:
		return "T"
	}
	return "Unknown"
}

func stripInterfacePrefix(name string) string {
	if len(name) > 1 && name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z' {
		return name[1:]
	}
	return name
}
