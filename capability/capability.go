// Package capability discovers the invocable operations an integration
// module contributes: builder extension methods and the properties of
// attribute-marked context types.
package capability

import (
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/internal/util"
	"github.com/teranos/capgen/metadata"
)

// Parameter is one positional argument of a capability
type Parameter struct {
	Name     string   `json:"name"`
	Type     ats.Type `json:"-"`
	Optional bool     `json:"isOptional"`
}

// TypeID returns the wire type identifier of the parameter
func (p Parameter) TypeID() string { return p.Type.ID() }

// Capability is one externally invocable operation
type Capability struct {
	ID         string `json:"capabilityId"`
	Namespace  string `json:"namespace"`
	Verb       string `json:"verb"`
	Version    int    `json:"version"`
	MethodName string `json:"methodName"`
	// ExportName is the client function name; set by the assembler, which
	// qualifies it when other capabilities share MethodName
	ExportName string `json:"exportName,omitempty"`

	// Module and Source locate the declaration, e.g. "Ns.Extensions.AddRedis"
	Module string `json:"module"`
	Source string `json:"source"`

	Constraint ats.Type    `json:"-"`
	Return     ats.Type    `json:"-"`
	Parameters []Parameter `json:"parameters"`

	IsContextProperty bool `json:"isContextProperty"`
}

// ConstraintTypeID returns the wire type the capability is invoked against
func (c *Capability) ConstraintTypeID() string { return c.Constraint.ID() }

// ReturnTypeID returns the wire type of the result
func (c *Capability) ReturnTypeID() string { return c.Return.ID() }

// FormatID renders a capability identifier
func FormatID(namespace, verb string, version int) string {
	return namespace + "/" + verb + "@" + strconv.Itoa(version)
}

// Skipped records a member that produced no capability
type Skipped struct {
	Module string `json:"module"`
	Member string `json:"member"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// Set is the extraction result for one module
type Set struct {
	Module       string        `json:"module"`
	Namespace    string        `json:"namespace"`
	Capabilities []*Capability `json:"capabilities"`
	Skipped      []Skipped     `json:"skipped,omitempty"`
}

func (s *Set) sort() {
	sort.Slice(s.Capabilities, func(i, j int) bool {
		return s.Capabilities[i].ID < s.Capabilities[j].ID
	})
}

// Policy decides identifiers. Every field is optional.
type Policy struct {
	// Namespaces overrides the namespace of a module by module name
	Namespaces map[string]string
	// NamespaceMarker is the full name of a module attribute whose first
	// argument declares the module's namespace
	NamespaceMarker string
	// ExportMarker is the full name of a method attribute whose first
	// argument overrides the verb and whose Version named argument
	// declares the version
	ExportMarker string
	// ContextMarker is the full name of the type attribute marking
	// context types; its first argument is the capability namespace
	ContextMarker string

	StripPrefixes []string
	StripSuffixes []string
}

// Namespace returns the logical namespace of a module: an explicit
// override, then the namespace marker attribute, then the lower-cased
// module name.
func (p Policy) Namespace(m *metadata.Module) string {
	if ns, ok := p.Namespaces[m.Name()]; ok && ns != "" {
		return ns
	}
	if p.NamespaceMarker != "" {
		if a := findAttribute(m.Attributes(), p.NamespaceMarker); a != nil {
			if ns, ok := a.Arg(0); ok && ns != "" {
				return ns
			}
		}
	}
	return strings.ToLower(m.Name())
}

// Verb derives a verb from a method name: the explicit-interface qualifier
// and the configured affixes are removed and the result is lower-camel.
func (p Policy) Verb(method string) string {
	if i := strings.LastIndexByte(method, '.'); i >= 0 {
		method = method[i+1:]
	}
	return util.LowerCamel(util.TrimAffixes(method, p.StripPrefixes, p.StripSuffixes))
}

func findAttribute(attrs []*metadata.Attribute, fullName string) *metadata.Attribute {
	for _, a := range attrs {
		if a.Type.Name == fullName {
			return a
		}
	}
	return nil
}
