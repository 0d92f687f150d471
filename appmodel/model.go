// Package appmodel merges per-module capability sets and the proxy graph
// into the ApplicationModel consumed by code generators.
package appmodel

import (
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/capability"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/internal/util"
	"github.com/teranos/capgen/proxygraph"
)

// ApplicationModel is the terminal artifact of a run
type ApplicationModel struct {
	byID    map[string]*capability.Capability
	ordered []*capability.Capability
	graph   *proxygraph.Graph

	// Modules lists the scanned modules, sorted
	Modules []string
	// Skipped lists every member that produced no capability
	Skipped []capability.Skipped
}

// RuntimeExports are the names the client runtime exports. Proxy classes and
// capability functions must not take them.
var RuntimeExports = []string{
	"CapabilityError",
	"CapabilityRequest",
	"Channel",
	"Failure",
	"Handle",
	"MemberAccess",
	"MemberRequest",
	"ProxyObject",
	"connect",
	"invokeCapability",
	"invokeMember",
	"registerProxy",
}

// Assemble merges sets and graph. Capability identifiers form one flat
// namespace: an id declared by two modules is errors.ErrDuplicateCapability.
// Capabilities sharing a method name get distinct export names; a proxy
// class name that clashes with another class, a capability export name or
// a runtime export is errors.ErrProxyNameCollision. The result does not
// depend on the order of sets.
func Assemble(sets []*capability.Set, graph *proxygraph.Graph) (*ApplicationModel, error) {
	m := &ApplicationModel{
		byID:  make(map[string]*capability.Capability),
		graph: graph,
	}

	sorted := make([]*capability.Set, len(sets))
	copy(sorted, sets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Module < sorted[j].Module })

	for _, set := range sorted {
		m.Modules = append(m.Modules, set.Module)
		m.Skipped = append(m.Skipped, set.Skipped...)
		for _, c := range set.Capabilities {
			if prev, ok := m.byID[c.ID]; ok {
				err := errors.Newf("capability %s is declared by module %s (%s) and by module %s (%s)",
					c.ID, prev.Module, prev.Source, c.Module, c.Source)
				err = errors.Mark(err, errors.ErrDuplicateCapability)
				return nil, errors.WithHint(err, "capability ids are global; change the namespace or the verb of one declaration")
			}
			cp := *c
			m.byID[c.ID] = &cp
			m.ordered = append(m.ordered, &cp)
		}
	}
	sort.Slice(m.ordered, func(i, j int) bool { return m.ordered[i].ID < m.ordered[j].ID })

	if err := m.checkTypes(); err != nil {
		return nil, err
	}
	reserved, err := m.assignNames()
	if err != nil {
		return nil, err
	}
	if err := proxygraph.CheckNames(graph, reserved); err != nil {
		return nil, err
	}
	return m, nil
}

// checkTypes verifies every Named type a capability mentions has a proxy
func (m *ApplicationModel) checkTypes() error {
	for _, c := range m.ordered {
		refs := append(c.Constraint.NamedTypes(), c.Return.NamedTypes()...)
		for _, p := range c.Parameters {
			refs = append(refs, p.Type.NamedTypes()...)
		}
		for _, r := range refs {
			if _, ok := m.graph.Lookup(r.TypeID); !ok {
				return errors.AssertionFailedf("capability %s refers to type %s outside the proxy graph", c.ID, r.TypeID)
			}
		}
	}
	return nil
}

// assignNames gives every capability a unique export name, the name of
// its free function in the generated client. MethodName stays the member
// name used when the capability is mounted on its receiver class.
//
// Capabilities that share a method name are told apart in two steps.
// Distinct verbs get a qualified export name: the verb's type prefix first
// (context properties), then the namespace when that is not enough.
// Versions of one verb share a name: the highest version keeps it and older
// versions get a "V<version>" suffix on both names.
func (m *ApplicationModel) assignNames() (map[string]string, error) {
	groups := make(map[string][]*capability.Capability)
	var names []string
	for _, c := range m.ordered {
		c.ExportName = c.MethodName
		if _, ok := groups[c.MethodName]; !ok {
			names = append(names, c.MethodName)
		}
		groups[c.MethodName] = append(groups[c.MethodName], c)
	}
	sort.Strings(names)

	for _, name := range names {
		group := groups[name]
		if len(group) < 2 {
			continue
		}
		families := make(map[string][]*capability.Capability)
		var keys []string
		for _, c := range group {
			key := c.Namespace + "/" + c.Verb
			if _, ok := families[key]; !ok {
				keys = append(keys, key)
			}
			families[key] = append(families[key], c)
		}
		sort.Strings(keys)

		if len(keys) > 1 {
			qualify(name, keys, families)
		}
		for _, key := range keys {
			family := families[key]
			latest := family[0]
			for _, c := range family[1:] {
				if c.Version > latest.Version {
					latest = c
				}
			}
			for _, c := range family {
				if c != latest {
					suffix := "V" + strconv.Itoa(c.Version)
					c.MethodName += suffix
					c.ExportName += suffix
				}
			}
		}
	}

	reserved := make(map[string]string, len(m.ordered)+len(RuntimeExports))
	for _, name := range RuntimeExports {
		reserved[name] = "the client runtime"
	}
	for _, c := range m.ordered {
		source := "capability " + c.ID
		if prev, ok := reserved[c.ExportName]; ok {
			err := errors.Newf("generated name %q is claimed by both %s and %s", c.ExportName, prev, source)
			err = errors.Mark(err, errors.ErrProxyNameCollision)
			return nil, errors.WithHint(err, "declare a distinct verb with the export attribute")
		}
		reserved[c.ExportName] = source
	}
	return reserved, nil
}

// qualify sets export names for verbs that share the method name. families
// maps "namespace/verb" to its capabilities; keys is sorted.
func qualify(name string, keys []string, families map[string][]*capability.Capability) {
	byPrefix := make(map[string]string, len(keys))
	unique := true
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		c := families[key][0]
		q := util.LowerCamel(util.ToPascalCase(verbPrefix(c.Verb)) + util.UpperFirst(name))
		if seen[q] {
			unique = false
		}
		seen[q] = true
		byPrefix[key] = q
	}
	for _, key := range keys {
		q := byPrefix[key]
		if !unique {
			c := families[key][0]
			q = util.LowerCamel(util.ToPascalCase(c.Namespace) + util.ToPascalCase(verbPrefix(c.Verb)) + util.UpperFirst(name))
		}
		for _, c := range families[key] {
			c.ExportName = q
		}
	}
}

// verbPrefix returns the qualifier of a dotted verb: "Context.name" -> "Context"
func verbPrefix(verb string) string {
	if i := strings.LastIndexByte(verb, '.'); i >= 0 {
		return verb[:i]
	}
	return ""
}

// Ordered returns the capabilities sorted by id
func (m *ApplicationModel) Ordered() []*capability.Capability {
	out := make([]*capability.Capability, len(m.ordered))
	copy(out, m.ordered)
	return out
}

// Capability returns the capability with the given id
func (m *ApplicationModel) Capability(id string) (*capability.Capability, bool) {
	c, ok := m.byID[id]
	return c, ok
}

// Len returns the number of capabilities
func (m *ApplicationModel) Len() int { return len(m.ordered) }

// ProxyTypes returns the proxy types sorted by class name
func (m *ApplicationModel) ProxyTypes() []*proxygraph.ProxyType {
	return m.graph.Types()
}

// Proxy returns the proxy type for a Named type id
func (m *ApplicationModel) Proxy(typeID string) (*proxygraph.ProxyType, bool) {
	return m.graph.Lookup(typeID)
}

// Graph returns the proxy graph
func (m *ApplicationModel) Graph() *proxygraph.Graph { return m.graph }

// Roots returns base plus every Named type the capabilities of sets are
// invoked against, return or accept. These are the proxy graph roots of a run.
func Roots(base []ats.Type, sets []*capability.Set) []ats.Type {
	roots := append([]ats.Type{}, base...)
	for _, set := range sets {
		for _, c := range set.Capabilities {
			roots = append(roots, c.Constraint.NamedTypes()...)
			roots = append(roots, c.Return.NamedTypes()...)
			for _, p := range c.Parameters {
				roots = append(roots, p.Type.NamedTypes()...)
			}
		}
	}
	return roots
}
