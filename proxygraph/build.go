package proxygraph

import (
	"sort"

	"go.uber.org/zap"

	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/internal/util"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/metadata"
)

// Options configures graph building
type Options struct {
	Logger *zap.SugaredLogger
}

type builder struct {
	tm     *ats.TypeMap
	reader *metadata.Reader
	logger *zap.SugaredLogger
	graph  *Graph
	queue  []ats.Type
}

// Build walks the types reachable from roots. Every Named type reached
// through a property, a method return or a method parameter gets one
// ProxyType; a type already in the graph is never visited again, so
// cycles terminate. Members whose types cannot cross the boundary are
// dropped from their proxy.
func Build(roots []ats.Type, tm *ats.TypeMap, opts Options) (*Graph, error) {
	b := &builder{
		tm:     tm,
		reader: tm.Reader(),
		logger: logger.OrComponent(opts.Logger, "proxygraph"),
		graph:  &Graph{byID: make(map[string]*ProxyType)},
	}

	// Roots are visited in a fixed order so discovery order is stable
	sorted := make([]ats.Type, 0, len(roots))
	for _, r := range roots {
		sorted = append(sorted, r.NamedTypes()...)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TypeID < sorted[j].TypeID })
	b.queue = append(b.queue, sorted...)

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		if _, ok := b.graph.byID[next.TypeID]; ok {
			continue
		}
		if err := b.visit(next); err != nil {
			return nil, err
		}
	}

	b.logger.Debugw("Built proxy graph",
		logger.FieldCount, b.graph.Len(),
		"dropped", len(b.graph.Dropped))
	return b.graph, nil
}

func (b *builder) enqueue(t ats.Type) {
	for _, n := range t.NamedTypes() {
		if _, ok := b.graph.byID[n.TypeID]; !ok {
			b.queue = append(b.queue, n)
		}
	}
}

func (b *builder) drop(p *ProxyType, member, reason string) {
	b.graph.Dropped = append(b.graph.Dropped, Dropped{TypeID: p.TypeID(), Member: member, Reason: reason})
	b.logger.Debugw("Dropping proxy member",
		logger.FieldType, p.TypeID(),
		logger.FieldMember, member,
		logger.FieldReason, reason)
}

func (b *builder) visit(t ats.Type) error {
	if t.Sig == nil {
		return errors.AssertionFailedf("named type %s has no signature", t.TypeID)
	}
	from := t.Sig.Ref.Module
	typ, err := b.reader.Resolve(from, t.Sig)
	if err != nil {
		return err
	}

	p := &ProxyType{
		ClassName: ClassName(b.reader, typ),
		Type:      t,
		FullName:  typ.FullName(),
		Module:    typ.Module.Name(),
	}
	// Registered before members are walked so self references resolve to p
	b.graph.byID[t.TypeID] = p
	b.graph.visited = append(b.graph.visited, p)

	for _, pd := range typ.Properties() {
		if !pd.Readable() || pd.IsStatic() {
			continue
		}
		mt, err := b.tm.Map(from, pd.Type)
		if err != nil {
			return errors.Wrapf(err, "property %s.%s", typ.FullName(), pd.Name)
		}
		if !mt.Representable() {
			b.drop(p, pd.Name, "unrepresentable type "+mt.String())
			continue
		}
		p.Properties = append(p.Properties, &Property{
			Name:       util.LowerCamel(pd.Name),
			MemberName: pd.Name,
			Type:       mt,
			Writable:   pd.Writable(),
		})
		b.enqueue(mt)
	}

	for _, md := range typ.Methods() {
		if !md.IsPublic() || md.IsStatic() {
			continue
		}
		m, reason, err := b.method(from, md)
		if err != nil {
			return errors.Wrapf(err, "method %s.%s", typ.FullName(), md.Name)
		}
		if m == nil {
			b.drop(p, md.Name, reason)
			continue
		}
		p.Methods = append(p.Methods, m)
		b.enqueue(m.Return)
		for _, param := range m.Parameters {
			b.enqueue(param.Type)
		}
	}

	sort.SliceStable(p.Properties, func(i, j int) bool { return p.Properties[i].Name < p.Properties[j].Name })
	sort.SliceStable(p.Methods, func(i, j int) bool {
		if p.Methods[i].Name != p.Methods[j].Name {
			return p.Methods[i].Name < p.Methods[j].Name
		}
		return len(p.Methods[i].Parameters) < len(p.Methods[j].Parameters)
	})
	p.Methods = b.dedupe(p)
	return nil
}

// method maps one instance method, returning a reason when it must be dropped
func (b *builder) method(from string, md *metadata.MethodDef) (*Method, string, error) {
	ret, err := b.tm.Map(from, md.Return)
	if err != nil {
		return nil, "", err
	}
	if !ret.Representable() {
		return nil, "unrepresentable return type " + ret.String(), nil
	}

	mapped := make([]ats.Type, len(md.Params))
	optional := make([]bool, len(md.Params))
	for i, pd := range md.Params {
		if mapped[i], err = b.tm.Map(from, pd.Type); err != nil {
			return nil, "", err
		}
		optional[i] = pd.Optional()
	}
	n := ats.TrimTrailing(mapped, optional)

	m := &Method{
		Name:       util.LowerCamel(md.Name),
		MemberName: md.Name,
		Return:     ret,
	}
	for i, pd := range md.Params[:n] {
		if !mapped[i].Representable() {
			return nil, "parameter " + pd.Name + " has unrepresentable type " + mapped[i].String(), nil
		}
		m.Parameters = append(m.Parameters, Parameter{
			Name:     pd.Name,
			Type:     mapped[i],
			Optional: pd.Optional() || mapped[i].Optional,
		})
	}
	return m, "", nil
}

// dedupe keeps the overload with the fewest parameters when several
// methods share a client name, and drops methods named like a property.
// Methods must already be sorted.
func (b *builder) dedupe(p *ProxyType) []*Method {
	props := make(map[string]bool, len(p.Properties))
	for _, prop := range p.Properties {
		props[prop.Name] = true
	}
	out := p.Methods[:0]
	for _, m := range p.Methods {
		if props[m.Name] {
			b.drop(p, m.MemberName, "shadowed by property "+m.Name)
			continue
		}
		if len(out) > 0 && out[len(out)-1].Name == m.Name {
			b.drop(p, m.MemberName, "overload of "+m.Name)
			continue
		}
		out = append(out, m)
	}
	return out
}
