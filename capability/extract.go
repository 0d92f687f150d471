package capability

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/internal/util"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/metadata"
)

// ContextParameter is the name of the synthetic parameter of context-property capabilities
const ContextParameter = "context"

// Options configures extraction
type Options struct {
	Logger *zap.SugaredLogger
}

type extractor struct {
	module *metadata.Module
	tm     *ats.TypeMap
	policy Policy
	logger *zap.SugaredLogger
	set    *Set
	seen   map[string]string // capability id -> source
}

// Extract produces the capabilities of one module. Members that cannot be
// exposed are recorded in Set.Skipped and logged as warnings. A type that
// fails to resolve, a duplicate identifier or an invalid declared version
// fails the extraction.
func Extract(module *metadata.Module, tm *ats.TypeMap, policy Policy, opts Options) (*Set, error) {
	log := logger.OrComponent(opts.Logger, "capability").With(logger.FieldModule, module.Name())
	x := &extractor{
		module: module,
		tm:     tm,
		policy: policy,
		logger: log,
		set:    &Set{Module: module.Name(), Namespace: policy.Namespace(module)},
		seen:   make(map[string]string),
	}

	for _, def := range module.Types() {
		if !def.IsPublic() || len(def.GenericParams) > 0 {
			continue
		}
		typ, err := tm.Reader().Resolve(module.Name(), metadata.Named(module.Name(), def.FullName()))
		if err != nil {
			return nil, err
		}
		for _, md := range typ.Methods() {
			if err := x.method(def, md); err != nil {
				return nil, err
			}
		}
		if policy.ContextMarker != "" {
			if a := findAttribute(def.Attributes, policy.ContextMarker); a != nil {
				if err := x.context(typ, a); err != nil {
					return nil, err
				}
			}
		}
	}

	x.set.sort()
	log.Debugw("Extracted capabilities",
		logger.FieldNamespace, x.set.Namespace,
		logger.FieldCount, len(x.set.Capabilities),
		"skipped", len(x.set.Skipped))
	return x.set, nil
}

// method applies the builder-extension rule
func (x *extractor) method(def *metadata.TypeDef, md *metadata.MethodDef) error {
	if !md.IsPublic() || !md.IsStatic() || len(md.Params) == 0 {
		return nil
	}
	mod := x.module.Name()
	source := def.FullName() + "." + md.Name

	receiver, err := x.tm.Map(mod, md.Params[0].Type)
	if err != nil {
		return errors.Wrapf(err, "method %s", source)
	}
	if !x.tm.IsBuilderFamily(receiver) {
		return nil
	}

	params := md.Params[1:]
	mapped := make([]ats.Type, len(params))
	for i, p := range params {
		if mapped[i], err = x.tm.Map(mod, p.Type); err != nil {
			return errors.Wrapf(err, "method %s parameter %s", source, p.Name)
		}
	}

	optional := make([]bool, len(params))
	for i, p := range params {
		optional[i] = p.Optional()
	}
	n := ats.TrimTrailing(mapped, optional)
	for _, p := range params[n:] {
		x.logger.Debugw("Dropping trailing parameter",
			logger.FieldMethod, source,
			"parameter", p.Name)
	}
	params, mapped = params[:n], mapped[:n]

	for i, p := range params {
		if !mapped[i].Representable() {
			x.skip(source, errors.ErrUnrepresentableParameter,
				"parameter "+p.Name+" has unrepresentable type "+mapped[i].String())
			return nil
		}
	}

	ret, err := x.tm.Map(mod, md.Return)
	if err != nil {
		return errors.Wrapf(err, "method %s return type", source)
	}
	if !ret.Representable() {
		x.skip(source, errors.ErrUnrepresentableParameter, "unrepresentable return type "+ret.String())
		return nil
	}

	verb := x.policy.Verb(md.Name)
	version := 1
	if x.policy.ExportMarker != "" {
		if a := findAttribute(md.Attributes, x.policy.ExportMarker); a != nil {
			if v, ok := a.Arg(0); ok && v != "" {
				verb = v
			}
			if v, ok := a.NamedValue("Version"); ok {
				version, err = strconv.Atoi(v)
				if err != nil || version < 1 {
					return errors.WithHint(
						errors.Mark(errors.Newf("method %s in module %s declares invalid capability version %q", source, mod, v), errors.ErrMalformedModule),
						"capability versions are positive integers starting at 1")
				}
			}
		}
	}

	c := &Capability{
		Namespace:  x.set.Namespace,
		Verb:       verb,
		Version:    version,
		MethodName: verb,
		Module:     mod,
		Source:     source,
		Constraint: receiver,
		Return:     ret,
	}
	for i, p := range params {
		c.Parameters = append(c.Parameters, Parameter{
			Name:     p.Name,
			Type:     mapped[i],
			Optional: p.Optional() || mapped[i].Optional,
		})
	}
	return x.add(c)
}

// context applies the context-property rule. Each readable instance
// property becomes a capability whose MethodName is the lower-camel form of
// the property name (PortName becomes portName, not portname), so it reads
// like any other member of the generated client.
func (x *extractor) context(typ *metadata.Type, marker *metadata.Attribute) error {
	mod := x.module.Name()
	source := typ.FullName()

	if _, ok := x.tm.Reader().TryResolve(mod, marker.Type); !ok {
		x.skip(source, errors.ErrContextAttributeUnresolved, "context marker "+marker.Type.String()+" cannot be resolved")
		return nil
	}
	ns, ok := marker.Arg(0)
	if !ok || ns == "" {
		x.skip(source, errors.ErrContextAttributeUnresolved, "context marker declares no namespace")
		return nil
	}

	ctx, err := x.tm.Map(mod, typ.Sig())
	if err != nil {
		return errors.Wrapf(err, "context type %s", source)
	}
	if ctx.Kind != ats.Named {
		x.skip(source, errors.ErrContextAttributeUnresolved, "context type is "+ctx.String())
		return nil
	}

	for _, p := range typ.Properties() {
		if !p.Readable() || p.IsStatic() {
			continue
		}
		member := source + "." + p.Name
		ret, err := x.tm.Map(mod, p.Type)
		if err != nil {
			return errors.Wrapf(err, "property %s", member)
		}
		if !ret.Representable() {
			x.skip(member, errors.ErrUnrepresentableParameter, "unrepresentable property type "+ret.String())
			continue
		}

		name := util.LowerCamel(p.Name)
		verb := typ.Def.BaseName() + "." + name
		err = x.add(&Capability{
			Namespace:         ns,
			Verb:              verb,
			Version:           1,
			MethodName:        name,
			Module:            mod,
			Source:            member,
			Constraint:        ctx,
			Return:            ret,
			Parameters:        []Parameter{{Name: ContextParameter, Type: ctx}},
			IsContextProperty: true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) add(c *Capability) error {
	c.ID = FormatID(c.Namespace, c.Verb, c.Version)
	if prev, ok := x.seen[c.ID]; ok {
		err := errors.Newf("capability %s declared twice in module %s: by %s and by %s", c.ID, c.Module, prev, c.Source)
		err = errors.Mark(err, errors.ErrDuplicateCapability)
		return errors.WithHint(err, "bump the version of the changed signature or rename one of the methods")
	}
	x.seen[c.ID] = c.Source
	x.set.Capabilities = append(x.set.Capabilities, c)
	x.logger.Debugw("Found capability",
		logger.FieldCapabilityID, c.ID,
		logger.FieldMethod, c.Source)
	return nil
}

// skip records a degradation
func (x *extractor) skip(member string, kind error, reason string) {
	s := Skipped{
		Module: x.module.Name(),
		Member: member,
		Kind:   errors.Kind(kind),
		Reason: reason,
	}
	x.set.Skipped = append(x.set.Skipped, s)
	x.logger.Warnw("Skipping capability",
		logger.FieldMember, member,
		logger.FieldErrorKind, s.Kind,
		logger.FieldReason, reason)
}
