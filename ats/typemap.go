package ats

import (
	"go.uber.org/zap"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/metadata"
)

// Options configures a TypeMap
type Options struct {
	// BuilderRoot is the full name of the application-builder root type in the core module
	BuilderRoot string
	// BuilderFamilies are full names of generic builder definitions in the core module
	BuilderFamilies []string
	Logger          *zap.SugaredLogger
}

// TypeMap is the authoritative classification of reflected types
type TypeMap struct {
	reader   *metadata.Reader
	core     string
	logger   *zap.SugaredLogger
	exact    map[string]Type
	rootID   string
	families map[string]bool
}

func sys(name string) string {
	return metadata.SystemModule + "/" + name
}

// exactTypes maps framework type ids to their wire types
var exactTypes = map[string]Type{
	sys("System.String"):                      primitive(String),
	sys("System.Char"):                        primitive(String),
	sys("System.Uri"):                         primitive(String),
	sys("System.Guid"):                        primitive(String),
	sys("System.DateTime"):                    primitive(String),
	sys("System.DateTimeOffset"):              primitive(String),
	sys("System.Boolean"):                     primitive(Boolean),
	sys("System.Byte"):                        primitive(Number),
	sys("System.SByte"):                       primitive(Number),
	sys("System.Int16"):                       primitive(Number),
	sys("System.UInt16"):                      primitive(Number),
	sys("System.Int32"):                       primitive(Number),
	sys("System.UInt32"):                      primitive(Number),
	sys("System.Int64"):                       primitive(Number),
	sys("System.UInt64"):                      primitive(Number),
	sys("System.Single"):                      primitive(Number),
	sys("System.Double"):                      primitive(Number),
	sys("System.Decimal"):                     primitive(Number),
	sys("System.TimeSpan"):                    primitive(Number),
	sys("System.Void"):                        primitive(Void),
	sys("System.Threading.Tasks.Task"):        primitive(Void),
	sys("System.Object"):                      unrepresentable("untyped object"),
	sys("System.Threading.CancellationToken"): {Kind: Unrepresentable, Control: true, Reason: "control type"},
}

// generic definitions mapped structurally
var (
	sequenceDefs = map[string]bool{
		sys("System.Collections.Generic.IEnumerable`1"):   true,
		sys("System.Collections.Generic.ICollection`1"):   true,
		sys("System.Collections.Generic.IList`1"):         true,
		sys("System.Collections.Generic.IReadOnlyList`1"): true,
		sys("System.Collections.Generic.List`1"):          true,
	}
	nullableDef = sys("System.Nullable`1")
	taskDef     = sys("System.Threading.Tasks.Task`1")
)

// NewTypeMap builds the table for one run. The builder root and every
// builder family must exist in the core module.
func NewTypeMap(reader *metadata.Reader, core string, opts Options) (*TypeMap, error) {
	tm := &TypeMap{
		reader:   reader,
		core:     core,
		logger:   logger.OrComponent(opts.Logger, "ats"),
		exact:    make(map[string]Type, len(exactTypes)+1),
		families: make(map[string]bool, len(opts.BuilderFamilies)),
	}
	for id, t := range exactTypes {
		tm.exact[id] = t
	}

	if opts.BuilderRoot == "" {
		return nil, errors.Mark(errors.New("no builder root type configured"), errors.ErrInvalidConfig)
	}
	mod, def, err := reader.Find(core, opts.BuilderRoot)
	if err != nil {
		return nil, errors.Wrap(err, "failed to locate builder root")
	}
	if len(def.GenericParams) > 0 {
		return nil, errors.Mark(errors.Newf("builder root %s must not be generic", opts.BuilderRoot), errors.ErrInvalidConfig)
	}
	rootSig := metadata.Named(mod.Name(), def.FullName())
	tm.rootID = rootSig.ID()
	tm.exact[tm.rootID] = Type{Kind: Named, TypeID: tm.rootID, Sig: rootSig, Builder: true}

	for _, name := range opts.BuilderFamilies {
		mod, def, err := reader.Find(core, name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to locate builder family %s", name)
		}
		if len(def.GenericParams) == 0 {
			return nil, errors.Mark(errors.Newf("builder family %s must be a generic definition", name), errors.ErrInvalidConfig)
		}
		tm.families[mod.Name()+"/"+def.FullName()] = true
	}

	tm.logger.Debugw("Built type map",
		logger.FieldModule, core,
		logger.FieldType, tm.rootID,
		logger.FieldCount, len(tm.exact))
	return tm, nil
}

// Core returns the core module name
func (tm *TypeMap) Core() string { return tm.core }

// Reader returns the reader the map resolves through
func (tm *TypeMap) Reader() *metadata.Reader { return tm.reader }

// BuilderRoot returns the wire type of the builder root
func (tm *TypeMap) BuilderRoot() Type { return tm.exact[tm.rootID] }

// IsBuilderFamily reports whether t is the builder root or a builder-family instantiation
func (tm *TypeMap) IsBuilderFamily(t Type) bool {
	return t.Kind == Named && t.Builder
}

// Map classifies sig as referenced from module from. Order: exact table,
// structural shapes, public types of loaded modules, otherwise
// Unrepresentable. A reference that cannot be resolved is an error.
func (tm *TypeMap) Map(from string, sig *metadata.TypeSig) (Type, error) {
	if sig == nil {
		return unrepresentable("missing type"), nil
	}
	sig = sig.In(from)

	switch sig.Kind {
	case metadata.SigArray:
		return tm.array(from, sig.Elem())
	case metadata.SigPointer, metadata.SigByRef:
		return unrepresentable(sig.Kind.String()), nil
	case metadata.SigGenericParam:
		return unrepresentable("open generic parameter"), nil
	case metadata.SigNamed:
		if t, ok := tm.exact[sig.ID()]; ok {
			return t, nil
		}
		return tm.named(from, sig, false)
	case metadata.SigGeneric:
		return tm.generic(from, sig)
	}
	return unrepresentable(sig.Kind.String()), nil
}

func (tm *TypeMap) array(from string, elem *metadata.TypeSig) (Type, error) {
	et, err := tm.Map(from, elem)
	if err != nil {
		return Type{}, err
	}
	if !et.Representable() {
		return unrepresentable("sequence of " + et.String()), nil
	}
	return Type{Kind: Array, Elem: &et}, nil
}

func (tm *TypeMap) generic(from string, sig *metadata.TypeSig) (Type, error) {
	def := sig.Ref.Module + "/" + sig.Ref.Name

	switch {
	case sequenceDefs[def]:
		return tm.array(from, sig.Args[0])
	case def == nullableDef:
		inner, err := tm.Map(from, sig.Args[0])
		if err != nil {
			return Type{}, err
		}
		if !inner.Representable() {
			return inner, nil
		}
		inner.Optional = true
		return inner, nil
	case def == taskDef:
		return tm.Map(from, sig.Args[0])
	}
	return tm.named(from, sig, tm.families[def])
}

// named classifies a type definition reference
func (tm *TypeMap) named(from string, sig *metadata.TypeSig, builder bool) (Type, error) {
	t, err := tm.reader.Resolve(from, sig)
	if err != nil {
		return Type{}, err
	}

	def := t.Def
	switch {
	case t.Module.Builtin():
		return unrepresentable("framework type " + def.FullName()), nil
	case !def.IsPublic():
		return unrepresentable("non-public type " + def.FullName()), nil
	case def.IsDelegate():
		return unrepresentable("delegate " + def.FullName()), nil
	case def.IsStatic():
		return unrepresentable("static type " + def.FullName()), nil
	case def.IsEnum():
		return primitive(String), nil
	}
	return Type{Kind: Named, TypeID: t.ID(), Sig: t.Sig(), Builder: builder}, nil
}
