package metadata

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
)

// Options configures a Reader
type Options struct {
	// Logger receives trace output of module loading. Defaults to the "metadata" component logger.
	Logger *zap.SugaredLogger
}

// Reader loads modules by name from an ordered list of directories and
// resolves type references between them. One Reader serves one generation
// run; handles are cached so repeated loads return the same *Module.
//
// A Reader consults only the directories it was given. It never reads
// environment variables or probes default install locations.
type Reader struct {
	searchPaths []string
	logger      *zap.SugaredLogger

	mu      sync.Mutex
	modules map[string]*Module
	types   map[string]*Type
	closed  bool
}

// NewReader creates a Reader over searchPaths. Order matters: the first
// directory holding <name>.capmod wins.
func NewReader(searchPaths []string, opts Options) *Reader {
	paths := make([]string, len(searchPaths))
	copy(paths, searchPaths)
	return &Reader{
		searchPaths: paths,
		logger:      logger.OrComponent(opts.Logger, "metadata"),
		modules:     make(map[string]*Module),
		types:       make(map[string]*Type),
	}
}

// SearchPaths returns the directories this Reader consults, in order
func (r *Reader) SearchPaths() []string {
	out := make([]string, len(r.searchPaths))
	copy(out, r.searchPaths)
	return out
}

// Load returns the module called name, reading it on first use.
// A module absent from every search path is errors.ErrModuleNotFound.
func (r *Reader) Load(name string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(name)
}

func (r *Reader) load(name string) (*Module, error) {
	if r.closed {
		return nil, errors.New("reader is closed")
	}
	if m, ok := r.modules[name]; ok {
		return m, nil
	}

	if name == SystemModule {
		m := newModule(systemModuleDef(), "")
		r.modules[name] = m
		return m, nil
	}

	for _, dir := range r.searchPaths {
		path := filepath.Join(dir, name+Extension)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to read module %s", path)
		}

		def, err := Decode(path, data)
		if err != nil {
			return nil, err
		}
		if def.Name != name {
			return nil, errors.NewMalformedModule(path, "module.name",
				errors.Newf("file declares module %q, expected %q", def.Name, name))
		}

		m := newModule(def, path)
		r.modules[name] = m
		r.logger.Debugw("Loaded module",
			logger.FieldModule, name,
			logger.FieldPath, path,
			logger.FieldCount, len(def.Types))
		return m, nil
	}

	return nil, errors.NewModuleNotFound(name, r.searchPaths)
}

// Resolve returns the type a Named or Generic signature refers to. Relative
// references are taken to be in module from. Failure to locate the module or
// the type, or a generic arity mismatch, is errors.ErrTypeResolution.
func (r *Reader) Resolve(from string, sig *TypeSig) (*Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(from, sig)
}

func (r *Reader) resolve(from string, sig *TypeSig) (*Type, error) {
	if sig == nil {
		return nil, errors.NewTypeResolution(from, "<nil>", nil)
	}
	if sig.Kind != SigNamed && sig.Kind != SigGeneric {
		return nil, errors.NewTypeResolution(from, sig.String(),
			errors.Newf("%s signature does not name a type definition", sig.Kind))
	}

	abs := sig.In(from)
	if t, ok := r.types[abs.ID()]; ok {
		return t, nil
	}

	m, def, err := r.lookup(from, abs.Ref)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, errors.NewTypeResolution(from, abs.Ref.String(),
			errors.Newf("module %s declares no type %s", m.Name(), abs.Ref.Name))
	}
	if len(abs.Args) != len(def.GenericParams) {
		return nil, errors.NewTypeResolution(from, abs.String(),
			errors.Newf("type %s takes %d type arguments, got %d", def.FullName(), len(def.GenericParams), len(abs.Args)))
	}

	t := &Type{Module: m, Def: def, Args: abs.Args, sig: abs}
	r.types[t.ID()] = t
	r.logger.Debugw("Resolved type",
		logger.FieldModule, from,
		logger.FieldType, t.ID())
	return t, nil
}

// lookup locates the module and definition a reference names
func (r *Reader) lookup(from string, ref TypeRef) (*Module, *TypeDef, error) {
	ref = ref.In(from)
	m, err := r.load(ref.Module)
	if err != nil {
		return nil, nil, errors.NewTypeResolution(from, ref.String(), err)
	}
	return m, m.Lookup(ref.Name), nil
}

// TryResolve resolves a reference without failing the caller. It is meant
// for best-effort metadata such as custom attributes, where an unresolvable
// type degrades a feature instead of aborting the run.
func (r *Reader) TryResolve(from string, ref TypeRef) (*Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.resolve(from, &TypeSig{Kind: SigNamed, Ref: ref})
	if err != nil {
		r.logger.Debugw("Best-effort type resolution failed",
			logger.FieldModule, from,
			logger.FieldType, ref.String(),
			logger.FieldError, err.Error())
		return nil, false
	}
	return t, true
}

// Find returns the generic definition or plain type fullName in module. The
// result has no type arguments even when the definition is generic.
func (r *Reader) Find(module, fullName string) (*Module, *TypeDef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, def, err := r.lookup(module, TypeRef{Module: module, Name: fullName})
	if err != nil {
		return nil, nil, err
	}
	if def == nil {
		return nil, nil, errors.NewTypeResolution(module, fullName,
			errors.Newf("module %s declares no type %s", m.Name(), fullName))
	}
	return m, def, nil
}

// Modules returns the loaded modules sorted by name
func (r *Reader) Modules() []*Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Close releases every module handle. Handles obtained earlier must not be
// used afterwards; further loads fail.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debugw("Releasing module handles", logger.FieldCount, len(r.modules))
	r.modules = nil
	r.types = nil
	r.closed = true
	return nil
}

// Module is a loaded, immutable module handle
type Module struct {
	Def  *ModuleDef
	Path string // empty for the built-in module

	byName map[string]*TypeDef
}

func newModule(def *ModuleDef, path string) *Module {
	m := &Module{Def: def, Path: path, byName: make(map[string]*TypeDef, len(def.Types))}
	for _, t := range def.Types {
		m.byName[t.FullName()] = t
	}
	return m
}

func (m *Module) Name() string    { return m.Def.Name }
func (m *Module) Version() string { return m.Def.Version }

// Builtin reports whether the module is synthesized rather than read from disk
func (m *Module) Builtin() bool { return m.Path == "" }

// Types returns the module's type definitions sorted by full name
func (m *Module) Types() []*TypeDef {
	out := make([]*TypeDef, len(m.Def.Types))
	copy(out, m.Def.Types)
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out
}

// Lookup returns the definition named fullName, or nil
func (m *Module) Lookup(fullName string) *TypeDef {
	return m.byName[fullName]
}

// Attributes returns the module-level custom attributes
func (m *Module) Attributes() []*Attribute { return m.Def.Attributes }

// Type is a resolved type: a definition plus its type arguments
type Type struct {
	Module *Module
	Def    *TypeDef
	Args   []*TypeSig // absolute

	sig *TypeSig

	once       sync.Once
	methods    []*MethodDef
	properties []*PropertyDef
}

// Sig returns the absolute signature of this type
func (t *Type) Sig() *TypeSig { return t.sig }

// ID is the run-wide stable identifier, e.g. "Aspire.Hosting/Ns.IResourceBuilder`1<Aspire.Test/Ns.RedisResource>"
func (t *Type) ID() string { return t.sig.ID() }

// FullName returns the definition's full name
func (t *Type) FullName() string { return t.Def.FullName() }

// Methods returns the type's methods with absolute, instantiated signatures
func (t *Type) Methods() []*MethodDef {
	t.once.Do(t.instantiate)
	return t.methods
}

// Properties returns the type's properties with absolute, instantiated signatures
func (t *Type) Properties() []*PropertyDef {
	t.once.Do(t.instantiate)
	return t.properties
}

// instantiate rewrites member signatures of the definition in terms of this
// type's module and type arguments
func (t *Type) instantiate() {
	mod := t.Module.Name()
	fix := func(s *TypeSig) *TypeSig {
		return s.In(mod).Substitute(t.Args)
	}

	for _, md := range t.Def.Methods {
		out := &MethodDef{
			Name:       md.Name,
			Flags:      md.Flags,
			Return:     fix(md.Return),
			Attributes: md.Attributes,
		}
		for _, p := range md.Params {
			out.Params = append(out.Params, &ParamDef{Name: p.Name, Type: fix(p.Type), Flags: p.Flags})
		}
		t.methods = append(t.methods, out)
	}
	for _, pd := range t.Def.Properties {
		t.properties = append(t.properties, &PropertyDef{
			Name:       pd.Name,
			Type:       fix(pd.Type),
			Flags:      pd.Flags,
			Attributes: pd.Attributes,
		})
	}
}
