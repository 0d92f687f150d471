// Package pipeline runs generations end to end.
//
// A run reads modules through a fresh metadata.Reader, classifies types,
// extracts capabilities per module, builds the proxy graph, assembles the
// ApplicationModel and renders it with the configured backend. Runs share
// no state: two runs over the same inputs render identical FileSets.
//
// The context is checked between phases. A cancelled or failed run
// returns no FileSet and, through Generate, writes nothing.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/appmodel"
	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/capability"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/metadata"
	"github.com/teranos/capgen/proxygraph"
	"github.com/teranos/capgen/typegen"
)

// Phase names a step of a run
type Phase string

const (
	PhaseRead     Phase = "read"
	PhaseTypes    Phase = "types"
	PhaseExtract  Phase = "extract"
	PhaseGraph    Phase = "graph"
	PhaseAssemble Phase = "assemble"
	PhaseRender   Phase = "render"
	PhaseWrite    Phase = "write"
)

// Options configures a run
type Options struct {
	// Logger defaults to the "pipeline" component logger
	Logger *zap.SugaredLogger
	// Backend overrides cfg.Output.Backend when set
	Backend string
	// Debounce overrides the watch debounce period when positive
	Debounce time.Duration
}

// Result is the outcome of a successful run
type Result struct {
	RunID    string                     `json:"runId"`
	Backend  string                     `json:"backend"`
	Model    *appmodel.ApplicationModel `json:"-"`
	Files    typegen.FileSet            `json:"-"`
	Skipped  []capability.Skipped       `json:"skipped,omitempty"`
	Dropped  []proxygraph.Dropped       `json:"dropped,omitempty"`
	Duration time.Duration              `json:"duration"`
}

// run carries the state of one generation
type run struct {
	cfg    *am.Config
	logger *zap.SugaredLogger
	reader *metadata.Reader
	tm     *ats.TypeMap
	sets   []*capability.Set
	graph  *proxygraph.Graph
	model  *appmodel.ApplicationModel
}

// Run performs one generation and returns the rendered files without
// writing them
func Run(ctx context.Context, cfg *am.Config, opts Options) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.ChildLogger(logger.OrComponent(opts.Logger, "pipeline"), logger.FieldRunID, runID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend := cfg.Output.Backend
	if opts.Backend != "" {
		backend = opts.Backend
	}
	gen, err := typegen.Lookup(backend)
	if err != nil {
		return nil, err
	}

	r := &run{cfg: cfg, logger: log}
	defer func() {
		if r.reader != nil {
			r.reader.Close()
		}
	}()

	steps := []struct {
		phase Phase
		fn    func(context.Context) error
	}{
		{PhaseRead, r.read},
		{PhaseTypes, r.types},
		{PhaseExtract, r.extract},
		{PhaseGraph, r.buildGraph},
		{PhaseAssemble, r.assemble},
	}
	for _, s := range steps {
		if err := r.phase(ctx, s.phase, s.fn); err != nil {
			return nil, err
		}
	}

	var files typegen.FileSet
	err = r.phase(ctx, PhaseRender, func(context.Context) error {
		var err error
		files, err = gen.Generate(r.model, typegen.Options{
			PackageName:    cfg.Output.PackageName,
			PackageVersion: cfg.Output.PackageVersion,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:    runID,
		Backend:  gen.Name(),
		Model:    r.model,
		Files:    files,
		Dropped:  r.graph.Dropped,
		Duration: time.Since(start),
	}
	for _, set := range r.sets {
		res.Skipped = append(res.Skipped, set.Skipped...)
	}

	log.Infow("Generation complete",
		logger.FieldBackend, res.Backend,
		"capabilities", r.model.Len(),
		"proxies", len(r.model.ProxyTypes()),
		"skipped", len(res.Skipped),
		"dropped", len(res.Dropped),
		logger.FieldCount, len(files),
		logger.FieldDurationMS, res.Duration.Milliseconds())
	return res, nil
}

// phase runs fn unless ctx is already done
func (r *run) phase(ctx context.Context, p Phase, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		r.logger.Infow("Run cancelled", logger.FieldPhase, p)
		return errors.Wrapf(err, "run cancelled before %s", p)
	}
	start := time.Now()
	if err := fn(ctx); err != nil {
		r.logger.Debugw("Phase failed",
			logger.FieldPhase, p,
			logger.FieldErrorKind, errors.Kind(err),
			logger.FieldError, err)
		return err
	}
	r.logger.Debugw("Phase complete",
		logger.FieldPhase, p,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

func (r *run) read(context.Context) error {
	r.reader = metadata.NewReader(r.cfg.SearchPaths(), metadata.Options{Logger: r.logger.Named("metadata")})
	if _, err := r.reader.Load(r.cfg.Modules.Core); err != nil {
		return err
	}
	for _, name := range r.cfg.Modules.Names {
		if _, err := r.reader.Load(name); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) types(context.Context) error {
	tm, err := ats.NewTypeMap(r.reader, r.cfg.Modules.Core, ats.Options{
		BuilderRoot:     r.cfg.Types.BuilderRoot,
		BuilderFamilies: r.cfg.Types.BuilderFamilies,
		Logger:          r.logger.Named("ats"),
	})
	if err != nil {
		return err
	}
	r.tm = tm
	return nil
}

func (r *run) extract(ctx context.Context) error {
	policy := capability.Policy{
		Namespaces:      r.cfg.Naming.NamespaceMap(),
		NamespaceMarker: r.cfg.Types.NamespaceMarker,
		ExportMarker:    r.cfg.Types.ExportMarker,
		ContextMarker:   r.cfg.Types.ContextMarker,
		StripPrefixes:   r.cfg.Naming.StripPrefixes,
		StripSuffixes:   r.cfg.Naming.StripSuffixes,
	}
	for _, name := range r.cfg.Modules.Names {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "run cancelled before extracting %s", name)
		}
		m, err := r.reader.Load(name)
		if err != nil {
			return err
		}
		set, err := capability.Extract(m, r.tm, policy, capability.Options{Logger: r.logger.Named("capability")})
		if err != nil {
			return err
		}
		r.sets = append(r.sets, set)
	}
	return nil
}

func (r *run) buildGraph(context.Context) error {
	base := []ats.Type{r.tm.BuilderRoot()}
	for _, root := range r.cfg.Types.Roots {
		t, err := r.root(root)
		if err != nil {
			return err
		}
		base = append(base, t)
	}

	g, err := proxygraph.Build(appmodel.Roots(base, r.sets), r.tm, proxygraph.Options{Logger: r.logger.Named("proxygraph")})
	if err != nil {
		return err
	}
	r.graph = g
	return nil
}

// root resolves a configured proxy root to its wire type
func (r *run) root(root string) (ats.Type, error) {
	module, fullName, err := am.SplitRoot(r.cfg.Modules.Core, root)
	if err != nil {
		return ats.Type{}, errors.Mark(err, errors.ErrInvalidConfig)
	}
	mod, def, err := r.reader.Find(module, fullName)
	if err != nil {
		return ats.Type{}, errors.Wrapf(err, "failed to resolve proxy root %s", root)
	}
	if len(def.GenericParams) > 0 {
		return ats.Type{}, errors.Mark(errors.Newf("proxy root %s is a generic definition", root), errors.ErrInvalidConfig)
	}
	t, err := r.tm.Map(mod.Name(), metadata.Named(mod.Name(), def.FullName()))
	if err != nil {
		return ats.Type{}, err
	}
	if t.Kind != ats.Named {
		return ats.Type{}, errors.Mark(errors.Newf("proxy root %s maps to %s, not a proxy type", root, t), errors.ErrInvalidConfig)
	}
	return t, nil
}

func (r *run) assemble(context.Context) error {
	model, err := appmodel.Assemble(r.sets, r.graph)
	if err != nil {
		return err
	}
	r.model = model
	return nil
}
