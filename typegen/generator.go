// Package typegen renders an ApplicationModel into a typed client package.
//
// # Architecture
//
// The package uses a two-layer design:
//  1. The language-agnostic ApplicationModel (appmodel) carries every
//     capability and proxy type a run discovered
//  2. Backends (legacy/, typescript/) turn that model into a FileSet
//
// Both backends emit the same fixed file set: the runtime bootstrap
// (transport.ts, shared and static), the bindings (capabilities.ts), the
// declarations (types.ts) and the manifest (package.json).
//
// # Design Decisions
//
//   - Deterministic output: backends iterate the model's sorted views only,
//     so the same model always renders byte-identical files
//   - Writes are all-or-nothing (see WriteAll)
//   - Check compares a fresh render with an output directory so CI can fail
//     on drift
//
// # Implementing a New Backend
//
//  1. Create package: typegen/<name>/generator.go
//  2. Implement the Generator interface
//  3. Call typegen.Register from the package's init
//  4. Blank-import the package in cmd/capgen
package typegen

import (
	"sort"
	"sync"

	"github.com/teranos/capgen/appmodel"
	"github.com/teranos/capgen/errors"
)

// Fixed output file names
const (
	TransportFile    = "transport.ts"
	CapabilitiesFile = "capabilities.ts"
	TypesFile        = "types.ts"
	ManifestFile     = "package.json"
)

// Options are the per-run rendering inputs that do not come from the model
type Options struct {
	// PackageName is the npm package name written to the manifest
	PackageName string
	// PackageVersion is a semantic version written to the manifest
	PackageVersion string
}

// Generator renders an ApplicationModel into the fixed client file set.
// Generate must be deterministic: the same model and options yield
// byte-identical files.
type Generator interface {
	// Name returns the backend name used in configuration (e.g. "typescript")
	Name() string

	// Generate renders the model
	Generate(model *appmodel.ApplicationModel, opts Options) (FileSet, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Generator)
)

// Register makes a backend available by name. It panics on a duplicate
// name, like database/sql.Register.
func Register(g Generator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[g.Name()]; dup {
		panic("typegen: Register called twice for backend " + g.Name())
	}
	registry[g.Name()] = g
}

// Lookup returns the backend registered under name
func Lookup(name string) (Generator, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	g, ok := registry[name]
	if !ok {
		err := errors.Mark(errors.Newf("unknown generator backend %q", name), errors.ErrInvalidConfig)
		return nil, errors.WithHintf(err, "available backends: %v", backendNames())
	}
	return g, nil
}

// Backends returns the registered backend names, sorted
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backendNames()
}

func backendNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
