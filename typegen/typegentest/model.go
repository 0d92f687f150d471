// Package typegentest builds ApplicationModels from module sources for
// backend tests.
package typegentest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/appmodel"
	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/capability"
	fixtures "github.com/teranos/capgen/internal/testing"
	"github.com/teranos/capgen/metadata"
	"github.com/teranos/capgen/proxygraph"
	"github.com/teranos/capgen/typegen"
)

// Options used by backend tests
var Options = typegen.Options{PackageName: "@aspire/test-client", PackageVersion: "1.0.0"}

// Model compiles the core source plus sources and assembles a model over
// every module named in modules.
func Model(t *testing.T, modules []string, sources ...string) *appmodel.ApplicationModel {
	t.Helper()
	dir := fixtures.ModuleDir(t, append([]string{fixtures.CoreSource}, sources...)...)
	r := metadata.NewReader([]string{dir}, metadata.Options{})
	t.Cleanup(func() { r.Close() })

	tm, err := ats.NewTypeMap(r, fixtures.CoreModule, ats.Options{
		BuilderRoot:     fixtures.BuilderRoot,
		BuilderFamilies: []string{fixtures.BuilderFamily},
	})
	require.NoError(t, err)

	policy := capability.Policy{
		NamespaceMarker: fixtures.NamespaceMarker,
		ExportMarker:    fixtures.ExportMarker,
		ContextMarker:   fixtures.ContextMarker,
		StripSuffixes:   []string{"Async"},
	}
	var sets []*capability.Set
	for _, name := range modules {
		m, err := r.Load(name)
		require.NoError(t, err)
		set, err := capability.Extract(m, tm, policy, capability.Options{})
		require.NoError(t, err)
		sets = append(sets, set)
	}

	g, err := proxygraph.Build(appmodel.Roots([]ats.Type{tm.BuilderRoot()}, sets), tm, proxygraph.Options{})
	require.NoError(t, err)
	model, err := appmodel.Assemble(sets, g)
	require.NoError(t, err)
	return model
}

// TestRedis is the model of the Aspire.Test fixture module
func TestRedis(t *testing.T) *appmodel.ApplicationModel {
	t.Helper()
	return Model(t, []string{"Aspire.Test"}, fixtures.TestRedisSource)
}

// Render generates with g twice and fails unless both runs are identical
func Render(t *testing.T, g typegen.Generator, model *appmodel.ApplicationModel) typegen.FileSet {
	t.Helper()
	first, err := g.Generate(model, Options)
	require.NoError(t, err)
	second, err := g.Generate(model, Options)
	require.NoError(t, err)
	require.Equal(t, first.Archive(""), second.Archive(""), "output must be deterministic")
	return first
}

// File returns the contents of path, failing when it was not rendered
func File(t *testing.T, fs typegen.FileSet, path string) string {
	t.Helper()
	f, ok := fs.Get(path)
	require.True(t, ok, "missing %s", path)
	return string(f.Data)
}
