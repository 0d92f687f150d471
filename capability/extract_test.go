package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/errors"
	fixtures "github.com/teranos/capgen/internal/testing"
	"github.com/teranos/capgen/metadata"
)

func testPolicy() Policy {
	return Policy{
		NamespaceMarker: fixtures.NamespaceMarker,
		ExportMarker:    fixtures.ExportMarker,
		ContextMarker:   fixtures.ContextMarker,
		StripSuffixes:   []string{"Async"},
	}
}

type env struct {
	reader *metadata.Reader
	tm     *ats.TypeMap
}

func newEnv(t *testing.T, sources ...string) *env {
	t.Helper()
	dir := fixtures.ModuleDir(t, append([]string{fixtures.CoreSource}, sources...)...)
	r := metadata.NewReader([]string{dir}, metadata.Options{})
	t.Cleanup(func() { r.Close() })

	tm, err := ats.NewTypeMap(r, fixtures.CoreModule, ats.Options{
		BuilderRoot:     fixtures.BuilderRoot,
		BuilderFamilies: []string{fixtures.BuilderFamily},
	})
	require.NoError(t, err)
	return &env{reader: r, tm: tm}
}

func (e *env) extract(t *testing.T, module string, policy Policy, opts Options) (*Set, error) {
	t.Helper()
	m, err := e.reader.Load(module)
	require.NoError(t, err)
	return Extract(m, e.tm, policy, opts)
}

func byID(set *Set) map[string]*Capability {
	out := make(map[string]*Capability)
	for _, c := range set.Capabilities {
		out[c.ID] = c
	}
	return out
}

func TestExtractTestRedis(t *testing.T) {
	e := newEnv(t, fixtures.TestRedisSource)

	set, err := e.extract(t, "Aspire.Test", testPolicy(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "aspire.test", set.Namespace)

	ids := make([]string, len(set.Capabilities))
	for i, c := range set.Capabilities {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{
		"aspire.test/TestEnvironmentContext.environmentName@1",
		"aspire.test/TestEnvironmentContext.resource@1",
		"aspire.test/addTestRedis@1",
		"aspire.test/withPersistence@1",
	}, ids)

	add := byID(set)["aspire.test/addTestRedis@1"]
	require.NotNil(t, add)
	assert.Equal(t, "addTestRedis", add.MethodName)
	assert.False(t, add.IsContextProperty)
	assert.Equal(t, "Aspire.Hosting/"+fixtures.BuilderRoot, add.ConstraintTypeID())
	assert.Equal(t,
		"Aspire.Hosting/Aspire.Hosting.ApplicationModel.IResourceBuilder`1<Aspire.Test/Aspire.Test.TestRedisResource>",
		add.ReturnTypeID())

	// The receiver is folded into the constraint, not counted as a parameter
	require.Len(t, add.Parameters, 2)
	assert.Equal(t, "name", add.Parameters[0].Name)
	assert.Equal(t, "string", add.Parameters[0].TypeID())
	assert.False(t, add.Parameters[0].Optional)
	assert.Equal(t, "port", add.Parameters[1].Name)
	assert.Equal(t, "number", add.Parameters[1].TypeID())
	assert.True(t, add.Parameters[1].Optional)

	persist := byID(set)["aspire.test/withPersistence@1"]
	require.NotNil(t, persist)
	assert.Equal(t, add.ReturnTypeID(), persist.ConstraintTypeID())
	require.Len(t, persist.Parameters, 2)
	assert.Equal(t, "interval", persist.Parameters[0].Name)
	assert.Equal(t, "keysChangedThreshold", persist.Parameters[1].Name)
}

func TestExtractContextProperties(t *testing.T) {
	e := newEnv(t, fixtures.TestRedisSource)
	log, logs := fixtures.ObservedLogger(zapcore.WarnLevel)

	set, err := e.extract(t, "Aspire.Test", testPolicy(), Options{Logger: log})
	require.NoError(t, err)

	env := byID(set)["aspire.test/TestEnvironmentContext.environmentName@1"]
	require.NotNil(t, env)
	assert.True(t, env.IsContextProperty)
	assert.Equal(t, "environmentName", env.MethodName, "lower-camel, not lower-cased")
	assert.Equal(t, "string", env.ReturnTypeID())
	assert.Equal(t, "Aspire.Test/Aspire.Test.TestEnvironmentContext", env.ConstraintTypeID())
	require.Len(t, env.Parameters, 1)
	assert.Equal(t, ContextParameter, env.Parameters[0].Name)
	assert.Equal(t, env.ConstraintTypeID(), env.Parameters[0].TypeID())

	// The CancellationToken property cannot cross the boundary
	require.Len(t, set.Skipped, 1)
	assert.Equal(t, "Aspire.Test.TestEnvironmentContext.CancellationToken", set.Skipped[0].Member)
	assert.Equal(t, 1, logs.FilterMessage("Skipping capability").Len())
}

const unrepresentableSource = `
name: Aspire.Odd
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
types:
  - name: Aspire.Odd.OddExtensions
    static: true
    methods:
      - name: WithCallback
        extension: true
        returns: Builder
        params:
          - {name: builder, type: Builder}
          - {name: callback, type: Func<Task>}
          - {name: name, type: string}
      - name: WithOptionalState
        extension: true
        returns: Builder
        params:
          - {name: builder, type: Builder}
          - {name: name, type: string}
          - {name: state, type: object, optional: true}
          - {name: cancellationToken, type: CancellationToken, optional: true}
      - name: GetServices
        extension: true
        returns: IServiceProvider
        params:
          - {name: builder, type: Builder}
      - name: Helper
        static: true
        returns: string
        params:
          - {name: value, type: string}
`

func TestExtractUnrepresentable(t *testing.T) {
	e := newEnv(t, unrepresentableSource)
	log, logs := fixtures.ObservedLogger(zapcore.WarnLevel)

	set, err := e.extract(t, "Aspire.Odd", testPolicy(), Options{Logger: log})
	require.NoError(t, err, "skips are degradations, not failures")

	require.Len(t, set.Capabilities, 1)
	c := set.Capabilities[0]
	assert.Equal(t, "aspire.odd/withOptionalState@1", c.ID)
	require.Len(t, c.Parameters, 1, "trailing optional and control parameters are dropped")
	assert.Equal(t, "name", c.Parameters[0].Name)

	require.Len(t, set.Skipped, 2)
	members := []string{set.Skipped[0].Member, set.Skipped[1].Member}
	assert.ElementsMatch(t, []string{
		"Aspire.Odd.OddExtensions.WithCallback",
		"Aspire.Odd.OddExtensions.GetServices",
	}, members)
	for _, s := range set.Skipped {
		assert.Equal(t, "UnrepresentableRequiredParameter", s.Kind)
	}

	warnings := logs.FilterMessage("Skipping capability").All()
	require.Len(t, warnings, 2)
	assert.Equal(t, "Aspire.Odd", warnings[0].ContextMap()["module"])
	assert.NotEmpty(t, warnings[0].ContextMap()["reason"])
}

func TestExtractDuplicateWithinModule(t *testing.T) {
	e := newEnv(t, `
name: Aspire.Dup
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
types:
  - name: Aspire.Dup.DupExtensions
    static: true
    methods:
      - name: AddCache
        extension: true
        returns: Builder
        params: [{name: builder, type: Builder}]
      - name: AddCacheAsync
        extension: true
        returns: Task<Builder>
        params: [{name: builder, type: Builder}]
`)

	_, err := e.extract(t, "Aspire.Dup", testPolicy(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateCapability))
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "aspire.dup/addCache@1")
	assert.Contains(t, err.Error(), "Aspire.Dup.DupExtensions.AddCache")
	assert.Contains(t, err.Error(), "Aspire.Dup.DupExtensions.AddCacheAsync")
	assert.Contains(t, err.Error(), "Aspire.Dup")
}

const exportSource = `
name: Aspire.Export
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
  Export: Aspire.Hosting::Aspire.Hosting.AspireExportAttribute
types:
  - name: Aspire.Export.Extensions
    static: true
    methods:
      - name: AddCache
        extension: true
        returns: Builder
        params: [{name: builder, type: Builder}]
      - name: AddCacheV2
        extension: true
        returns: Builder
        params: [{name: builder, type: Builder}, {name: size, type: int}]
        attributes:
          - type: Export
            args: [addCache]
            named: {Version: "2"}
`

func TestExtractExportMarker(t *testing.T) {
	e := newEnv(t, exportSource)

	set, err := e.extract(t, "Aspire.Export", testPolicy(), Options{})
	require.NoError(t, err)

	caps := byID(set)
	require.Contains(t, caps, "aspire.export/addCache@1")
	require.Contains(t, caps, "aspire.export/addCache@2")
	assert.Len(t, caps["aspire.export/addCache@2"].Parameters, 1)
}

func TestExtractInvalidVersion(t *testing.T) {
	src := `
name: Aspire.Bad
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
types:
  - name: Aspire.Bad.Extensions
    static: true
    methods:
      - name: AddThing
        extension: true
        returns: Builder
        params: [{name: builder, type: Builder}]
        attributes:
          - type: Aspire.Hosting::Aspire.Hosting.AspireExportAttribute
            named: {Version: "zero"}
`
	e := newEnv(t, src)

	_, err := e.extract(t, "Aspire.Bad", testPolicy(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AddThing")
}

func TestExtractUnresolvedContextMarker(t *testing.T) {
	e := newEnv(t, `
name: Aspire.Partial
types:
  - name: Aspire.Partial.CallbackContext
    attributes:
      - type: Aspire.Hosting.Extras::Aspire.Hosting.AspireContextAttribute
        args: [aspire.partial]
    properties:
      - {name: Name, type: string}
`)
	log, logs := fixtures.ObservedLogger(zapcore.WarnLevel)

	set, err := e.extract(t, "Aspire.Partial", testPolicy(), Options{Logger: log})
	require.NoError(t, err, "an unresolved context marker must not fail the run")
	assert.Empty(t, set.Capabilities)

	require.Len(t, set.Skipped, 1)
	assert.Equal(t, "ContextAttributeUnresolved", set.Skipped[0].Kind)
	assert.Equal(t, "Aspire.Partial.CallbackContext", set.Skipped[0].Member)

	entries := logs.FilterMessage("Skipping capability").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "ContextAttributeUnresolved", entries[0].ContextMap()["error_kind"])
}

func TestPolicyNamespace(t *testing.T) {
	e := newEnv(t, fixtures.TestRedisSource, `
name: Contoso.Plain
types: []
`)
	test, err := e.reader.Load("Aspire.Test")
	require.NoError(t, err)
	plain, err := e.reader.Load("Contoso.Plain")
	require.NoError(t, err)

	p := testPolicy()
	assert.Equal(t, "aspire.test", p.Namespace(test), "namespace marker attribute")
	assert.Equal(t, "contoso.plain", p.Namespace(plain), "lower-cased module name")

	p.Namespaces = map[string]string{"Aspire.Test": "aspire.redis"}
	assert.Equal(t, "aspire.redis", p.Namespace(test), "explicit override wins")
}

func TestPolicyVerb(t *testing.T) {
	p := Policy{StripPrefixes: []string{"Try"}, StripSuffixes: []string{"Async"}}

	tests := []struct {
		method string
		want   string
	}{
		{"AddTestRedis", "addTestRedis"},
		{"WithPersistence", "withPersistence"},
		{"RunAsync", "run"},
		{"TryAddRedis", "addRedis"},
		{"Aspire.Hosting.IResourceExtensions.WithReference", "withReference"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Verb(tt.method))
		})
	}
}
