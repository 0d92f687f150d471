package appmodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/ats"
	"github.com/teranos/capgen/capability"
	"github.com/teranos/capgen/errors"
	fixtures "github.com/teranos/capgen/internal/testing"
	"github.com/teranos/capgen/metadata"
	"github.com/teranos/capgen/proxygraph"
)

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

func (e *env) sets(t *testing.T, modules ...string) []*capability.Set {
	t.Helper()
	policy := capability.Policy{
		NamespaceMarker: fixtures.NamespaceMarker,
		ExportMarker:    fixtures.ExportMarker,
		ContextMarker:   fixtures.ContextMarker,
		StripSuffixes:   []string{"Async"},
	}
	var out []*capability.Set
	for _, name := range modules {
		m, err := e.reader.Load(name)
		require.NoError(t, err)
		set, err := capability.Extract(m, e.tm, policy, capability.Options{})
		require.NoError(t, err)
		out = append(out, set)
	}
	return out
}

func (e *env) assemble(t *testing.T, sets []*capability.Set) (*ApplicationModel, error) {
	t.Helper()
	g, err := proxygraph.Build(Roots([]ats.Type{e.tm.BuilderRoot()}, sets), e.tm, proxygraph.Options{})
	require.NoError(t, err)
	return Assemble(sets, g)
}

func ids(m *ApplicationModel) []string {
	var out []string
	for _, c := range m.Ordered() {
		out = append(out, c.ID)
	}
	return out
}

const cacheSource = `
name: Aspire.Cache
attributes:
  - type: Aspire.Hosting::Aspire.Hosting.CapabilityNamespaceAttribute
    args: [aspire.cache]
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
types:
  - name: Aspire.Cache.CacheResource
    properties:
      - {name: Name, type: string}
  - name: Aspire.Cache.CacheExtensions
    static: true
    methods:
      - name: AddCache
        extension: true
        returns: Aspire.Cache.CacheResource
        params: [{name: builder, type: Builder}, {name: name, type: string}]
`

func TestAssembleTestRedis(t *testing.T) {
	e := newEnv(t, fixtures.TestRedisSource)
	m, err := e.assemble(t, e.sets(t, "Aspire.Test"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"aspire.test/TestEnvironmentContext.environmentName@1",
		"aspire.test/TestEnvironmentContext.resource@1",
		"aspire.test/addTestRedis@1",
		"aspire.test/withPersistence@1",
	}, ids(m))
	assert.Equal(t, []string{"Aspire.Test"}, m.Modules)
	assert.Len(t, m.Skipped, 1)

	add, ok := m.Capability("aspire.test/addTestRedis@1")
	require.True(t, ok)
	_, ok = m.Proxy(add.ReturnTypeID())
	assert.True(t, ok, "return types have proxies")
	_, ok = m.Proxy(add.ConstraintTypeID())
	assert.True(t, ok, "the builder root has a proxy")

	ctx, ok := m.Proxy("Aspire.Test/Aspire.Test.TestEnvironmentContext")
	require.True(t, ok, "context types have proxies")
	assert.Equal(t, "TestEnvironmentContext", ctx.ClassName)
}

func TestAssembleDuplicateAcrossModules(t *testing.T) {
	clash := `
name: Aspire.Clash
attributes:
  - type: Aspire.Hosting::Aspire.Hosting.CapabilityNamespaceAttribute
    args: [aspire.test]
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
types:
  - name: Aspire.Clash.ClashExtensions
    static: true
    methods:
      - name: AddTestRedis
        extension: true
        returns: Builder
        params: [{name: builder, type: Builder}]
`
	e := newEnv(t, fixtures.TestRedisSource, clash)
	sets := e.sets(t, "Aspire.Test", "Aspire.Clash")

	_, err := e.assemble(t, sets)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateCapability))
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "aspire.test/addTestRedis@1")
	assert.Contains(t, err.Error(), "module Aspire.Clash")
	assert.Contains(t, err.Error(), "module Aspire.Test")

	// Same diagnosis whatever order the sets arrive in
	_, rev := e.assemble(t, []*capability.Set{sets[1], sets[0]})
	require.Error(t, rev)
	assert.Equal(t, err.Error(), rev.Error())
}

func TestAssembleIsOrderIndependent(t *testing.T) {
	e := newEnv(t, fixtures.TestRedisSource, cacheSource)
	sets := e.sets(t, "Aspire.Test", "Aspire.Cache")

	first, err := e.assemble(t, sets)
	require.NoError(t, err)
	second, err := e.assemble(t, []*capability.Set{sets[1], sets[0]})
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, []string{"Aspire.Cache", "Aspire.Test"}, first.Modules)

	a, err := json.Marshal(first.View())
	require.NoError(t, err)
	b, err := json.Marshal(second.View())
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestAssembleVersionedNames(t *testing.T) {
	e := newEnv(t, `
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
`)
	m, err := e.assemble(t, e.sets(t, "Aspire.Export"))
	require.NoError(t, err)

	v1, ok := m.Capability("aspire.export/addCache@1")
	require.True(t, ok)
	v2, ok := m.Capability("aspire.export/addCache@2")
	require.True(t, ok)
	assert.Equal(t, "addCacheV1", v1.MethodName)
	assert.Equal(t, "addCache", v2.MethodName, "the newest version keeps the plain name")
	assert.Equal(t, "addCacheV1", v1.ExportName)
	assert.Equal(t, "addCache", v2.ExportName)
}

func TestAssembleSharedMethodNamesAcrossModules(t *testing.T) {
	other := `
name: Contoso.Cache
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
types:
  - name: Contoso.Cache.Extensions
    static: true
    methods:
      - name: AddCache
        extension: true
        returns: Builder
        params: [{name: builder, type: Builder}]
`
	e := newEnv(t, cacheSource, other)

	m, err := e.assemble(t, e.sets(t, "Contoso.Cache", "Aspire.Cache"))
	require.NoError(t, err)

	aspire, ok := m.Capability("aspire.cache/addCache@1")
	require.True(t, ok)
	contoso, ok := m.Capability("contoso.cache/addCache@1")
	require.True(t, ok)
	assert.Equal(t, "addCache", aspire.MethodName)
	assert.Equal(t, "addCache", contoso.MethodName)
	assert.Equal(t, "aspireCacheAddCache", aspire.ExportName)
	assert.Equal(t, "contosoCacheAddCache", contoso.ExportName)
}

func TestAssembleSharedContextPropertyNames(t *testing.T) {
	e := newEnv(t, `
name: Aspire.Ctx
attributes:
  - type: Aspire.Hosting::Aspire.Hosting.CapabilityNamespaceAttribute
    args: [aspire.ctx]
types:
  - name: Aspire.Ctx.BuildContext
    attributes:
      - type: Aspire.Hosting::Aspire.Hosting.AspireContextAttribute
        args: [aspire.ctx]
    properties:
      - {name: Name, type: string}
  - name: Aspire.Ctx.RunContext
    attributes:
      - type: Aspire.Hosting::Aspire.Hosting.AspireContextAttribute
        args: [aspire.ctx]
    properties:
      - {name: Name, type: string}
      - {name: Port, type: int}
`)

	m, err := e.assemble(t, e.sets(t, "Aspire.Ctx"))
	require.NoError(t, err)

	exports := map[string]string{}
	for _, c := range m.Ordered() {
		exports[c.ID] = c.ExportName
	}
	assert.Equal(t, map[string]string{
		"aspire.ctx/BuildContext.name@1": "buildContextName",
		"aspire.ctx/RunContext.name@1":   "runContextName",
		"aspire.ctx/RunContext.port@1":   "port",
	}, exports)
}

func TestAssembleRuntimeNamesAreReserved(t *testing.T) {
	e := newEnv(t, `
name: Aspire.Rt
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
types:
  - name: Aspire.Rt.ProxyObject
    properties:
      - {name: Name, type: string}
  - name: Aspire.Rt.Extensions
    static: true
    methods:
      - name: AddProxy
        extension: true
        returns: Aspire.Rt.ProxyObject
        params: [{name: builder, type: Builder}]
`)

	_, err := e.assemble(t, e.sets(t, "Aspire.Rt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProxyNameCollision))
	assert.Contains(t, err.Error(), "the client runtime")
	assert.Contains(t, err.Error(), "proxy type Aspire.Rt/Aspire.Rt.ProxyObject")
}

func TestAssembleProxyCollidesWithCapability(t *testing.T) {
	e := newEnv(t, fixtures.TestRedisSource, `
name: Aspire.Shadow
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
types:
  - name: Aspire.Shadow.Extensions
    static: true
    methods:
      - name: Shadow
        extension: true
        returns: "Aspire.Test::Aspire.Test.TestRedisResource"
        params: [{name: builder, type: Builder}]
        attributes:
          - type: Aspire.Hosting::Aspire.Hosting.AspireExportAttribute
            args: [TestRedisResource]
`)

	_, err := e.assemble(t, e.sets(t, "Aspire.Shadow"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProxyNameCollision))
	assert.Contains(t, err.Error(), "capability aspire.shadow/TestRedisResource@1")
	assert.Contains(t, err.Error(), "proxy type Aspire.Test/Aspire.Test.TestRedisResource")
}

func TestAssembleRejectsTypesOutsideGraph(t *testing.T) {
	e := newEnv(t, fixtures.TestRedisSource)
	sets := e.sets(t, "Aspire.Test")

	g, err := proxygraph.Build(nil, e.tm, proxygraph.Options{})
	require.NoError(t, err)
	_, err = Assemble(sets, g)
	require.Error(t, err)
	assert.True(t, errors.HasAssertionFailure(err))
}

func TestSummaryAndView(t *testing.T) {
	e := newEnv(t, fixtures.TestRedisSource, cacheSource)
	m, err := e.assemble(t, e.sets(t, "Aspire.Test", "Aspire.Cache"))
	require.NoError(t, err)

	s := m.Summary()
	assert.Equal(t, 5, s.Capabilities)
	assert.Equal(t, m.Graph().Len(), s.ProxyTypes)
	assert.Equal(t, map[string]int{"Aspire.Cache": 1, "Aspire.Test": 4}, s.ByModule)
	assert.Equal(t, map[string]int{"aspire.cache": 1, "aspire.test": 4}, s.ByNamespace)

	v := m.View()
	require.Len(t, v.Capabilities, 5)
	assert.Equal(t, "aspire.cache/addCache@1", v.Capabilities[0].ID)

	var add CapabilityView
	for _, c := range v.Capabilities {
		if c.ID == "aspire.test/addTestRedis@1" {
			add = c
		}
	}
	assert.Equal(t, []ParameterView{
		{Name: "name", TypeID: "string"},
		{Name: "port", TypeID: "number", Optional: true},
	}, add.Parameters)

	for i := 1; i < len(v.ProxyTypes); i++ {
		assert.LessOrEqual(t, v.ProxyTypes[i-1].ClassName, v.ProxyTypes[i].ClassName)
	}
}
