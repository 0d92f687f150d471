package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/errors"
)

const testRedisSource = `
name: Aspire.Test
version: 1.0.0
aliases:
  Builder: Aspire.Hosting::Aspire.Hosting.IDistributedApplicationBuilder
  ResourceBuilder: Aspire.Hosting::Aspire.Hosting.ApplicationModel.IResourceBuilder
attributes:
  - type: Aspire.Hosting::Aspire.Hosting.CapabilityNamespaceAttribute
    args: [aspire.test]
types:
  - name: Aspire.Test.TestRedisResource
    properties:
      - {name: Name, type: string}
      - {name: Port, type: int?, set: true}
  - name: Aspire.Test.TestRedisExtensions
    static: true
    methods:
      - name: AddTestRedis
        extension: true
        returns: ResourceBuilder<Aspire.Test.TestRedisResource>
        params:
          - {name: builder, type: Builder}
          - {name: name, type: string}
          - {name: port, type: int?, optional: true}
  - name: Aspire.Test.Box
    kind: struct
    generics: [T]
    properties:
      - {name: Items, type: "List<T>[]"}
`

func TestParseSource(t *testing.T) {
	m, err := ParseSource("redis.yaml", []byte(testRedisSource))
	require.NoError(t, err)

	assert.Equal(t, "Aspire.Test", m.Name)
	assert.Equal(t, []string{"Aspire.Hosting"}, m.References)
	require.Len(t, m.Attributes, 1)
	assert.Equal(t, "Aspire.Hosting::Aspire.Hosting.CapabilityNamespaceAttribute", m.Attributes[0].Type.String())

	require.Len(t, m.Types, 3)
	res := m.Types[0]
	assert.Equal(t, "Aspire.Test", res.Namespace)
	assert.Equal(t, "TestRedisResource", res.Name)
	assert.True(t, res.IsPublic())
	require.Len(t, res.Properties, 2)
	assert.True(t, res.Properties[1].Readable())
	assert.True(t, res.Properties[1].Writable())
	assert.Equal(t, "System/System.Nullable`1<System/System.Int32>", res.Properties[1].Type.In("Aspire.Test").ID())

	ext := m.Types[1]
	assert.True(t, ext.IsStatic())
	require.Len(t, ext.Methods, 1)
	add := ext.Methods[0]
	assert.True(t, add.IsExtension())
	assert.True(t, add.IsStatic())
	require.Len(t, add.Params, 3)
	assert.Equal(t, "Aspire.Hosting/Aspire.Hosting.IDistributedApplicationBuilder", add.Params[0].Type.ID())
	assert.False(t, add.Params[1].Optional())
	assert.True(t, add.Params[2].Optional())
	assert.Equal(t,
		"Aspire.Hosting/Aspire.Hosting.ApplicationModel.IResourceBuilder`1<Aspire.Test/Aspire.Test.TestRedisResource>",
		add.Return.In("Aspire.Test").ID())

	box := m.Types[2]
	assert.Equal(t, "Box`1", box.Name)
	assert.True(t, box.IsValueType())
	assert.Equal(t, "System/System.Collections.Generic.List`1<!0>[]", box.Properties[0].Type.In("Aspire.Test").ID())
}

func TestParseSourceErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantPath string
	}{
		{"no name", "types: []", "name"},
		{"unknown field", "name: X\nbogus: 1\n", "source"},
		{"unknown kind", "name: X\ntypes:\n  - {name: A, kind: record}\n", "types[0].kind"},
		{"bad type expression", "name: X\ntypes:\n  - name: A\n    properties:\n      - {name: P, type: \"List<\"}\n", "types[0].properties[0].type"},
		{"missing type", "name: X\ntypes:\n  - name: A\n    methods:\n      - name: M\n        params:\n          - {name: p}\n", "types[0].methods[0].params[0].type"},
		{"extension without receiver", "name: X\ntypes:\n  - name: A\n    methods:\n      - {name: M, extension: true}\n", "types[0].methods[0].params"},
		{"duplicate type", "name: X\ntypes:\n  - {name: N.A}\n  - {name: N.A}\n", "types[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSource("bad.yaml", []byte(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrMalformedModule))
			assert.Contains(t, err.Error(), tt.wantPath)
		})
	}
}

func TestParseTypeExpr(t *testing.T) {
	aliases := map[string]string{"Builder": "Core::Core.IBuilder"}
	generics := []string{"T", "U"}

	tests := []struct {
		expr string
		want string
	}{
		{"string", "System/System.String"},
		{"int?", "System/System.Nullable`1<System/System.Int32>"},
		{"string[]", "System/System.String[]"},
		{"int?[]", "System/System.Nullable`1<System/System.Int32>[]"},
		{"T", "!0"},
		{"U[]", "!1[]"},
		{"Builder", "Core/Core.IBuilder"},
		{"Task<Builder>", "System/System.Threading.Tasks.Task`1<Core/Core.IBuilder>"},
		{"Dictionary<string, List<T>>", "System/System.Collections.Generic.Dictionary`2<System/System.String,System/System.Collections.Generic.List`1<!0>>"},
		{"Other::Ns.Thing", "Other/Ns.Thing"},
		{"Ns.Local", "Home/Ns.Local"},
		{"Ns.Gen<T>", "Home/Ns.Gen`1<!0>"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			sig, err := ParseTypeExpr(tt.expr, aliases, generics)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sig.In("Home").ID())
		})
	}

	for _, bad := range []string{"", "List<", "A,B", "Mod::", "List<string"} {
		_, err := ParseTypeExpr(bad, nil, nil)
		assert.Error(t, err, "expected %q to fail", bad)
	}
}
