package typescript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/typegen"
	"github.com/teranos/capgen/typegen/typegentest"
)

func TestGenerateClasses(t *testing.T) {
	fs := typegentest.Render(t, NewGenerator(), typegentest.TestRedis(t))
	types := typegentest.File(t, fs, typegen.TypesFile)

	assert.True(t, strings.HasPrefix(types, "/* eslint-disable */\n// Generated by capgen. Do not edit.\n\n"+
		`import { ProxyObject, registerProxy } from "./transport";`+"\n\n"))

	assert.Contains(t, types, `
/** Aspire.Test.TestRedisResource */
export class TestRedisResource extends ProxyObject {
  get name(): Promise<string> {
    return this.invokeMember<string>("Name", "get", []);
  }

  get port(): Promise<number | undefined> {
    return this.invokeMember<number | undefined>("Port", "get", []);
  }
}

registerProxy("Aspire.Test/Aspire.Test.TestRedisResource", (handle) => new TestRedisResource(handle));
`)
	assert.Contains(t, types, `
  get environment(): Promise<HostEnvironment> {
    return this.invokeMember<HostEnvironment>("Environment", "get", []);
  }

  build(): Promise<DistributedApplication> {
    return this.invokeMember<DistributedApplication>("Build", "call", []);
  }
}
`)
	// Trailing cancellation tokens are not part of the client signature
	assert.Contains(t, types, "  runAsync(): Promise<void> {\n")
	assert.True(t, strings.HasSuffix(types, "(handle));\n"))
}

func TestGenerateBindingsAndMounts(t *testing.T) {
	fs := typegentest.Render(t, NewGenerator(), typegentest.TestRedis(t))
	caps := typegentest.File(t, fs, typegen.CapabilitiesFile)

	assert.Contains(t, caps,
		`import { DistributedApplicationBuilder, ResourceBuilderOfTestRedisResource, TestEnvironmentContext, TestRedisResource } from "./types";`)
	assert.Contains(t, caps, `
/** aspire.test/addTestRedis@1 (Aspire.Test.TestRedisBuilderExtensions.AddTestRedis) */
export async function addTestRedis(this: DistributedApplicationBuilder, name: string, port?: number): Promise<ResourceBuilderOfTestRedisResource> {
  return invokeCapability<ResourceBuilderOfTestRedisResource>("aspire.test/addTestRedis@1", [this, name, port]);
}
`)

	assert.Contains(t, caps, `
declare module "./types" {
  interface DistributedApplicationBuilder {
    addTestRedis(name: string, port?: number): Promise<ResourceBuilderOfTestRedisResource>;
  }

  interface ResourceBuilderOfTestRedisResource {
    withPersistence(interval?: number, keysChangedThreshold?: number): Promise<ResourceBuilderOfTestRedisResource>;
  }
}

DistributedApplicationBuilder.prototype.addTestRedis = addTestRedis;
ResourceBuilderOfTestRedisResource.prototype.withPersistence = withPersistence;
`)
	assert.True(t, strings.HasSuffix(caps, "= withPersistence;\n"))

	// Context properties already exist as getters and are not mounted again
	assert.NotContains(t, caps, "TestEnvironmentContext.prototype")
	assert.Contains(t, caps, "export async function environmentName(this: TestEnvironmentContext): Promise<string> {")
}

func TestMounts(t *testing.T) {
	r := &typegen.Render{
		Bindings: []typegen.Binding{
			{ID: "a/b@1", Name: "build", Member: "build", ReceiverID: "M/M.Builder"},
			{ID: "a/c@1", Name: "configure", Member: "configure", ReceiverID: "M/M.Builder"},
			{ID: "a/d@1", Name: "describe", Member: "describe", ReceiverID: ""},
			{ID: "a/e@1", Name: "setLabel", Member: "setLabel", ReceiverID: "M/M.Builder"},
			{ID: "a/f@1", Name: "aWithVolume", Member: "withVolume", ReceiverID: "M/M.Builder"},
			{ID: "b/f@1", Name: "bWithVolume", Member: "withVolume", ReceiverID: "M/M.Builder"},
			{ID: "b/g@1", Name: "bWithData", Member: "withData", ReceiverID: "M/M.Builder"},
		},
		Proxies: []typegen.Proxy{{
			ClassName:  "Builder",
			TypeID:     "M/M.Builder",
			Properties: []typegen.Property{{Name: "label", Setter: "setLabel"}},
			Methods:    []typegen.Method{{Name: "build"}},
		}},
	}

	mounts := Mounts(r)
	require.Len(t, mounts, 1)
	assert.Equal(t, "Builder", mounts[0].ClassName)
	require.Len(t, mounts[0].Bindings, 2, "clashing, shared and receiver-less bindings stay free functions")
	assert.Equal(t, "configure", mounts[0].Bindings[0].Name)
	assert.Equal(t, "bWithData", mounts[0].Bindings[1].Name)
	assert.Equal(t, "withData", mounts[0].Bindings[1].Member)
}

func TestGenerateEmptyModel(t *testing.T) {
	fs := typegentest.Render(t, NewGenerator(), typegentest.Model(t, nil))
	caps := typegentest.File(t, fs, typegen.CapabilitiesFile)

	assert.Equal(t, "/* eslint-disable */\n// Generated by capgen. Do not edit.\n\n"+
		`import { invokeCapability } from "./transport";`+"\n", caps)
	assert.Contains(t, typegentest.File(t, fs, typegen.TypesFile), "export class DistributedApplicationBuilder extends ProxyObject {")
}
