package legacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teranos/capgen/typegen"
	"github.com/teranos/capgen/typegen/typegentest"
)

func TestGenerateBindings(t *testing.T) {
	fs := typegentest.Render(t, NewGenerator(), typegentest.TestRedis(t))
	caps := typegentest.File(t, fs, typegen.CapabilitiesFile)

	assert.True(t, strings.HasPrefix(caps, "/* eslint-disable */\n// Generated by capgen. Do not edit.\n\n"))
	assert.Contains(t, caps, `import { invokeCapability } from "./transport";`+"\n"+
		`import type { DistributedApplicationBuilder, ResourceBuilderOfTestRedisResource, TestEnvironmentContext, TestRedisResource } from "./types";`+"\n")

	assert.Contains(t, caps, `
/** aspire.test/addTestRedis@1 (Aspire.Test.TestRedisBuilderExtensions.AddTestRedis) */
export async function addTestRedis(this: DistributedApplicationBuilder, name: string, port?: number): Promise<ResourceBuilderOfTestRedisResource> {
  return invokeCapability<ResourceBuilderOfTestRedisResource>("aspire.test/addTestRedis@1", [this, name, port]);
}
`)
	assert.Contains(t, caps,
		"export async function withPersistence(this: ResourceBuilderOfTestRedisResource, interval?: number, keysChangedThreshold?: number): Promise<ResourceBuilderOfTestRedisResource> {\n")

	// Context properties take the context as receiver and no other argument
	assert.Contains(t, caps, `export async function environmentName(this: TestEnvironmentContext): Promise<string> {
  return invokeCapability<string>("aspire.test/TestEnvironmentContext.environmentName@1", [this]);
}`)

	// Bindings follow capability id order
	env := strings.Index(caps, "function environmentName")
	add := strings.Index(caps, "function addTestRedis")
	persist := strings.Index(caps, "function withPersistence")
	assert.True(t, env < add && add < persist)
	assert.Equal(t, 4, strings.Count(caps, "export async function "))
	assert.NotContains(t, caps, "prototype", "legacy output has no class augmentation")
}

func TestGenerateTypes(t *testing.T) {
	fs := typegentest.Render(t, NewGenerator(), typegentest.TestRedis(t))
	types := typegentest.File(t, fs, typegen.TypesFile)

	assert.Contains(t, types, `
/** Aspire.Test.TestRedisResource */
export interface TestRedisResource {
  readonly handle: Handle;
  toJSON(): Handle;
  name(): Promise<string>;
  port(): Promise<number | undefined>;
}

registerProxy("Aspire.Test/Aspire.Test.TestRedisResource", (handle: Handle): TestRedisResource => ({
  handle,
  toJSON: () => handle,
  name: () => invokeMember<string>(handle, "Name", "get", []),
  port: () => invokeMember<number | undefined>(handle, "Port", "get", []),
}));
`)
	assert.Contains(t, types,
		`  build: () => invokeMember<DistributedApplication>(handle, "Build", "call", []),`)
	assert.NotContains(t, types, "onStarted", "delegate-typed members are pruned")
	assert.NotContains(t, types, "class ")

	for _, name := range []string{
		"DistributedApplication",
		"DistributedApplicationBuilder",
		"HostEnvironment",
		"ResourceBuilderOfTestRedisResource",
		"TestEnvironmentContext",
		"TestRedisResource",
	} {
		assert.Contains(t, types, "export interface "+name+" {\n")
	}
}
