package testing

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/capgen/metadata"
)

// Names declared by CoreSource
const (
	CoreModule      = "Aspire.Hosting"
	BuilderRoot     = "Aspire.Hosting.IDistributedApplicationBuilder"
	BuilderFamily   = "Aspire.Hosting.ApplicationModel.IResourceBuilder`1"
	ContextMarker   = "Aspire.Hosting.AspireContextAttribute"
	ExportMarker    = "Aspire.Hosting.AspireExportAttribute"
	NamespaceMarker = "Aspire.Hosting.CapabilityNamespaceAttribute"
)

// CoreSource is a minimal core module: the builder root, the resource
// builder family and the marker attributes.
const CoreSource = `
name: Aspire.Hosting
version: 9.0.0
types:
  - name: Aspire.Hosting.IDistributedApplicationBuilder
    kind: interface
    properties:
      - {name: AppHostDirectory, type: string}
      - {name: Environment, type: Aspire.Hosting.IHostEnvironment}
      - {name: Services, type: IServiceProvider}
    methods:
      - name: Build
        returns: Aspire.Hosting.DistributedApplication
  - name: Aspire.Hosting.IHostEnvironment
    kind: interface
    properties:
      - {name: ApplicationName, type: string}
      - {name: EnvironmentName, type: string}
  - name: Aspire.Hosting.DistributedApplication
    methods:
      - name: RunAsync
        returns: Task
        params:
          - {name: cancellationToken, type: CancellationToken, optional: true}
  - name: Aspire.Hosting.ApplicationModel.IResource
    kind: interface
    properties:
      - {name: Name, type: string}
  - name: Aspire.Hosting.ApplicationModel.IResourceBuilder
    kind: interface
    generics: [T]
    properties:
      - {name: ApplicationBuilder, type: Aspire.Hosting.IDistributedApplicationBuilder}
      - {name: Resource, type: T}
  - name: Aspire.Hosting.AspireContextAttribute
  - name: Aspire.Hosting.AspireExportAttribute
  - name: Aspire.Hosting.CapabilityNamespaceAttribute
`

// TestRedisSource is an integration module exporting addTestRedis and
// withPersistence under the aspire.test namespace, plus a context type.
const TestRedisSource = `
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
      - {name: Port, type: int?}
      - {name: OnStarted, type: Func<Task>}
  - name: Aspire.Test.TestRedisBuilderExtensions
    static: true
    methods:
      - name: AddTestRedis
        extension: true
        returns: ResourceBuilder<Aspire.Test.TestRedisResource>
        params:
          - {name: builder, type: Builder}
          - {name: name, type: string}
          - {name: port, type: int?, optional: true}
      - name: WithPersistence
        extension: true
        returns: ResourceBuilder<Aspire.Test.TestRedisResource>
        params:
          - {name: builder, type: ResourceBuilder<Aspire.Test.TestRedisResource>}
          - {name: interval, type: TimeSpan?, optional: true}
          - {name: keysChangedThreshold, type: long, optional: true}
  - name: Aspire.Test.TestEnvironmentContext
    attributes:
      - type: Aspire.Hosting::Aspire.Hosting.AspireContextAttribute
        args: [aspire.test]
    properties:
      - {name: EnvironmentName, type: string}
      - {name: Resource, type: Aspire.Test.TestRedisResource}
      - {name: CancellationToken, type: CancellationToken}
`

// WriteModule encodes def into dir and returns the file path
func WriteModule(t *testing.T, dir string, def *metadata.ModuleDef) string {
	t.Helper()
	path := filepath.Join(dir, def.Name+metadata.Extension)
	if err := os.WriteFile(path, metadata.Encode(def), 0o644); err != nil {
		t.Fatalf("Failed to write module %s: %v", def.Name, err)
	}
	return path
}

// CompileSource compiles a YAML module source, failing the test on error
func CompileSource(t *testing.T, src string) *metadata.ModuleDef {
	t.Helper()
	def, err := metadata.ParseSource(t.Name()+".yaml", []byte(src))
	if err != nil {
		t.Fatalf("Failed to compile module source: %v", err)
	}
	return def
}

// ModuleDir compiles sources into a fresh temp directory and returns it.
// Automatically cleaned up by t.TempDir().
func ModuleDir(t *testing.T, sources ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, src := range sources {
		WriteModule(t, dir, CompileSource(t, src))
	}
	return dir
}

// ObservedLogger returns a logger recording entries at level and above
func ObservedLogger(level zapcore.Level) (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core).Sugar(), logs
}
