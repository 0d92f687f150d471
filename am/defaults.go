package am

import "github.com/spf13/viper"

// Default names of the well-known types in the core module
const (
	DefaultCoreModule      = "Aspire.Hosting"
	DefaultBuilderRoot     = "Aspire.Hosting.IDistributedApplicationBuilder"
	DefaultBuilderFamily   = "Aspire.Hosting.ApplicationModel.IResourceBuilder`1"
	DefaultContextMarker   = "Aspire.Hosting.AspireContextAttribute"
	DefaultExportMarker    = "Aspire.Hosting.AspireExportAttribute"
	DefaultNamespaceMarker = "Aspire.Hosting.CapabilityNamespaceAttribute"
)

// Default output settings
const (
	DefaultOutputDir      = "generated"
	DefaultBackend        = "typescript"
	DefaultPackageName    = "@aspire/client"
	DefaultPackageVersion = "0.1.0"
)

// SetDefaults configures default values for all configuration options.
// Every key gets a default so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	// Modules
	v.SetDefault("modules.names", []string{})
	v.SetDefault("modules.search_paths", []string{"."})
	v.SetDefault("modules.core", DefaultCoreModule)

	// Well-known types
	v.SetDefault("types.builder_root", DefaultBuilderRoot)
	v.SetDefault("types.builder_families", []string{DefaultBuilderFamily})
	v.SetDefault("types.roots", []string{})
	v.SetDefault("types.context_marker", DefaultContextMarker)
	v.SetDefault("types.export_marker", DefaultExportMarker)
	v.SetDefault("types.namespace_marker", DefaultNamespaceMarker)

	// Naming policy
	v.SetDefault("naming.namespaces", []map[string]any{})
	v.SetDefault("naming.strip_prefixes", []string{})
	v.SetDefault("naming.strip_suffixes", []string{"Async"})

	// Output
	v.SetDefault("output.dir", DefaultOutputDir)
	v.SetDefault("output.backend", DefaultBackend)
	v.SetDefault("output.package_name", DefaultPackageName)
	v.SetDefault("output.package_version", DefaultPackageVersion)
	v.SetDefault("output.postprocess", "")
}

// Default returns the configuration SetDefaults describes
func Default() *Config {
	return &Config{
		Modules: ModulesConfig{
			Names:       []string{},
			SearchPaths: []string{"."},
			Core:        DefaultCoreModule,
		},
		Types: TypesConfig{
			BuilderRoot:     DefaultBuilderRoot,
			BuilderFamilies: []string{DefaultBuilderFamily},
			Roots:           []string{},
			ContextMarker:   DefaultContextMarker,
			ExportMarker:    DefaultExportMarker,
			NamespaceMarker: DefaultNamespaceMarker,
		},
		Naming: NamingConfig{
			Namespaces:    []NamespaceOverride{},
			StripPrefixes: []string{},
			StripSuffixes: []string{"Async"},
		},
		Output: OutputConfig{
			Dir:            DefaultOutputDir,
			Backend:        DefaultBackend,
			PackageName:    DefaultPackageName,
			PackageVersion: DefaultPackageVersion,
		},
	}
}
