package am

import "path/filepath"

// ConfigFileName is the project configuration file searched for upward from the working directory
const ConfigFileName = "capgen.toml"

// Config represents the capgen configuration
type Config struct {
	Modules ModulesConfig `mapstructure:"modules" toml:"modules"`
	Types   TypesConfig   `mapstructure:"types" toml:"types"`
	Naming  NamingConfig  `mapstructure:"naming" toml:"naming"`
	Output  OutputConfig  `mapstructure:"output" toml:"output"`

	// Dir is the directory relative paths resolve against: the directory
	// holding the config file, or the working directory when none was read
	Dir string `mapstructure:"-" toml:"-"`
}

// ModulesConfig selects the modules a run scans and where to find them
type ModulesConfig struct {
	Names       []string `mapstructure:"names" toml:"names"`               // modules to extract capabilities from
	SearchPaths []string `mapstructure:"search_paths" toml:"search_paths"` // ordered; first directory holding <name>.capmod wins
	Core        string   `mapstructure:"core" toml:"core"`                 // module exporting the builder root
}

// TypesConfig names the well-known types and marker attributes.
// Every name is a full type name inside the core module.
type TypesConfig struct {
	BuilderRoot     string   `mapstructure:"builder_root" toml:"builder_root"`
	BuilderFamilies []string `mapstructure:"builder_families" toml:"builder_families"`
	// Roots are extra proxy roots, either "Module/Full.Name" or a full name in the core module
	Roots           []string `mapstructure:"roots" toml:"roots"`
	ContextMarker   string   `mapstructure:"context_marker" toml:"context_marker"`
	ExportMarker    string   `mapstructure:"export_marker" toml:"export_marker"`
	NamespaceMarker string   `mapstructure:"namespace_marker" toml:"namespace_marker"`
}

// NamingConfig is the identifier policy of the capability extractor
type NamingConfig struct {
	Namespaces    []NamespaceOverride `mapstructure:"namespaces" toml:"namespaces"`
	StripPrefixes []string            `mapstructure:"strip_prefixes" toml:"strip_prefixes"`
	StripSuffixes []string            `mapstructure:"strip_suffixes" toml:"strip_suffixes"`
}

// NamespaceOverride pins the capability namespace of one module.
// Written as an array of tables because module names contain dots.
type NamespaceOverride struct {
	Module    string `mapstructure:"module" toml:"module"`
	Namespace string `mapstructure:"namespace" toml:"namespace"`
}

// OutputConfig configures the rendered client package
type OutputConfig struct {
	Dir            string `mapstructure:"dir" toml:"dir"`
	Backend        string `mapstructure:"backend" toml:"backend"` // typescript, legacy
	PackageName    string `mapstructure:"package_name" toml:"package_name"`
	PackageVersion string `mapstructure:"package_version" toml:"package_version"`
	Postprocess    string `mapstructure:"postprocess" toml:"postprocess"` // command run in the output dir after writing
}

// NamespaceMap returns the overrides keyed by module name
func (n NamingConfig) NamespaceMap() map[string]string {
	if len(n.Namespaces) == 0 {
		return nil
	}
	out := make(map[string]string, len(n.Namespaces))
	for _, o := range n.Namespaces {
		out[o.Module] = o.Namespace
	}
	return out
}

// Path resolves p against the config directory
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// SearchPaths returns the module search paths resolved against the config directory
func (c *Config) SearchPaths() []string {
	out := make([]string, len(c.Modules.SearchPaths))
	for i, p := range c.Modules.SearchPaths {
		out[i] = c.Path(p)
	}
	return out
}

// OutputDir returns the output directory resolved against the config directory
func (c *Config) OutputDir() string {
	return c.Path(c.Output.Dir)
}

// File permission constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
