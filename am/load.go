package am

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/capgen/errors"
)

// EnvPrefix prefixes environment overrides: CAPGEN_OUTPUT_DIR sets output.dir
const EnvPrefix = "CAPGEN"

var (
	globalConfig  *Config
	viperInstance *viper.Viper
	configDir     string
	mergeErr      error
)

// ConfigSources records which file set each dotted key during the last Load
var ConfigSources = make(map[string]SourceInfo)

// Load reads the configuration: defaults, then the user config, then the
// nearest capgen.toml above the working directory, then CAPGEN_* variables
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()
	if mergeErr != nil {
		return nil, mergeErr
	}
	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}
	config.Dir = configDir

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance.
// Keys that match no setting are rejected.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.UnmarshalExact(&config); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to unmarshal config"), errors.ErrInvalidConfig)
	}
	if used := v.ConfigFileUsed(); used != "" {
		config.Dir = filepath.Dir(used)
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path. Neither the
// user config nor environment variables are consulted.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if lintErr := Lint(configPath); lintErr != nil {
			return nil, lintErr
		}
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
	configDir = ""
	mergeErr = nil
	ConfigSources = make(map[string]SourceInfo)
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Merge configs in precedence order: user -> project -> env vars
	mergeErr = mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig searches for capgen.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// ProjectConfig returns the nearest capgen.toml at or above the working
// directory, or "" when there is none
func ProjectConfig() string {
	return findProjectConfig()
}

// UserConfig returns the path of the user config file, whether or not it exists
func UserConfig() string {
	return userConfigPath()
}

// userConfigPath returns <user config dir>/capgen/capgen.toml, or "" when
// the platform has no user config directory
func userConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "capgen", ConfigFileName)
}

// mergeConfigFiles merges configuration files in precedence order and
// records the source of every key they set. Missing files are skipped;
// a file that exists but does not parse fails the load.
func mergeConfigFiles(v *viper.Viper) error {
	configDir, _ = os.Getwd()

	type layer struct {
		path   string
		source ConfigSource
	}
	layers := []layer{{userConfigPath(), SourceUser}}
	if project := findProjectConfig(); project != "" {
		layers = append(layers, layer{project, SourceProject})
		configDir = filepath.Dir(project)
	}

	for _, l := range layers {
		if l.path == "" {
			continue
		}
		if _, err := os.Stat(l.path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(l.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			if lintErr := Lint(l.path); lintErr != nil {
				return lintErr
			}
			return errors.Mark(errors.Wrapf(err, "failed to read config file %s", l.path), errors.ErrInvalidConfig)
		}

		settings := tempViper.AllSettings()
		markSettingsFromSource(settings, "", l.source, l.path, ConfigSources)
		if err := v.MergeConfigMap(settings); err != nil {
			return errors.Wrapf(err, "failed to merge config file %s", l.path)
		}
	}
	return nil
}

// markSettingsFromSource records source for every leaf key of settings
func markSettingsFromSource(settings map[string]interface{}, prefix string, source ConfigSource, path string, sourceMap map[string]SourceInfo) {
	for key, value := range settings {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			markSettingsFromSource(nested, fullKey, source, path, sourceMap)
			continue
		}
		sourceMap[fullKey] = SourceInfo{Source: source, Path: path}
	}
}
