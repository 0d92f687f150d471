package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSettingsFromSource(t *testing.T) {
	t.Run("Nested settings", func(t *testing.T) {
		settings := map[string]interface{}{
			"output": map[string]interface{}{
				"dir":     "client",
				"backend": "legacy",
			},
			"modules": map[string]interface{}{
				"names": []interface{}{"Aspire.Test"},
			},
		}

		sourceMap := make(map[string]SourceInfo)
		markSettingsFromSource(settings, "", SourceProject, "/work/capgen.toml", sourceMap)

		assert.Len(t, sourceMap, 3)
		assert.Equal(t, SourceProject, sourceMap["output.dir"].Source)
		assert.Equal(t, SourceProject, sourceMap["modules.names"].Source, "slices are leaves")
		assert.Equal(t, "/work/capgen.toml", sourceMap["output.backend"].Path)
	})
}

func TestFlattenSettingsWithSources(t *testing.T) {
	settings := map[string]interface{}{
		"output": map[string]interface{}{
			"dir":     "client",
			"backend": "typescript",
		},
	}
	sourceMap := map[string]SourceInfo{
		"output.dir": {Source: SourceUser, Path: "/home/user/.config/capgen/capgen.toml"},
	}

	t.Run("Sorted with defaults", func(t *testing.T) {
		introspection := &ConfigIntrospection{Settings: make([]SettingInfo, 0)}
		flattenSettingsWithSources(settings, "", introspection, sourceMap)

		require.Len(t, introspection.Settings, 2)
		backend, dir := introspection.Settings[0], introspection.Settings[1]
		assert.Equal(t, "output.backend", backend.Key)
		assert.Equal(t, SourceDefault, backend.Source)
		assert.Equal(t, "built-in default", backend.SourcePath)
		assert.Equal(t, "output.dir", dir.Key)
		assert.Equal(t, SourceUser, dir.Source)
		assert.Equal(t, "client", dir.Value)
	})

	t.Run("Environment variable override", func(t *testing.T) {
		t.Setenv("CAPGEN_OUTPUT_DIR", "elsewhere")

		introspection := &ConfigIntrospection{Settings: make([]SettingInfo, 0)}
		flattenSettingsWithSources(settings, "", introspection, sourceMap)

		dir := introspection.Settings[1]
		assert.Equal(t, SourceEnvironment, dir.Source)
		assert.Equal(t, "CAPGEN_OUTPUT_DIR", dir.SourcePath)
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "CAPGEN_OUTPUT_PACKAGE_VERSION", EnvKey("output.package_version"))
	assert.Equal(t, "CAPGEN_MODULES_SEARCH_PATHS", EnvKey("modules.search_paths"))
}

func TestGetConfigIntrospection(t *testing.T) {
	root := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName),
		[]byte("[output]\nbackend = \"legacy\"\n"), DefaultFilePermissions))
	t.Setenv("CAPGEN_OUTPUT_DIR", "client")

	introspection, err := GetConfigIntrospection()
	require.NoError(t, err)
	assert.Equal(t, root, introspection.Dir)

	byKey := make(map[string]SettingInfo)
	for _, s := range introspection.Settings {
		byKey[s.Key] = s
	}
	assert.Equal(t, SourceProject, byKey["output.backend"].Source)
	assert.Equal(t, SourceEnvironment, byKey["output.dir"].Source)
	assert.Equal(t, SourceDefault, byKey["modules.core"].Source)
}
