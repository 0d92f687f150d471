package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg := Default()
	cfg.Modules.Names = []string{"Aspire.Test", "Aspire.Cache"}
	cfg.Modules.SearchPaths = []string{"modules"}
	cfg.Naming.Namespaces = []NamespaceOverride{{Module: "Aspire.Cache", Namespace: "aspire.cache"}}
	cfg.Output.Postprocess = "prettier --write ."
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Modules, loaded.Modules)
	assert.Equal(t, cfg.Naming.Namespaces, loaded.Naming.Namespaces)
	assert.Equal(t, cfg.Output, loaded.Output)
	assert.Equal(t, cfg.Types.BuilderRoot, loaded.Types.BuilderRoot)
	assert.NoError(t, loaded.Validate())
}

func TestSaveRotatesBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	for _, dir := range []string{"one", "two", "three", "four", "five"} {
		cfg := Default()
		cfg.Output.Dir = dir
		require.NoError(t, Save(path, cfg))
	}

	for n, want := range map[int]string{1: "four", 2: "three", 3: "two"} {
		cfg, err := LoadFromFile(backupPath(path, n))
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Output.Dir, "backup %d", n)
	}
	_, err := os.Stat(path + ".back4")
	assert.True(t, os.IsNotExist(err), "only three backups are kept")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "five", cfg.Output.Dir)
}

func TestCreateBackupWithoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, createBackup(path))
	_, err := os.Stat(path + ".back1")
	assert.True(t, os.IsNotExist(err))
}
