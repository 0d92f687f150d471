package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/capgen/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), DefaultFilePermissions))
	return path
}

func TestLint(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeConfig(t, `
[modules]
names = ["Aspire.Test"]

[[naming.namespaces]]
module = "Aspire.Test"
namespace = "aspire.test"
`)
		assert.NoError(t, Lint(path))
	})

	t.Run("saved config lints clean", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, Save(path, Default()))
		assert.NoError(t, Lint(path))
	})

	t.Run("unknown keys", func(t *testing.T) {
		path := writeConfig(t, "[output]\nbacknd = \"legacy\"\n\n[extra]\nx = 1\n")
		err := Lint(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		assert.Contains(t, err.Error(), "output.backnd")
		assert.Contains(t, err.Error(), "extra")
	})

	t.Run("syntax error carries position", func(t *testing.T) {
		path := writeConfig(t, "[output]\ndir = \n")
		err := Lint(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
		assert.Contains(t, errors.FlattenDetails(err), "At line")
	})
}

func TestLoadFromFile_SyntaxErrorUsesLint(t *testing.T) {
	path := writeConfig(t, "[modules\nnames = []\n")
	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
