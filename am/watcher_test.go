package am

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherDebouncesMatchingChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{dir}, func(path string) bool {
		return strings.HasSuffix(path, ".capmod")
	}, nil)
	require.NoError(t, err)
	defer w.Stop()

	w.SetDebounce(200 * time.Millisecond)
	changes := make(chan []string, 4)
	w.OnChange(func(paths []string) { changes <- paths })
	w.Start()

	for _, name := range []string{"b.capmod", "a.capmod", "notes.txt", "capgen.toml.back1"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), DefaultFilePermissions))
	}

	select {
	case paths := <-changes:
		assert.Equal(t, []string{filepath.Join(dir, "a.capmod"), filepath.Join(dir, "b.capmod")}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcherStopDiscardsPending(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{dir}, nil, nil)
	require.NoError(t, err)

	w.SetDebounce(time.Hour)
	fired := make(chan struct{}, 1)
	w.OnChange(func([]string) { fired <- struct{}{} })
	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.capmod"), []byte("x"), DefaultFilePermissions))
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "Stop is idempotent")

	select {
	case <-fired:
		t.Fatal("callback fired after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNewWatcherMissingPath(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, nil, nil)
	assert.Error(t, err)
}

func TestIsBackupFile(t *testing.T) {
	tests := map[string]bool{
		"capgen.toml.back1":  true,
		"capgen.toml.back3":  true,
		"capgen.toml.back4":  false,
		"capgen.toml":        false,
		"Aspire.Test.capmod": false,
		"notes.backup":       false,
	}
	for name, want := range tests {
		if got := isBackupFile(filepath.Join("/work", name)); got != want {
			t.Errorf("isBackupFile(%q) = %v, want %v", name, got, want)
		}
	}
}
