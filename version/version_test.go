package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Path: "github.com/teranos/capgen", Version: "v0.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	info := Info{CommitHash: "dev", BuildTime: "unknown", Version: "dev", GoVersion: "go1.24.6", Platform: "linux/amd64"}
	info.fill(bi)

	assert.Equal(t, "v0.3.0", info.Version)
	assert.Equal(t, "0123456", info.Short())
	assert.Equal(t, "capgen v0.3.0 (commit 0123456+dirty, built 2026-10-01T12:00:00Z, go1.24.6 linux/amd64)", info.String())
}

func TestLdflagsWin(t *testing.T) {
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fedcba9876543210"}},
	}

	info := Info{CommitHash: "abc1234def", BuildTime: "today", Version: "v1.0.0"}
	info.fill(bi)

	assert.Equal(t, "v1.0.0", info.Version)
	assert.Equal(t, "abc1234", info.Short())
	assert.False(t, info.Modified)
}
