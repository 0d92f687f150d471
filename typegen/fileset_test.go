package typegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileSetSortsByPath(t *testing.T) {
	fs, err := NewFileSet(
		File{Path: TypesFile, Data: []byte("types\n")},
		File{Path: CapabilitiesFile, Data: []byte("caps\n")},
		File{Path: "nested/index.ts", Data: []byte("index\n")},
		File{Path: ManifestFile, Data: []byte("{}\n")},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"capabilities.ts", "nested/index.ts", "package.json", "types.ts"}, fs.Paths())

	f, ok := fs.Get("nested/index.ts")
	require.True(t, ok)
	assert.Equal(t, "index\n", string(f.Data))
	_, ok = fs.Get("missing.ts")
	assert.False(t, ok)
}

func TestNewFileSetRejectsBadPaths(t *testing.T) {
	tests := []struct {
		name  string
		files []File
	}{
		{"empty", []File{{Path: ""}}},
		{"absolute", []File{{Path: "/etc/passwd"}}},
		{"parent", []File{{Path: "../outside.ts"}}},
		{"unclean", []File{{Path: "a/../b.ts"}}},
		{"duplicate", []File{{Path: "a.ts"}, {Path: "a.ts"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileSet(tt.files...)
			assert.Error(t, err)
		})
	}
}

func TestArchive(t *testing.T) {
	fs, err := NewFileSet(
		File{Path: "b.ts", Data: []byte("export const b = 2;\n")},
		File{Path: "a.ts", Data: []byte("export const a = 1;\n")},
	)
	require.NoError(t, err)

	archive := fs.Archive("capgen typescript")
	assert.Equal(t, "capgen typescript\n-- a.ts --\nexport const a = 1;\n-- b.ts --\nexport const b = 2;\n", string(archive))

	parsed, err := ParseArchive(archive)
	require.NoError(t, err)
	assert.Equal(t, fs, parsed)
}
