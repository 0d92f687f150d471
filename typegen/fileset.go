package typegen

import (
	"path"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"

	"github.com/teranos/capgen/errors"
)

// File is one rendered output file. Path is slash-separated and relative
// to the output directory.
type File struct {
	Path string
	Data []byte
}

// FileSet is the complete output of one render, sorted by path
type FileSet []File

// NewFileSet sorts files by path and rejects empty, absolute, escaping or
// duplicate paths.
func NewFileSet(files ...File) (FileSet, error) {
	fs := make(FileSet, len(files))
	copy(fs, files)
	sort.Slice(fs, func(i, j int) bool { return fs[i].Path < fs[j].Path })
	for i, f := range fs {
		clean := path.Clean(f.Path)
		if f.Path == "" || clean != f.Path || path.IsAbs(f.Path) || clean == ".." || strings.HasPrefix(clean, "../") {
			return nil, errors.AssertionFailedf("invalid output path %q", f.Path)
		}
		if i > 0 && fs[i-1].Path == f.Path {
			return nil, errors.AssertionFailedf("output path %q rendered twice", f.Path)
		}
	}
	return fs, nil
}

// Get returns the file at p
func (fs FileSet) Get(p string) (File, bool) {
	i := sort.Search(len(fs), func(i int) bool { return fs[i].Path >= p })
	if i < len(fs) && fs[i].Path == p {
		return fs[i], true
	}
	return File{}, false
}

// Paths returns the file paths in order
func (fs FileSet) Paths() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Path
	}
	return out
}

// Archive renders the set as a txtar archive, the format used for
// `generate --stdout` and for snapshot comparisons.
func (fs FileSet) Archive(comment string) []byte {
	a := &txtar.Archive{}
	if comment != "" {
		a.Comment = []byte(comment + "\n")
	}
	for _, f := range fs {
		a.Files = append(a.Files, txtar.File{Name: f.Path, Data: f.Data})
	}
	return txtar.Format(a)
}

// ParseArchive is the inverse of Archive
func ParseArchive(data []byte) (FileSet, error) {
	a := txtar.Parse(data)
	files := make([]File, len(a.Files))
	for i, f := range a.Files {
		files[i] = File{Path: f.Name, Data: f.Data}
	}
	return NewFileSet(files...)
}
