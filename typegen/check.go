package typegen

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/teranos/capgen/errors"
)

// CheckResult holds the result of comparing a render with an output directory
type CheckResult struct {
	Missing []string // rendered but absent from the directory
	Changed []string // present with different content
	Extra   []string // present in the directory but no longer rendered
}

// UpToDate reports whether the directory matches the render exactly
func (r *CheckResult) UpToDate() bool {
	return len(r.Missing) == 0 && len(r.Changed) == 0 && len(r.Extra) == 0
}

// Differences returns every drifted path, sorted
func (r *CheckResult) Differences() []string {
	out := make([]string, 0, len(r.Missing)+len(r.Changed)+len(r.Extra))
	out = append(out, r.Missing...)
	out = append(out, r.Changed...)
	out = append(out, r.Extra...)
	sort.Strings(out)
	return out
}

// Check compares a fresh render with the files in dir. A missing dir
// reports every rendered file as missing.
func Check(dir string, files FileSet) (*CheckResult, error) {
	result := &CheckResult{}
	rendered := make(map[string]bool, len(files))

	for _, f := range files {
		rendered[f.Path] = true
		existing, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
		if os.IsNotExist(err) {
			result.Missing = append(result.Missing, f.Path)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", f.Path)
		}
		if !bytes.Equal(existing, f.Data) {
			result.Changed = append(result.Changed, f.Path)
		}
	}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); !rendered[rel] && rel != MarkerFile {
			result.Extra = append(result.Extra, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", dir)
	}

	sort.Strings(result.Missing)
	sort.Strings(result.Changed)
	sort.Strings(result.Extra)
	return result, nil
}
