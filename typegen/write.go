package typegen

import (
	"bufio"
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teranos/capgen/errors"
)

// MarkerFile lists the files of the last write. It marks a directory as
// generator output.
const MarkerFile = ".capgen"

const markerHeader = "# Generated by capgen. The files listed below are replaced on every run."

// WriteAll replaces dir with exactly the files of fs plus MarkerFile. The
// files are staged in a sibling temporary directory which is then renamed
// into place, so a failed write leaves dir as it was and no partial output
// behind.
//
// An existing dir is only replaced when it is empty or holds nothing but
// the files its marker lists; otherwise WriteAll refuses with
// errors.ErrInvalidConfig and touches nothing.
func WriteAll(dir string, files FileSet) (err error) {
	dir = filepath.Clean(dir)
	parent, base := filepath.Split(dir)
	if parent == "" {
		parent = "."
	}
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.Wrapf(err, "failed to create %s", parent)
	}

	stage, err := os.MkdirTemp(parent, "."+base+".stage-*")
	if err != nil {
		return errors.Wrap(err, "failed to create staging directory")
	}
	defer func() {
		if err != nil {
			os.RemoveAll(stage)
		}
	}()

	for _, f := range files {
		target := filepath.Join(stage, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return errors.Wrapf(err, "failed to stage %s", f.Path)
		}
		if err := os.WriteFile(target, f.Data, 0644); err != nil {
			return errors.Wrapf(err, "failed to stage %s", f.Path)
		}
	}
	if err := os.WriteFile(filepath.Join(stage, MarkerFile), marker(files), 0644); err != nil {
		return errors.Wrapf(err, "failed to stage %s", MarkerFile)
	}
	// MkdirTemp creates 0700
	if err := os.Chmod(stage, 0755); err != nil {
		return errors.Wrap(err, "failed to set output permissions")
	}

	info, statErr := os.Stat(dir)
	switch {
	case os.IsNotExist(statErr):
		if err := os.Rename(stage, dir); err != nil {
			return errors.Wrapf(err, "failed to move output into %s", dir)
		}
		return nil
	case statErr != nil:
		return errors.Wrapf(statErr, "failed to inspect %s", dir)
	case !info.IsDir():
		return errors.Newf("output path %s exists and is not a directory", dir)
	}
	if err := checkOwned(dir); err != nil {
		return err
	}

	backup, err := os.MkdirTemp(parent, "."+base+".old-*")
	if err != nil {
		return errors.Wrap(err, "failed to reserve backup directory")
	}
	// Rename needs the destination to be absent
	if err := os.Remove(backup); err != nil {
		return errors.Wrap(err, "failed to reserve backup directory")
	}
	if err := os.Rename(dir, backup); err != nil {
		return errors.Wrapf(err, "failed to move previous output %s aside", dir)
	}
	if err := os.Rename(stage, dir); err != nil {
		if restoreErr := os.Rename(backup, dir); restoreErr != nil {
			err = errors.WithDetailf(err, "previous output left at %s", backup)
		}
		return errors.Wrapf(err, "failed to move output into %s", dir)
	}
	if err := os.RemoveAll(backup); err != nil {
		return errors.Wrapf(err, "output written but previous output remains at %s", backup)
	}
	return nil
}

// marker renders MarkerFile for files
func marker(files FileSet) []byte {
	var b bytes.Buffer
	b.WriteString(markerHeader + "\n")
	for _, p := range files.Paths() {
		b.WriteString(p + "\n")
	}
	return b.Bytes()
}

// checkOwned verifies dir holds only generator output: it is empty, or
// every file in it is listed by its marker.
func checkOwned(dir string) error {
	listed := map[string]bool{MarkerFile: true}
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	switch {
	case err == nil:
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
				listed[line] = true
			}
		}
	case !os.IsNotExist(err):
		return errors.Wrapf(err, "failed to read %s", MarkerFile)
	}

	var foreign []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel = filepath.ToSlash(rel); !listed[rel] {
			foreign = append(foreign, rel)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to scan %s", dir)
	}
	if len(foreign) == 0 {
		return nil
	}

	sort.Strings(foreign)
	err = errors.Newf("output directory %s holds files capgen did not generate: %s", dir, strings.Join(foreign, ", "))
	err = errors.Mark(err, errors.ErrInvalidConfig)
	return errors.WithHint(err, "point output.dir at a directory used only for generated files, or remove those files")
}
