package typegen

import (
	_ "embed"
	"encoding/json"
	"regexp"

	"github.com/Masterminds/semver/v3"

	"github.com/teranos/capgen/errors"
)

// Transport is the runtime bootstrap. It is static: every backend emits it
// unchanged for every model.
//
//go:embed runtime/transport.ts
var Transport []byte

// npm package names: optional scope, lower case, url-safe
var packageNameRe = regexp.MustCompile(`^(@[a-z0-9][a-z0-9._~-]*/)?[a-z0-9][a-z0-9._~-]*$`)

// Validate checks the manifest inputs
func (o Options) Validate() error {
	if len(o.PackageName) > 214 || !packageNameRe.MatchString(o.PackageName) {
		err := errors.Mark(errors.Newf("invalid package name %q", o.PackageName), errors.ErrInvalidConfig)
		return errors.WithHint(err, "use a lower-case npm package name such as @scope/client")
	}
	if _, err := semver.StrictNewVersion(o.PackageVersion); err != nil {
		err = errors.Mark(errors.Wrapf(err, "invalid package version %q", o.PackageVersion), errors.ErrInvalidConfig)
		return errors.WithHint(err, "use a semantic version such as 1.0.0")
	}
	return nil
}

type manifest struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Private bool              `json:"private"`
	Type    string            `json:"type"`
	Main    string            `json:"main"`
	Types   string            `json:"types"`
	Files   []string          `json:"files"`
	Scripts map[string]string `json:"scripts"`
}

// Manifest renders package.json. Only the name and version vary.
func Manifest(opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	m := manifest{
		Name:    opts.PackageName,
		Version: opts.PackageVersion,
		Private: true,
		Type:    "module",
		Main:    CapabilitiesFile,
		Types:   TypesFile,
		Files:   []string{CapabilitiesFile, TransportFile, TypesFile},
		Scripts: map[string]string{"typecheck": "tsc --noEmit"},
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode manifest")
	}
	return append(data, '\n'), nil
}

// Fixed returns the files every backend emits verbatim: the runtime and
// the manifest.
func Fixed(opts Options) ([]File, error) {
	pkg, err := Manifest(opts)
	if err != nil {
		return nil, err
	}
	return []File{
		{Path: TransportFile, Data: Transport},
		{Path: ManifestFile, Data: pkg},
	}, nil
}
