package am

import (
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/typegen"
)

// Validate checks that the configuration is valid. Every failure is
// marked errors.ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return errors.Mark(err, errors.ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Modules.Core == "" {
		return errors.New("modules.core cannot be empty")
	}
	if len(c.Modules.SearchPaths) == 0 {
		return errors.WithHint(errors.New("modules.search_paths cannot be empty"),
			"list the directories holding .capmod files")
	}
	seen := make(map[string]bool, len(c.Modules.Names))
	for _, name := range c.Modules.Names {
		if name == "" {
			return errors.New("modules.names cannot contain an empty name")
		}
		if seen[name] {
			return errors.Newf("modules.names lists %q twice", name)
		}
		seen[name] = true
	}

	if c.Types.BuilderRoot == "" {
		return errors.New("types.builder_root cannot be empty")
	}
	for _, root := range c.Types.Roots {
		if _, _, err := SplitRoot(c.Modules.Core, root); err != nil {
			return err
		}
	}

	overridden := make(map[string]bool, len(c.Naming.Namespaces))
	for _, o := range c.Naming.Namespaces {
		if o.Module == "" || o.Namespace == "" {
			return errors.Newf("naming.namespaces entry %+v needs both module and namespace", o)
		}
		if overridden[o.Module] {
			return errors.Newf("naming.namespaces overrides module %q twice", o.Module)
		}
		overridden[o.Module] = true
	}

	if c.Output.Dir == "" {
		return errors.New("output.dir cannot be empty")
	}
	if c.Output.Backend == "" {
		return errors.WithHint(errors.New("output.backend cannot be empty"), "use typescript or legacy")
	}
	opts := typegen.Options{PackageName: c.Output.PackageName, PackageVersion: c.Output.PackageVersion}
	if err := opts.Validate(); err != nil {
		return err
	}
	if c.Output.Postprocess != "" {
		if _, err := shellquote.Split(c.Output.Postprocess); err != nil {
			return errors.Wrapf(err, "output.postprocess %q", c.Output.Postprocess)
		}
	}
	return nil
}

// SplitRoot splits a configured proxy root into module and full type name.
// A root without a module qualifier names a type in core.
func SplitRoot(core, root string) (module, fullName string, err error) {
	module, fullName = core, root
	if i := strings.IndexByte(root, '/'); i >= 0 {
		module, fullName = root[:i], root[i+1:]
	}
	if module == "" || fullName == "" || strings.ContainsRune(fullName, '/') {
		return "", "", errors.Newf("types.roots entry %q must be Full.Name or Module/Full.Name", root)
	}
	return module, fullName, nil
}
