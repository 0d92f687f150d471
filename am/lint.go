package am

import (
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/teranos/capgen/errors"
)

// Lint decodes a config file on its own and reports what viper would
// only report vaguely: syntax errors with their position and keys that
// match no setting. The file's values are not validated.
func Lint(path string) error {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return errors.Mark(
				errors.WithDetail(errors.Newf("%s: %s", path, perr.Message), perr.ErrorWithPosition()),
				errors.ErrInvalidConfig)
		}
		return errors.Mark(errors.Wrapf(err, "failed to decode %s", path), errors.ErrInvalidConfig)
	}

	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	sort.Strings(keys)
	return errors.Mark(
		errors.WithHint(errors.Newf("%s: unknown keys %v", path, keys), "run 'capgen config show' to list valid keys"),
		errors.ErrInvalidConfig)
}
