package pipeline

import (
	"context"
	"os"
	"strings"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/metadata"
)

// ResultFunc receives the outcome of every run of Watch
type ResultFunc func(*Result, error)

// Watch generates once, then again whenever a module file in a search
// path changes, until ctx is done. Each generation is an independent run.
// Runs never overlap; changes arriving during a run trigger one more.
// A failed run is reported through onResult and watching continues.
func Watch(ctx context.Context, cfg *am.Config, opts Options, onResult ResultFunc) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.OrComponent(opts.Logger, "pipeline")

	var dirs []string
	for _, p := range cfg.SearchPaths() {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs = append(dirs, p)
		}
	}
	if len(dirs) == 0 {
		return errors.Mark(errors.Newf("no search path of %v exists", cfg.Modules.SearchPaths), errors.ErrInvalidConfig)
	}

	w, err := am.NewWatcher(dirs, func(path string) bool {
		return strings.HasSuffix(path, metadata.Extension)
	}, log.Named("watch"))
	if err != nil {
		return err
	}
	defer w.Stop()
	if opts.Debounce > 0 {
		w.SetDebounce(opts.Debounce)
	}

	trigger := make(chan []string, 1)
	w.OnChange(func(paths []string) {
		select {
		case trigger <- paths:
		default:
			// A run is already pending
		}
	})
	w.Start()

	onResult(Generate(ctx, cfg, opts))
	log.Infow("Watching for module changes", logger.FieldCount, len(dirs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-trigger:
			log.Infow("Modules changed, regenerating", "files", paths)
			res, err := Generate(ctx, cfg, opts)
			if ctx.Err() != nil {
				return nil
			}
			onResult(res, err)
		}
	}
}
