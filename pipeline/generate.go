package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/typegen"
)

// Generate runs a generation, applies the postprocess command and
// replaces the output directory with the result. Nothing is written
// unless every step succeeds.
func Generate(ctx context.Context, cfg *am.Config, opts Options) (*Result, error) {
	res, err := Render(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "run cancelled before %s", PhaseWrite)
	}

	dir := cfg.OutputDir()
	if err := typegen.WriteAll(dir, res.Files); err != nil {
		return nil, err
	}
	logger.OrComponent(opts.Logger, "pipeline").Infow("Wrote client package",
		logger.FieldRunID, res.RunID,
		logger.FieldDir, dir,
		logger.FieldCount, len(res.Files))
	return res, nil
}

// Check renders like Generate and compares the result with the output
// directory without touching it
func Check(ctx context.Context, cfg *am.Config, opts Options) (*Result, *typegen.CheckResult, error) {
	res, err := Render(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	check, err := typegen.Check(cfg.OutputDir(), res.Files)
	if err != nil {
		return nil, nil, err
	}
	return res, check, nil
}

// Render is Run followed by the postprocess command, so its files are
// exactly what Generate writes
func Render(ctx context.Context, cfg *am.Config, opts Options) (*Result, error) {
	res, err := Run(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if cfg.Output.Postprocess == "" {
		return res, nil
	}
	files, err := postprocess(ctx, cfg.Output.Postprocess, res.Files)
	if err != nil {
		return nil, err
	}
	res.Files = files
	return res, nil
}

// postprocess runs command in a scratch copy of files and reads back the
// paths of files. Files the command creates are ignored.
func postprocess(ctx context.Context, command string, files typegen.FileSet) (typegen.FileSet, error) {
	args, err := shellquote.Split(command)
	if err != nil || len(args) == 0 {
		return nil, errors.Mark(errors.Newf("invalid postprocess command %q", command), errors.ErrInvalidConfig)
	}

	scratch, err := os.MkdirTemp("", "capgen-postprocess-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create postprocess directory")
	}
	defer os.RemoveAll(scratch)

	dir := filepath.Join(scratch, "out")
	if err := typegen.WriteAll(dir, files); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		err = errors.Wrapf(err, "postprocess %q failed", command)
		if len(out) > 0 {
			err = errors.WithDetail(err, string(out))
		}
		return nil, err
	}

	processed := make([]typegen.File, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Path)))
		if err != nil {
			return nil, errors.Wrapf(err, "postprocess removed %s", f.Path)
		}
		processed = append(processed, typegen.File{Path: f.Path, Data: data})
	}
	return typegen.NewFileSet(processed...)
}
