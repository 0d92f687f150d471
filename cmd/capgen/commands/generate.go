package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pipeline"
)

// runFlags select what a run reads and renders; shared by generate, check and inspect
type runFlags struct {
	backend     string
	output      string
	modules     []string
	searchPaths []string
}

func (f *runFlags) register(cmd *cobra.Command, output bool) {
	cmd.Flags().StringVarP(&f.backend, "backend", "b", "", "Generator backend: typescript, legacy (default: output.backend)")
	cmd.Flags().StringSliceVarP(&f.modules, "module", "m", nil, "Module to scan (repeatable; replaces modules.names)")
	cmd.Flags().StringSliceVarP(&f.searchPaths, "search-path", "s", nil, "Directory holding .capmod files (repeatable; replaces modules.search_paths)")
	if output {
		cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output directory (default: output.dir)")
	}
}

// config loads the configuration and applies the flags over it
func (f *runFlags) config(g *globalOptions) (*am.Config, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	if f.backend != "" {
		cfg.Output.Backend = f.backend
	}
	if len(f.modules) > 0 {
		cfg.Modules.Names = f.modules
	}
	if len(f.searchPaths) > 0 {
		if cfg.Modules.SearchPaths, err = absPaths(f.searchPaths); err != nil {
			return nil, err
		}
	}
	if f.output != "" {
		dirs, err := absPaths([]string{f.output})
		if err != nil {
			return nil, err
		}
		cfg.Output.Dir = dirs[0]
	}
	return cfg, nil
}

// signalContext is cancelled on interrupt
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newGenerateCommand(g *globalOptions) *cobra.Command {
	var (
		flags  runFlags
		stdout bool
		watch  bool
	)
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate the client package",
		Long: `Generate the client package for the configured modules.

The output directory is replaced as a whole: it holds exactly the
generated files afterwards. A failed run leaves it untouched.

Examples:
  capgen generate                                 # Use capgen.toml
  capgen generate -m Aspire.Test -s ./modules     # Override modules
  capgen generate --backend legacy -o ./client    # Other backend and directory
  capgen generate --stdout > client.txtar         # Print files as a txtar archive
  capgen generate --watch                         # Regenerate when modules change`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdout && watch {
				return errors.Mark(errors.New("--stdout and --watch cannot be combined"), errors.ErrInvalidConfig)
			}
			cfg, err := flags.config(g)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()

			opts := pipeline.Options{Logger: logger.ComponentLogger("pipeline")}
			out := cmd.OutOrStdout()

			switch {
			case stdout:
				res, err := pipeline.Render(ctx, cfg, opts)
				if err != nil {
					return err
				}
				_, err = out.Write(res.Files.Archive("capgen " + res.Backend + " output for " + cfg.Output.PackageName))
				return err

			case watch:
				return pipeline.Watch(ctx, cfg, opts, func(res *pipeline.Result, err error) {
					if err != nil {
						printError(cmd.ErrOrStderr(), err)
						return
					}
					printGenerated(cmd, cfg, res)
				})

			default:
				res, err := pipeline.Generate(ctx, cfg, opts)
				if err != nil {
					return err
				}
				printGenerated(cmd, cfg, res)
				return nil
			}
		},
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print the files as a txtar archive instead of writing them")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Regenerate whenever a module file changes")
	return cmd
}

func printGenerated(cmd *cobra.Command, cfg *am.Config, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	pterm.Success.WithWriter(out).Printfln("Generated %d capabilities and %d proxy types into %s (%s, %dms)",
		res.Model.Len(), len(res.Model.ProxyTypes()), cfg.OutputDir(), res.Backend, res.Duration.Milliseconds())
	if n := len(res.Skipped); n > 0 {
		pterm.Warning.WithWriter(out).Printfln("%d members skipped; run 'capgen inspect' for details", n)
	}
}
