// Package commands implements the capgen command line.
package commands

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"

	// Generator backends register themselves
	_ "github.com/teranos/capgen/typegen/legacy"
	_ "github.com/teranos/capgen/typegen/typescript"
)

// Exit codes
const (
	ExitOK         = 0
	ExitOutOfDate  = 1 // check found drift
	ExitError      = 2
	ExitInvalidCfg = 3
)

// errOutOfDate is returned by check when the output directory drifted
var errOutOfDate = errors.New("generated output is out of date")

// globalOptions are the persistent flags
type globalOptions struct {
	configPath string
	verbosity  int
	jsonLogs   bool
}

// load reads the configuration named by --config, or searches for capgen.toml
func (g *globalOptions) load() (*am.Config, error) {
	if g.configPath != "" {
		return am.LoadFromFile(g.configPath)
	}
	return am.Load()
}

// NewRootCommand builds the capgen command tree
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "capgen",
		Short: "Generate typed clients from capability metadata",
		Long: `capgen — capability discovery and client code generation

capgen reads compiled module metadata (.capmod files), discovers the
capabilities those modules export, builds the graph of handle types they
reach and renders a TypeScript client package for it.

Configuration sources (later overrides earlier):
  1. Built-in defaults
  2. User config (<user config dir>/capgen/capgen.toml)
  3. Project config (capgen.toml, searched upward from the working directory)
  4. Environment variables (CAPGEN_* prefix, e.g. CAPGEN_OUTPUT_DIR)
  5. Command line flags

Examples:
  capgen init -m Aspire.Hosting.Redis -s ./modules
  capgen generate
  capgen generate --watch
  capgen check
  capgen inspect --json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Initialize(g.jsonLogs, g.verbosity); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			logger.Debugw("Logger initialized", "verbosity", logger.LevelName(g.verbosity), "json", g.jsonLogs)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Cleanup()
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default: nearest "+am.ConfigFileName+")")
	root.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	root.PersistentFlags().BoolVar(&g.jsonLogs, "json-logs", false, "Write logs as JSON to stderr")

	root.AddCommand(
		newGenerateCommand(g),
		newCheckCommand(g),
		newInspectCommand(g),
		newPackCommand(),
		newInitCommand(),
		newConfigCommand(g),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, errOutOfDate) {
		return ExitOutOfDate
	}
	printError(stderr, err)
	if errors.Is(err, errors.ErrInvalidConfig) {
		return ExitInvalidCfg
	}
	return ExitError
}

// printError writes the error with its hints and details
func printError(w io.Writer, err error) {
	pterm.Error.WithWriter(w).Println(err.Error())
	for _, d := range errors.GetAllDetails(err) {
		fmt.Fprintln(w, d)
	}
	for _, h := range errors.GetAllHints(err) {
		pterm.Info.WithWriter(w).Println("hint: " + h)
	}
}

// absPaths makes command-line paths absolute so they resolve against the
// working directory rather than the config directory
func absPaths(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid path %s", p)
		}
		out[i] = abs
	}
	return out, nil
}
