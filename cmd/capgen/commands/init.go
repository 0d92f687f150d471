package commands

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
)

func newInitCommand() *cobra.Command {
	var (
		dir         string
		force       bool
		modules     []string
		searchPaths []string
		output      string
		backend     string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + am.ConfigFileName,
		Long: `Write a capgen.toml holding the defaults plus the given settings.

An existing file is only replaced with --force; the previous version is
kept as capgen.toml.back1 (up to three backups rotate).

Examples:
  capgen init -m Aspire.Hosting.Redis -s ./modules
  capgen init --backend legacy --output ./client --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(dir, am.ConfigFileName)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.WithHint(errors.Newf("%s already exists", path), "use --force to replace it")
			}

			cfg := am.Default()
			if len(modules) > 0 {
				cfg.Modules.Names = modules
			}
			if len(searchPaths) > 0 {
				cfg.Modules.SearchPaths = searchPaths
			}
			if output != "" {
				cfg.Output.Dir = output
			}
			if backend != "" {
				cfg.Output.Backend = backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := am.Save(path, cfg); err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write "+am.ConfigFileName+" into")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing file")
	cmd.Flags().StringSliceVarP(&modules, "module", "m", nil, "Module to scan (repeatable)")
	cmd.Flags().StringSliceVarP(&searchPaths, "search-path", "s", nil, "Directory holding .capmod files, relative to the config (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory, relative to the config")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "Generator backend")
	return cmd
}
