package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pipeline"
)

func newCheckCommand(g *globalOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the generated client is up to date",
		Long: `Render the client in memory and compare it with the output directory.
The directory is not modified.

Exit codes:
  0 - Output is up to date
  1 - Output is out of date (differing files listed)
  2 - Error during check
  3 - Invalid configuration`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(g)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()

			_, result, err := pipeline.Check(ctx, cfg, pipeline.Options{Logger: logger.ComponentLogger("pipeline")})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.UpToDate() {
				pterm.Success.WithWriter(out).Printfln("%s is up to date", cfg.OutputDir())
				return nil
			}

			pterm.Error.WithWriter(out).Printfln("%s is out of date", cfg.OutputDir())
			for _, group := range []struct {
				label string
				paths []string
			}{
				{"missing", result.Missing},
				{"changed", result.Changed},
				{"extra", result.Extra},
			} {
				for _, p := range group.paths {
					pterm.Fprintln(out, "  "+group.label+": "+p)
				}
			}
			pterm.Info.WithWriter(out).Println("run 'capgen generate' to update")
			return errOutOfDate
		},
	}
	flags.register(cmd, true)
	return cmd
}
