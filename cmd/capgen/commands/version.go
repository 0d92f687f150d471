package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/capgen/typegen"
	"github.com/teranos/capgen/version"
)

func newVersionCommand() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show capgen version information",
		Long:  `Display version, build time, commit hash, platform and the available generator backends.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()

			if jsonOutput {
				output, err := json.MarshalIndent(struct {
					version.Info
					Backends []string `json:"backends"`
				}{info, typegen.Backends()}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(output))
				return nil
			}
			fmt.Fprintln(out, info.String())
			fmt.Fprintf(out, "Backends: %v\n", typegen.Backends())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output version info as JSON")
	return cmd
}
