package commands

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/metadata"
)

func newPackCommand() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "pack <source.yaml>...",
		Short: "Compile module sources into .capmod files",
		Long: `Compile YAML module sources into the binary module format.

Each source produces <module name>.capmod in the output directory.
Sources are compiled before anything is written, so a bad source
writes no files.

Examples:
  capgen pack modules/*.yaml -o modules/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := make([]*metadata.ModuleDef, 0, len(args))
			seen := make(map[string]string, len(args))
			for _, file := range args {
				data, err := os.ReadFile(file)
				if err != nil {
					return errors.Wrapf(err, "failed to read %s", file)
				}
				def, err := metadata.ParseSource(file, data)
				if err != nil {
					return err
				}
				if prev, ok := seen[def.Name]; ok {
					return errors.Newf("module %s is declared by both %s and %s", def.Name, prev, file)
				}
				seen[def.Name] = file
				defs = append(defs, def)
			}

			if err := os.MkdirAll(outDir, am.DefaultDirPermissions); err != nil {
				return errors.Wrapf(err, "failed to create %s", outDir)
			}
			out := cmd.OutOrStdout()
			for _, def := range defs {
				path := filepath.Join(outDir, def.Name+metadata.Extension)
				data := metadata.Encode(def)
				if err := os.WriteFile(path, data, am.DefaultFilePermissions); err != nil {
					return errors.Wrapf(err, "failed to write %s", path)
				}
				pterm.Success.WithWriter(out).Printfln("%s (%d types, %d bytes)", path, len(def.Types), len(data))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Directory to write .capmod files to")
	return cmd
}
