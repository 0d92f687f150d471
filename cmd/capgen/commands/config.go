package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/capgen/am"
	"github.com/teranos/capgen/errors"
)

func newConfigCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and validate the configuration",
		Long: `Display and validate the capgen configuration.

Examples:
  capgen config show                 # Effective configuration as TOML
  capgen config show --format json   # ... as JSON
  capgen config validate             # Lint the config file and validate the result
  capgen config where                # Which source set each value`,
	}
	cmd.AddCommand(newConfigShowCommand(g), newConfigValidateCommand(g), newConfigWhereCommand(g))
	return cmd
}

func newConfigShowCommand(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return errors.Wrap(err, "failed to marshal config to JSON")
				}
				fmt.Fprintln(out, string(data))

			case "yaml":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return errors.Wrap(err, "failed to marshal config to YAML")
				}
				fmt.Fprintf(out, "# capgen configuration\n%s", data)

			case "toml":
				data, err := toml.Marshal(cfg)
				if err != nil {
					return errors.Wrap(err, "failed to marshal config to TOML")
				}
				fmt.Fprintf(out, "# capgen configuration\n%s", data)

			default:
				return errors.Mark(errors.Newf("unsupported format: %s (supported: toml, json, yaml)", format), errors.ErrInvalidConfig)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "toml", "Output format: toml, json, yaml")
	return cmd
}

func newConfigValidateCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = am.ProjectConfig()
			}
			if path != "" {
				if err := am.Lint(path); err != nil {
					return err
				}
			}

			cfg, err := g.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "configuration validation failed")
			}

			if path == "" {
				path = "built-in defaults"
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Configuration is valid (%s)", path)
			return nil
		},
	}
}

func newConfigWhereCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "where",
		Short: "Show where each setting comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.configPath != "" {
				return errors.Mark(errors.New("config where reports the searched configuration; omit --config"), errors.ErrInvalidConfig)
			}
			intro, err := am.GetConfigIntrospection()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			project := am.ProjectConfig()
			if project == "" {
				project = "(none found)"
			}
			fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
			fmt.Fprintln(out, "  1. [DEFAULT]  Built-in defaults")
			fmt.Fprintln(out, "  2. [USER]     "+am.UserConfig())
			fmt.Fprintln(out, "  3. [PROJECT]  "+project)
			fmt.Fprintln(out, "  4. [ENV]      "+am.EnvPrefix+"_* environment variables")
			fmt.Fprintln(out)

			rows := [][]string{{"Key", "Value", "Source", "From"}}
			for _, s := range intro.Settings {
				rows = append(rows, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(rows).Render()
		},
	}
}
