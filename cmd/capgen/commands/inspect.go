package commands

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/capgen/appmodel"
	"github.com/teranos/capgen/capability"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pipeline"
	"github.com/teranos/capgen/proxygraph"
)

// inspectReport is the JSON form of inspect
type inspectReport struct {
	appmodel.View
	Skipped []capability.Skipped `json:"skipped"`
	Dropped []proxygraph.Dropped `json:"dropped"`
}

func newInspectCommand(g *globalOptions) *cobra.Command {
	var (
		flags   runFlags
		jsonOut bool
		skipped bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the discovered capabilities and proxy types",
		Long: `Run discovery without writing anything and print the application model.

Examples:
  capgen inspect                 # Tables
  capgen inspect --skipped       # Also list skipped and dropped members
  capgen inspect --json | jq .   # Machine-readable model`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(g)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()

			res, err := pipeline.Run(ctx, cfg, pipeline.Options{Logger: logger.ComponentLogger("pipeline")})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				report := inspectReport{
					View:    res.Model.View(),
					Skipped: append([]capability.Skipped{}, res.Skipped...),
					Dropped: append([]proxygraph.Dropped{}, res.Dropped...),
				}
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				_, err = out.Write(append(data, '\n'))
				return err
			}

			view := res.Model.View()
			s := view.Summary
			pterm.Info.WithWriter(out).Printfln("%d capabilities, %d proxy types", s.Capabilities, s.ProxyTypes)

			rows := [][]string{{"Capability", "Method", "Receiver", "Returns", "Parameters"}}
			for _, c := range view.Capabilities {
				params := make([]string, 0, len(c.Parameters))
				for _, p := range c.Parameters {
					opt := ""
					if p.Optional {
						opt = "?"
					}
					params = append(params, p.Name+opt+": "+p.TypeID)
				}
				rows = append(rows, []string{c.ID, c.MethodName, c.ConstraintTypeID, c.ReturnTypeID, strings.Join(params, ", ")})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(rows).Render(); err != nil {
				return err
			}

			rows = [][]string{{"Proxy", "Type", "Properties", "Methods"}}
			for _, p := range view.ProxyTypes {
				rows = append(rows, []string{p.ClassName, p.TypeID, strconv.Itoa(len(p.Properties)), strconv.Itoa(len(p.Methods))})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(rows).Render(); err != nil {
				return err
			}

			namespaces := make([]string, 0, len(s.ByNamespace))
			for ns := range s.ByNamespace {
				namespaces = append(namespaces, ns)
			}
			sort.Strings(namespaces)
			for _, ns := range namespaces {
				pterm.Fprintln(out, "  "+ns+": "+strconv.Itoa(s.ByNamespace[ns]))
			}

			if skipped {
				rows = [][]string{{"Module", "Member", "Kind", "Reason"}}
				for _, sk := range res.Skipped {
					rows = append(rows, []string{sk.Module, sk.Member, sk.Kind, sk.Reason})
				}
				for _, d := range res.Dropped {
					rows = append(rows, []string{"", d.TypeID + "." + d.Member, "dropped", d.Reason})
				}
				return pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(rows).Render()
			}
			return nil
		},
	}
	flags.register(cmd, false)
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "Print the model as JSON")
	cmd.Flags().BoolVar(&skipped, "skipped", false, "List skipped capabilities and dropped proxy members")
	return cmd
}
