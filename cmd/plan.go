package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"cardsync/core/reconcile"
	"cardsync/feature/run"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var (
	planDirectives run.Directives
	planOutput     string
	planAll        bool
)

// planCmd shows what a sync with --images would do, without writing.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the image work plan without writing anything",
	Long: `Reconciles the catalog in memory and classifies every required image
as skip, refetch or convert-only. Neither the catalog nor the store is modified.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	fs := planCmd.Flags()
	bindFilterFlags(fs, &planDirectives)
	bindSourceFlags(fs, &planDirectives)
	fs.StringVar(&planOutput, "output", "table", "Output format: table, yaml or json")
	fs.BoolVar(&planAll, "all", false, "Include skipped items in table output")

	RootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, l, err := setup()
	if err != nil {
		return err
	}
	defer l.Sync()

	plan, _, err := run.New(cfg, l).Plan(cmd.Context(), planDirectives)
	if err != nil {
		return err
	}
	return writePlan(cmd.OutOrStdout(), plan, planOutput, planAll)
}

// writePlan renders plan in the requested format.
func writePlan(w io.Writer, plan *reconcile.Plan, format string, all bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "yaml":
		data, err := yaml.Marshal(plan)
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "table", "":
		if err := writePlanTable(w, plan, all); err != nil {
			return err
		}
		s := plan.Summary
		_, err := fmt.Fprintf(w, "\n%d cards, %d assets: %d skip, %d refetch, %d convert-only\n", s.Cards, s.Total, s.Skip, s.Refetch, s.Convert)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writePlanTable renders one row per work item. Skipped items are listed only
// with all.
func writePlanTable(w io.Writer, plan *reconcile.Plan, all bool) error {
	align := []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft}
	config := tablewriter.Config{}
	config.Header.Alignment = tw.CellAlignment{PerColumn: align}
	config.Row.Alignment = tw.CellAlignment{PerColumn: align}

	table := tablewriter.NewTable(w, tablewriter.WithConfig(config))
	table.Header("Key", "Locale", "State", "Action", "Reason", "Source")
	for _, it := range plan.Items {
		if it.Action == reconcile.ActionSkip && !all {
			continue
		}
		if err := table.Append(it.Asset.Key.String(), string(it.Asset.Locale), string(it.State), string(it.Action), it.Reason, it.Source); err != nil {
			return err
		}
	}
	return table.Render()
}
