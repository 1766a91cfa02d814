package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanplan/internal/planstore"
)

// HistoryCmd returns the history command.
func HistoryCmd() *cobra.Command {
	var (
		taskName string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		Long: `History lists runs archived by "bidir solve --store", newest first.

Examples:
  bidir history
  bidir history --task gripper --limit 5
  bidir history show 3f2a91c0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), planstore.ListOptions{TaskName: taskName, Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs archived")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tTASK\tSTATUS\tLENGTH\tCOST\tMEETING\tEXPANDED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%d\n",
					r.ID[:min(8, len(r.ID))], r.CreatedAt.Local().Format(time.DateTime), r.TaskName,
					colorStatus(r.Status == planstore.StatusSolved, r.Status),
					len(r.Plan), r.PlanCost, r.Meeting, r.Expanded)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&taskName, "task", "t", "", "only runs of this task")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs (0: all)")

	cmd.AddCommand(historyShowCmd())
	return cmd
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one archived run and its plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			r, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:      %s\n", r.ID)
			fmt.Fprintf(out, "Task:     %s (%s)\n", r.TaskName, r.TaskFile)
			fmt.Fprintf(out, "Status:   %s\n", colorStatus(r.Status == planstore.StatusSolved, r.Status))
			fmt.Fprintf(out, "Created:  %s\n", r.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "Options:  %s\n", r.Options)
			fmt.Fprintf(out, "Search:   %d expanded, %d generated, %v\n", r.Expanded, r.Generated, r.Duration)
			if r.Error != "" {
				fmt.Fprintf(out, "Error:    %s\n", r.Error)
				return nil
			}
			fmt.Fprintf(out, "Meeting:  %s\n", r.Meeting)
			fmt.Fprintf(out, "Plan:     %s, cost %d\n", plural(len(r.Plan), "step"), r.PlanCost)
			for _, name := range r.Plan {
				fmt.Fprintf(out, "  (%s)\n", strings.TrimSpace(name))
			}
			return nil
		},
	}
}

func openStore() (*planstore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return planstore.Open(cfg.Store.Path)
}
