package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/protonctl/internal/api"
	apihttp "github.com/Paintersrp/protonctl/internal/api/http"
)

func newStatusCmd(ctx *context) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"list", "ps"},
		Short:   "List games supervised by the control server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := apihttp.NewClient(ctx.apiAddr())
			report, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return writeStatusTable(cmd, report, time.Now())
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the status report as JSON")
	return cmd
}

func writeStatusTable(cmd *cobra.Command, report *api.StatusReport, now time.Time) error {
	out := cmd.OutOrStdout()
	if len(report.Games) == 0 {
		fmt.Fprintln(out, "No games running.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GAME\tPID\tUPTIME\tPREFIX")
	for _, g := range report.Games {
		uptime := "-"
		if !g.StartedAt.IsZero() {
			age := now.Sub(g.StartedAt)
			if age < 0 {
				age = 0
			}
			uptime = age.Truncate(time.Second).String()
		}
		prefix := g.PrefixPath
		if prefix == "" {
			prefix = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", g.Name, g.Pid, uptime, prefix)
	}
	return w.Flush()
}
