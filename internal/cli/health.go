package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/protonctl/internal/probe"
)

func newHealthCmd(ctx *context) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check which optional host capabilities are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := ctx.getProber().Probe(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), snap)
			}
			return writeHealthTable(cmd, snap)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the snapshot as JSON")
	return cmd
}

func writeHealthTable(cmd *cobra.Command, snap probe.Snapshot) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CAPABILITY\tSTATUS\tDETAIL")
	row := func(name string, ok bool, detail string) {
		status := "missing"
		if ok {
			status = "ok"
		}
		if detail == "" {
			detail = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, status, detail)
	}
	row("ntsync", snap.KernelSyncAvailable, probe.KernelSyncDevice)
	row("gamemode", snap.SchedulerWrapperAvailable, probe.SchedulerWrapper)
	row("vulkan", snap.GraphicsAPIAvailable, probe.GraphicsInfoTool)
	row("umu", snap.RuntimePresent, snap.RuntimeVersion)
	return w.Flush()
}
