package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/protonctl/internal/config"
)

func newScanCmd(ctx *context) *cobra.Command {
	var (
		dir        string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List installed Proton versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := dir
			if base == "" {
				rec, err := ctx.loadConfig()
				if err != nil {
					return err
				}
				base = rec.BaseRuntimeDirectory
			}
			if base == "" {
				return fmt.Errorf("no runtime directory: pass --dir or set proton_root in %s", ctx.configPath())
			}
			versions := config.ScanRuntimes(base)
			if versions == nil {
				versions = []config.RuntimeVersion{}
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), versions)
			}
			if len(versions) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No Proton versions found in %s\n", base)
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPATH")
			for _, v := range versions {
				fmt.Fprintf(w, "%s\t%s\n", v.Name, v.Path)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to scan (defaults to proton_root from the configuration)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print versions as JSON")
	return cmd
}
