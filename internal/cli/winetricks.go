package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/protonctl/internal/api"
)

func newWinetricksCmd(ctx *context) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "winetricks [game]",
		Short: "Open winetricks for a game's prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := prefix
			if path == "" {
				if len(args) == 0 {
					return fmt.Errorf("%w: pass a game name or --prefix", api.ErrInvalidRequest)
				}
				rec, idx, err := ctx.lookupGame(args[0])
				if err != nil {
					return err
				}
				if idx < 0 {
					return fmt.Errorf("%w: %s", api.ErrUnknownGame, args[0])
				}
				path = rec.Launches[idx].PrefixPath
			}
			msg, err := NewControlAPI(ctx).OpenPrefixTool(cmd.Context(), api.PrefixToolRequest{PrefixPath: path})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix to open instead of a configured game's")
	return cmd
}
