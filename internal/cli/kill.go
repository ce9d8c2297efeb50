package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/protonctl/internal/api"
	apihttp "github.com/Paintersrp/protonctl/internal/api/http"
	"github.com/Paintersrp/protonctl/internal/engine"
)

var newLocalSweeper = func() engine.Sweeper {
	return engine.NewCascadeTerminator()
}

func newKillCmd(ctx *context) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "kill <game>",
		Short: "Stop a game and its prefix session",
		Long: "Ask the control server to stop a game and sweep its prefix. When no server " +
			"is reachable, the prefix session is swept directly.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			client := apihttp.NewClient(ctx.apiAddr())
			err := client.Kill(cmd.Context(), api.KillRequest{Name: name, PrefixPath: prefix})
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s\n", name)
				return nil
			}
			var remote *apihttp.RemoteError
			if errors.As(err, &remote) || cmd.Context().Err() != nil {
				return err
			}

			target := engine.SweepTarget{PrefixPath: prefix}
			if rec, idx, lookupErr := ctx.lookupGame(name); lookupErr == nil && idx >= 0 {
				desc := rec.Launches[idx]
				target.RuntimePath = desc.RuntimePath
				if target.PrefixPath == "" {
					target.PrefixPath = desc.PrefixPath
				}
			}
			if target.PrefixPath == "" {
				return fmt.Errorf("control server unavailable (%v) and no prefix known for %s", err, name)
			}
			if err := newLocalSweeper().Sweep(cmd.Context(), target); err != nil {
				return fmt.Errorf("sweep prefix %s: %w", target.PrefixPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Swept prefix %s\n", target.PrefixPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix to sweep (defaults to the game's configured prefix)")
	return cmd
}
