package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/protonctl/internal/api"
	"github.com/Paintersrp/protonctl/internal/engine"
)

const killSettleGrace = 5 * time.Second

func newLaunchCmd(ctx *context) *cobra.Command {
	var (
		useWrapper bool
		exe        string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "launch <game>",
		Short: "Launch a configured game and follow it until it exits",
		Long: "Launch a configured game in the foreground. Output is streamed until the game " +
			"exits; interrupting the command kills the game and sweeps its prefix.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			control := NewControlAPI(ctx)
			req := api.LaunchRequest{Name: args[0], UseWrapper: useWrapper}
			desc, err := control.resolve(req)
			if err != nil {
				return err
			}

			events, release := ctx.subscribe(eventBuffer)
			defer release()

			sup := ctx.getSupervisor()
			name := desc.Name
			var msg string
			if exe != "" {
				name = engine.PrefixLaunchName(desc.Name, exe)
				msg, err = sup.RunInPrefix(cmd.Context(), desc, exe, useWrapper)
			} else {
				msg, err = sup.Launch(cmd.Context(), desc, useWrapper)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), msg)

			return followLaunch(cmd, ctx, name, desc.PrefixPath, events, newEventPrinter(cmd, jsonOutput))
		},
	}
	cmd.Flags().BoolVar(&useWrapper, "gamemode", false, "Run the game through gamemoderun")
	cmd.Flags().StringVar(&exe, "exe", "", "Run this executable inside the game's prefix instead of the game")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit events as JSON lines even on a terminal")
	return cmd
}

// followLaunch prints the events of name until its terminal notification. If
// the command context ends first the launch is killed.
func followLaunch(cmd *cobra.Command, ctx *context, name, prefix string, events <-chan engine.Event, printer *eventPrinter) error {
	done := cmd.Context().Done()
	var settle <-chan time.Time
	for {
		select {
		case <-done:
			done = nil
			_ = ctx.getSupervisor().Kill(name, prefix)
			timer := time.NewTimer(ctx.pollInterval() + killSettleGrace)
			defer timer.Stop()
			settle = timer.C
		case <-settle:
			return cmd.Context().Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if evt.Game != name {
				continue
			}
			printer.Print(evt)
			if evt.Terminal() {
				return nil
			}
		}
	}
}
