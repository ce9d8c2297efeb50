package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/protonctl/internal/tui"
)

func newTuiCmd(ctx *context) *cobra.Command {
	var useWrapper bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive game launcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !supportsInteractiveOutput(cmd) {
				return fmt.Errorf("tui requires an interactive terminal")
			}

			rec, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			events, release := ctx.subscribe(eventBuffer)
			defer release()

			ui := tui.New(rec.Launches, ctx.getSupervisor(),
				tui.WithHealth(ctx.getProber().Probe),
				tui.WithWrapper(useWrapper),
			)

			go func() {
				sink := ui.EventSink()
				for {
					select {
					case <-ui.Done():
						return
					case evt, ok := <-events:
						if !ok {
							return
						}
						select {
						case sink <- evt:
						case <-ui.Done():
							return
						}
					}
				}
			}()

			return ui.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&useWrapper, "gamemode", false, "Start with gamemoderun enabled")
	return cmd
}
