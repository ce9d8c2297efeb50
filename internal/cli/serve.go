package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	apihttp "github.com/Paintersrp/protonctl/internal/api/http"
)

var newAPIServer = apihttp.NewServer

const serverStartupGrace = 200 * time.Millisecond

func newServeCmd(ctx *context) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the launcher with the HTTP control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			control := NewControlAPI(ctx)
			server, err := newAPIServer(apihttp.Config{Addr: ctx.apiAddr(), Controller: control})
			if err != nil {
				return err
			}

			runCtx, cancel := stdcontext.WithCancel(cmd.Context())
			defer cancel()

			events, release := ctx.subscribe(eventBuffer)
			defer release()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Run(runCtx)
			}()

			readyTimer := time.NewTimer(serverStartupGrace)
			defer readyTimer.Stop()
			select {
			case err := <-errCh:
				return serveError(err)
			case <-readyTimer.C:
			case <-runCtx.Done():
				return serveError(<-errCh)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Control API listening on %s\n", server.Addr())

			printer := newEventPrinter(cmd, jsonOutput)
			for {
				select {
				case err := <-errCh:
					return serveError(err)
				case evt, ok := <-events:
					if !ok {
						events = nil
						continue
					}
					printer.Print(evt)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit events as JSON lines even on a terminal")
	return cmd
}

func serveError(err error) error {
	if err == nil || errors.Is(err, stdcontext.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
