package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/protonctl/internal/cliutil"
	"github.com/Paintersrp/protonctl/internal/engine"
)

// supportsInteractiveOutput reports whether the command writes to a terminal.
func supportsInteractiveOutput(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// eventPrinter writes events as text lines on a terminal and as JSON lines
// otherwise.
type eventPrinter struct {
	out    io.Writer
	errOut io.Writer
	enc    *json.Encoder
}

func newEventPrinter(cmd *cobra.Command, jsonOutput bool) *eventPrinter {
	p := &eventPrinter{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	if jsonOutput || !supportsInteractiveOutput(cmd) {
		p.enc = json.NewEncoder(p.out)
	}
	return p
}

func (p *eventPrinter) Print(evt engine.Event) {
	if p.enc != nil {
		cliutil.EncodeLogEvent(p.enc, p.errOut, evt)
		return
	}
	fmt.Fprintln(p.out, cliutil.FormatText(evt))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
