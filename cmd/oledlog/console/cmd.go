package console

import (
	"context"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"
	"github.com/temoto/oledlog/cmd/oledlog/subcmd"
	"github.com/temoto/oledlog/displaylog"
	"github.com/temoto/oledlog/helpers/cli"
	"github.com/temoto/oledlog/state"
)

const modName = "console"

const usage = `each line is shown as new frame, except
- :stat     print frame counters
- :qr TEXT  show TEXT as QR code
- :help     this text
`

var Mod = subcmd.Mod{Name: modName, Usage: "show each input line, prompt on terminal", Main: Main}

func Main(ctx context.Context, config *state.Config, args []string) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	d := g.MustDisplay()
	defer g.Shutdown()

	cli.MainLoop("oledlog", newExecutor(ctx, d), newCompleter())
	return nil
}

var suggests = []prompt.Suggest{
	{Text: ":stat", Description: "frame counters"},
	{Text: ":qr", Description: "show QR code"},
	{Text: ":help"},
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	return func(d prompt.Document) []prompt.Suggest {
		w := d.GetWordBeforeCursor()
		if !strings.HasPrefix(w, ":") {
			return nil
		}
		return prompt.FilterHasPrefix(suggests, w, true)
	}
}

func newExecutor(ctx context.Context, d *displaylog.Logger) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		var err error
		switch {
		case line == ":help":
			g.Log.Info(usage)
		case line == ":stat":
			s := d.Stat()
			g.Log.Infof("state=%s frames=%d flush_errors=%d last=%s idle=%s",
				d.State(), s.Frames, s.FlushErrors, s.LastFrame.Format("15:04:05.000"),
				d.SinceLastFrame().Truncate(time.Millisecond))
		case strings.HasPrefix(line, ":qr "):
			err = d.WriteQR(strings.TrimSpace(line[len(":qr "):]), false, qrcode.Medium)
		default:
			err = d.Write(line)
		}
		if err != nil {
			g.Log.Error(errors.ErrorStack(err))
		}
	}
}
