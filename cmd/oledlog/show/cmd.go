// Package show has one-shot commands: init display, draw one frame, exit.
package show

import (
	"context"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"
	"github.com/temoto/oledlog/cmd/oledlog/subcmd"
	"github.com/temoto/oledlog/displaylog"
	"github.com/temoto/oledlog/state"
)

var TextMod = subcmd.Mod{Name: "text", Usage: "<word...> show words joined by space", Main: TextMain}
var IntMod = subcmd.Mod{Name: "int", Usage: "<n> show signed decimal number", Main: IntMain}
var QRMod = subcmd.Mod{Name: "qr", Usage: "<text> show text as QR code", Main: QRMain}

func TextMain(ctx context.Context, config *state.Config, args []string) error {
	d := begin(ctx, config)
	return d.Write(strings.Join(args, " "))
}

func IntMain(ctx context.Context, config *state.Config, args []string) error {
	if len(args) != 1 {
		return errors.NotValidf("int expects exactly one argument, got %d", len(args))
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.Annotate(err, "int")
	}
	d := begin(ctx, config)
	return d.WriteInt(n)
}

func QRMain(ctx context.Context, config *state.Config, args []string) error {
	if len(args) != 1 {
		return errors.NotValidf("qr expects exactly one argument, got %d", len(args))
	}
	d := begin(ctx, config)
	return errors.Annotate(d.WriteQR(args[0], false, qrcode.Medium), "qr")
}

func begin(ctx context.Context, config *state.Config) *displaylog.Logger {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	return g.MustDisplay()
}
