package state

import (
	"context"
	"testing"

	"github.com/temoto/oledlog/hardware/oled"
	"github.com/temoto/oledlog/log2"
)

// NewTestContext reads inline config with display driver forced to mock.
// Returned mock is the driver behind g.Display().
func NewTestContext(t testing.TB, confString string) (context.Context, *Global, *oled.Mock) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
		"test-mock":   `display { driver = "mock" }`,
	})

	log := log2.NewTest(t, log2.LDebug)
	// log := log2.NewStderr(log2.LDebug) // useful with panics
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)
	g.MustInit(ctx, MustReadConfig(log, fs, "test-inline", "test-mock"))

	mock := oled.NewMock(g.Config.Display.Width, g.Config.Display.Height)
	g.Hardware.Display.Driver = mock
	return ctx, g, mock
}
