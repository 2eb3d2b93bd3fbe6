package mqtt

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/alive/v2"
	"github.com/temoto/oledlog/state"
)

func TestHandle(t *testing.T) {
	t.Parallel()

	ctx, g, mock := state.NewTestContext(t, `mqtt { topic = "shop/oled" }`)
	d, err := g.Display()
	require.NoError(t, err)
	require.NoError(t, d.Begin())
	mock.Reset()

	a := alive.NewAlive()
	sub := newSubscriber(g.Log, a, d, &state.GetGlobal(ctx).Config.Mqtt)
	assert.Equal(t, map[string]byte{"shop/oled": 0, "shop/oled/int": 0, "shop/oled/qr": 0}, sub.filters())

	sub.handle("shop/oled", []byte("hi"))
	assert.Equal(t, []string{"ClearBuffer", "SetCursor(0,0)", "WriteRune('h')", "WriteRune('i')", "Display"}, mock.Calls())

	mock.Reset()
	sub.handle("shop/oled/int", []byte(" -5\n"))
	assert.Equal(t, []string{"ClearBuffer", "SetCursor(0,0)", "WriteRune('-')", "WriteRune('5')", "Display"}, mock.Calls())

	mock.Reset()
	sub.handle("shop/oled/int", []byte("five"))
	sub.handle("shop/oled/other", []byte("x"))
	assert.Empty(t, mock.Calls())

	sub.handle("shop/oled/qr", []byte("https://example.com/"))
	assert.Equal(t, []string{"ClearBuffer", "DrawImage((50,50),(39,7))", "Display"}, mock.Calls())

	// after stop messages are dropped
	mock.Reset()
	a.Stop()
	sub.handle("shop/oled", []byte("late"))
	assert.Empty(t, mock.Calls())
	a.Wait()
}

func TestMainNoBroker(t *testing.T) {
	t.Parallel()

	ctx, g, mock := state.NewTestContext(t, "")
	err := Main(ctx, g.Config, nil)
	assert.True(t, errors.IsNotValid(err))
	// display untouched
	assert.Empty(t, mock.Calls())
}
