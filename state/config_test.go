package state

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/oledlog/displaylog"
	"github.com/temoto/oledlog/hardware/i2c"
	"github.com/temoto/oledlog/hardware/oled"
	"github.com/temoto/oledlog/log2"
)

func TestReadConfig(t *testing.T) {
	t.Parallel()

	type Case struct {
		name      string
		input     string
		check     func(testing.TB, context.Context)
		expectErr string
	}
	cases := []Case{
		{"empty", "", func(t testing.TB, ctx context.Context) {
			d := GetGlobal(ctx).Config.Display
			assert.Equal(t, DriverSSD1306, d.Driver)
			assert.Equal(t, i2c.DriverPeriph, d.BusDriver)
			assert.Equal(t, 0x3c, d.Address)
			assert.Equal(t, 128, d.Width)
			assert.Equal(t, 64, d.Height)
			assert.Equal(t, oled.VccSwitchCap, d.Vcc)
			assert.Equal(t, "", d.ResetPinChip)
			assert.Equal(t, HaltForever, d.Halt)
			assert.Equal(t, "oledlog/display", GetGlobal(ctx).Config.Mqtt.Topic)
		}, ""},

		{"display",
			`display { address = 61 height = 32 bus_driver = "i2c-dev" bus_number = 1 halt = "exit" }`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				oc := g.Config.Display.Oled()
				assert.Equal(t, uint16(0x3d), oc.Address)
				assert.Equal(t, 32, oc.Height)
				assert.Equal(t, 128, oc.Width)
				assert.Equal(t, i2c.DriverDev, g.Config.Display.BusDriver)
				assert.Equal(t, 1, g.Config.Display.BusNumber)
				assert.Equal(t, HaltExit, g.Config.Display.Halt)
			},
			"",
		},

		{"reset-pin-default",
			`display { reset_pin_chip = "/dev/gpiochip0" }`,
			func(t testing.TB, ctx context.Context) {
				d := GetGlobal(ctx).Config.Display
				assert.Equal(t, oled.DefaultResetPin, d.ResetPin)
			},
			"",
		},

		{"mqtt",
			`mqtt { broker = "tcp://127.0.0.1:1883" topic = "shop/oled" qos = 1 keepalive_sec = 10 }`,
			func(t testing.TB, ctx context.Context) {
				m := GetGlobal(ctx).Config.Mqtt
				assert.Equal(t, "tcp://127.0.0.1:1883", m.Broker)
				assert.Equal(t, "shop/oled", m.Topic)
				assert.Equal(t, "oledlog", m.ClientID)
				assert.Equal(t, 1, m.QoS)
				assert.Equal(t, 10, m.KeepaliveSec)
			},
			"",
		},

		{"include-normalize", `
display { height = 32 }
include "./empty" {}`,
			nil, ""},

		{"include-optional", `
include "display-48" {}
include "non-exist" { optional = true }`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				assert.Equal(t, 48, g.Config.Display.Height)
			}, ""},

		{"include-overwrites", `
display { height = 32 }
include "display-48" {}`,
			func(t testing.TB, ctx context.Context) {
				g := GetGlobal(ctx)
				assert.Equal(t, 48, g.Config.Display.Height)
			}, ""},

		{"error-syntax", `hello`, nil, "key 'hello' expected start of object"},
		{"error-include-loop", `include "include-loop" {}`, nil, "config include loop: from=include-loop include=include-loop"},
		{"error-include-required", `include "non-exist" {}`, nil, "config required name=non-exist"},
		{"error-vcc-external", `display { vcc = "external" }`, nil, "oled vcc=external not supported"},
		{"error-driver", `display { driver = "sh1106" }`, nil, "display.driver=sh1106"},
		{"error-mock-size", `display { driver = "mock" width = -1 }`, nil, "config: display size=-1x64 not valid"},
		{"error-multi", `display { halt = "reboot" height = 100 }`, nil, "oled height=100 valid: 32, 48, 64 not valid\n"},
	}
	mkCheck := func(c Case) func(*testing.T) {
		return func(t *testing.T) {
			log := log2.NewTest(t, log2.LDebug)
			ctx, g := NewContext(log)

			fs := NewMockFullReader(map[string]string{
				"test-inline":  c.input,
				"empty":        "",
				"display-48":   "display{height=48}",
				"error-syntax": "hello",
				"include-loop": `include "include-loop" {}`,
			})
			cfg, err := ReadConfig(log, fs, "test-inline")
			if err == nil {
				err = g.Init(ctx, cfg)
			}
			if c.expectErr == "" {
				if err != nil {
					t.Fatalf("error expected=nil actual='%v'", errors.ErrorStack(err))
				}
				if c.check != nil {
					c.check(t, ctx)
				}
			} else {
				if err == nil || !strings.Contains(err.Error(), c.expectErr) {
					t.Fatalf("error expected='%s' actual='%v'", c.expectErr, err)
				}
			}
		}
	}
	for _, c := range cases {
		t.Run(c.name, mkCheck(c))
	}
}

func TestValidateCollectsAll(t *testing.T) {
	t.Parallel()

	c := &Config{}
	c.Display.Driver = "nope"
	c.Display.Halt = "nope"
	c.Mqtt.QoS = 3
	err := c.Validate()
	require.Error(t, err)
	lines := strings.Split(err.Error(), "\n")
	assert.Len(t, lines, 3)
}

func TestGlobalDisplay(t *testing.T) {
	t.Parallel()

	ctx, g, mock := NewTestContext(t, `display { halt = "exit" }`)
	assert.Equal(t, g, GetGlobal(ctx))
	assert.Equal(t, DriverMock, g.Config.Display.Driver)

	d, err := g.Display()
	require.NoError(t, err)
	d2, err := g.Display()
	require.NoError(t, err)
	assert.True(t, d == d2, "Display() must return same logger")

	d.MustBegin(func() { t.Fatal("halt called") })
	require.NoError(t, d.Write("ok"))
	assert.Equal(t, []string{"Init", "ClearBuffer", "SetTextSize(2)", "SetTextColor(on)",
		"ClearBuffer", "SetCursor(0,0)", "WriteRune('o')", "WriteRune('k')", "Display"}, mock.Calls())
	assert.Equal(t, displaylog.StateReady, d.State())
}

func TestGlobalDisplayFromConfig(t *testing.T) {
	t.Parallel()

	log := log2.NewTest(t, log2.LDebug)
	ctx, g := NewContext(log)
	fs := NewMockFullReader(map[string]string{"c": `display { driver = "mock" width = 64 height = 32 }`})
	g.MustInit(ctx, MustReadConfig(log, fs, "c"))

	d, err := g.Display()
	require.NoError(t, err)
	mock, ok := g.Hardware.Display.Driver.(*oled.Mock)
	require.True(t, ok)
	assert.Equal(t, 64, mock.Bounds().Dx())
	assert.Equal(t, 32, mock.Bounds().Dy())
	assert.Equal(t, displaylog.StateUninitialized, d.State())

	// ssd1306 constructed lazily without touching hardware
	_, g2 := NewContext(log)
	g2.MustInit(ctx, MustReadConfig(log, NewMockFullReader(map[string]string{"c": ""}), "c"))
	d2, err := g2.Display()
	require.NoError(t, err)
	assert.NotNil(t, d2)
	_, ok = g2.Hardware.Display.Driver.(*oled.SSD1306)
	assert.True(t, ok)
}

func TestHalt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		halt   string
		expect displaylog.HaltFunc
	}{
		{HaltForever, displaylog.HaltForever},
		{HaltExit, displaylog.HaltExit},
	}
	for _, c := range cases {
		g := &Global{Config: &Config{}}
		g.Config.Display.Halt = c.halt
		// funcs are not comparable
		assert.Equal(t, reflect.ValueOf(c.expect).Pointer(), reflect.ValueOf(g.Halt()).Pointer(), c.halt)
	}
}

func TestFunctionalBundled(t *testing.T) {
	// not Parallel
	t.Logf("this test needs OS open|read|stat access to file `../oledlog.hcl`")

	log := log2.NewTest(t, log2.LDebug)
	c := MustReadConfig(log, NewOsFullReader(), "../oledlog.hcl")
	assert.Equal(t, DriverSSD1306, c.Display.Driver)
}
