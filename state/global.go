package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/oledlog/displaylog"
	"github.com/temoto/oledlog/hardware/oled"
	"github.com/temoto/oledlog/helpers"
	"github.com/temoto/oledlog/log2"
)

type Global struct {
	Alive    *alive.Alive
	Config   *Config
	Hardware struct {
		Display struct {
			// May be set before first Display() call, otherwise built from config.
			Driver oled.Driver
			Logger *displaylog.Logger
		}
	}
	Log *log2.Log

	initDisplayOnce sync.Once
	initDisplayErr  error
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, ContextKey, g)

	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return errors.NotValidf("code error Init() config=nil")
	}
	g.Config = cfg
	if g.Config.Log.Debug {
		g.Log.SetLevel(log2.LDebug)
	}
	g.Log.Debugf("config: display=%+v", g.Config.Display)
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

// Display returns the display logger, constructed once from config.
// Hardware is not touched here, caller runs Begin or MustBegin.
func (g *Global) Display() (*displaylog.Logger, error) {
	g.initDisplayOnce.Do(func() {
		defer recoverFatal(g.Log) // fix sync.Once silent panic

		dcfg := &g.Config.Display
		log := g.Log.Clone(log2.LInfo)
		if dcfg.LogDebug || g.Config.Log.Debug {
			log.SetLevel(log2.LDebug)
		}

		drv := g.Hardware.Display.Driver
		if drv == nil {
			drv, g.initDisplayErr = g.newDisplayDriver(log)
			if g.initDisplayErr != nil {
				return
			}
			g.Hardware.Display.Driver = drv
		}
		g.Hardware.Display.Logger = displaylog.New(drv, log)
	})
	return g.Hardware.Display.Logger, g.initDisplayErr
}

func (g *Global) newDisplayDriver(log *log2.Log) (oled.Driver, error) {
	dcfg := &g.Config.Display
	switch dcfg.Driver {
	case DriverSSD1306:
		open, err := dcfg.Opener()
		if err != nil {
			return nil, errors.Annotate(err, "config: display")
		}
		return oled.NewSSD1306(dcfg.Oled(), open, log), nil
	case DriverMock:
		return oled.NewMock(dcfg.Width, dcfg.Height), nil
	}
	return nil, errors.NotValidf("config: display.driver=%s", dcfg.Driver)
}

// Halt is policy for displaylog.MustBegin from display.halt option.
func (g *Global) Halt() displaylog.HaltFunc {
	if g.Config.Display.Halt == HaltExit {
		return displaylog.HaltExit
	}
	return displaylog.HaltForever
}

// MustDisplay is Display and MustBegin for command line tools.
func (g *Global) MustDisplay() *displaylog.Logger {
	d, err := g.Display()
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
	d.MustBegin(g.Halt())
	return d
}

// Shutdown stops display hardware when driver supports it.
func (g *Global) Shutdown() {
	type halter interface{ Halt() error }
	if h, ok := g.Hardware.Display.Driver.(halter); ok {
		if err := h.Halt(); err != nil {
			g.Log.Errorf("display halt err=%v", errors.ErrorStack(err))
		}
	}
}

func recoverFatal(f helpers.Fataler) {
	if x := recover(); x != nil {
		f.Fatal(x)
	}
}
