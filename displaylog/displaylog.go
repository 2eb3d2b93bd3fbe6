// Package displaylog shows the latest message on a small OLED panel.
// Every write replaces the whole frame: clear, cursor to top-left, text, flush.
//
// Logger is safe for concurrent use, writes are serialized.
package displaylog

import (
	"image"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"
	"github.com/temoto/atomic_clock"
	"github.com/temoto/oledlog/hardware/oled"
	"github.com/temoto/oledlog/log2"
)

const (
	TextSize = 2

	// Exact line printed before halt, scripts grep for it.
	MsgInitFailed = "SSD1306 allocation failed"
)

var (
	ErrHardwareInit   = errors.New("display hardware init failed")
	ErrNotInitialized = errors.New("display not initialized")
)

func IsHardwareInit(err error) bool { return errors.Cause(err) == ErrHardwareInit }

type State uint8

const (
	StateUninitialized State = iota
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	}
	return "invalid"
}

// HaltFunc must not return.
type HaltFunc func()

// HaltForever stops making progress, like a bare-metal `for(;;);`.
func HaltForever() {
	for {
		time.Sleep(time.Hour)
	}
}

// HaltExit lets supervisor (systemd) restart the process.
func HaltExit() { os.Exit(1) }

type Stat struct {
	Frames      uint64
	FlushErrors uint64
	LastFrame   time.Time // zero before first frame
}

type Logger struct {
	mu    sync.Mutex
	drv   oled.Driver
	log   *log2.Log
	state State

	frames      uint64
	flushErrors uint64
	lastFrame   time.Time
	idle        atomic_clock.Clock
}

func New(drv oled.Driver, log *log2.Log) *Logger {
	return &Logger{drv: drv, log: log}
}

func (self *Logger) State() State {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.state
}

// Begin initializes the panel, clears buffer, sets text size 2 and color On.
// Failure cause is ErrHardwareInit, Logger stays uninitialized.
func (self *Logger) Begin() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.state == StateReady {
		return nil
	}
	if err := self.drv.Init(); err != nil {
		return errors.Wrapf(err, ErrHardwareInit, "%v", err)
	}
	self.drv.ClearBuffer()
	self.drv.SetTextSize(TextSize)
	self.drv.SetTextColor(oled.On)
	self.state = StateReady
	self.log.Debugf("display ready")
	return nil
}

// MustBegin is fail-fast Begin: on failure, report single line and call halt.
// It never returns after failure, even if halt does.
func (self *Logger) MustBegin(halt HaltFunc) {
	err := self.Begin()
	if err == nil {
		return
	}
	self.log.Errorf("%s err=%v", MsgInitFailed, err)
	halt()
	panic("displaylog: halt func returned")
}

// Write shows s from top-left corner, replacing whole frame.
// Only error is ErrNotInitialized. Flush errors are logged and counted in Stat.
func (self *Logger) Write(s string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.state != StateReady {
		return ErrNotInitialized
	}
	self.drv.ClearBuffer()
	self.drv.SetCursor(0, 0)
	for _, r := range s {
		self.drv.WriteRune(r)
	}
	self.flush()
	return nil
}

// WriteInt shows n in plain signed decimal.
func (self *Logger) WriteInt(n int64) error {
	return self.Write(strconv.FormatInt(n, 10))
}

// WriteQR shows text as QR code centered on panel, every module scaled to the
// largest whole number of pixels that fits.
func (self *Logger) WriteQR(text string, border bool, level qrcode.RecoveryLevel) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.state != StateReady {
		return ErrNotInitialized
	}
	drawer, ok := self.drv.(oled.ImageDrawer)
	if !ok {
		return errors.NotSupportedf("QR on display driver %T", self.drv)
	}
	qr, err := qrcode.New(text, level)
	if err != nil {
		return errors.Annotate(err, "QR")
	}
	qr.DisableBorder = !border
	size := drawer.Bounds().Size()
	modules := len(qr.Bitmap())
	scale := minInt(size.X, size.Y) / modules
	if scale == 0 {
		return errors.Errorf("QR modules=%d > display size=%s", modules, size)
	}
	// negative size is pixels per module, keeps all modules same width
	img := qr.Image(-scale)
	imgSize := img.Bounds().Size()

	self.drv.ClearBuffer()
	drawer.DrawImage(img, image.Pt((size.X-imgSize.X)/2, (size.Y-imgSize.Y)/2))
	self.flush()
	return nil
}

func (self *Logger) Stat() Stat {
	self.mu.Lock()
	defer self.mu.Unlock()
	return Stat{Frames: self.frames, FlushErrors: self.flushErrors, LastFrame: self.lastFrame}
}

// SinceLastFrame does not wait for a write in progress. Zero before first frame.
func (self *Logger) SinceLastFrame() time.Duration {
	if self.idle.IsZero() {
		return 0
	}
	return atomic_clock.Since(&self.idle)
}

// caller must hold mu
func (self *Logger) flush() {
	self.frames++
	self.lastFrame = time.Now()
	self.idle.SetNow()
	if err := self.drv.Display(); err != nil {
		self.flushErrors++
		self.log.Errorf("display flush frame=%d err=%v", self.frames, err)
	}
}

func minInt(i1, i2 int) int {
	if i1 <= i2 {
		return i1
	}
	return i2
}
