// Package oled renders text and pictures into a 1-bit buffer and pushes it to
// a monochrome OLED panel. Drawing model follows Adafruit GFX: draw calls only
// touch the local buffer, Display() transfers it to the panel.
package oled

import (
	"image"

	"github.com/juju/errors"
)

const (
	DefaultAddress = 0x3c
	DefaultWidth   = 128
	DefaultHeight  = 64

	// Internal charge pump, Adafruit SSD1306_SWITCHCAPVCC.
	VccSwitchCap = "switchcap"
	// External supply, Adafruit SSD1306_EXTERNALVCC.
	VccExternal = "external"

	DefaultResetPin = "4"
)

type Color uint8

const (
	Off Color = iota
	On
	Inverse
)

func (c Color) String() string {
	switch c {
	case Off:
		return "off"
	case On:
		return "on"
	case Inverse:
		return "inverse"
	}
	return "invalid"
}

// Driver is all displaylog needs from a panel.
// Buffer methods never fail, bus errors surface in Init and Display.
// Not safe for concurrent use.
type Driver interface {
	Init() error
	ClearBuffer()
	SetCursor(x, y int)
	SetTextSize(n int)
	SetTextColor(c Color)
	WriteRune(r rune)
	Display() error
}

// ImageDrawer is optional Driver capability, used for QR frames.
type ImageDrawer interface {
	Bounds() image.Rectangle
	// DrawImage copies img into the buffer with its origin at `at`, bright pixels On.
	DrawImage(img image.Image, at image.Point)
}

type Config struct {
	Address      uint16
	Width        int
	Height       int
	Vcc          string
	ResetPinChip string // empty disables reset line
	ResetPin     string
	Rotated      bool
	Sequential   bool
}

func DefaultConfig() Config {
	return Config{
		Address:  DefaultAddress,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		Vcc:      VccSwitchCap,
		ResetPin: DefaultResetPin,
	}
}

func (c *Config) Validate() error {
	switch c.Vcc {
	case VccSwitchCap:
	case VccExternal:
		// periph ssd1306 init sequence always enables charge pump
		return errors.NotSupportedf("oled vcc=%s", c.Vcc)
	default:
		return errors.NotValidf("oled vcc=%q valid: %s, %s", c.Vcc, VccSwitchCap, VccExternal)
	}
	if c.Address < 0x03 || c.Address > 0x77 {
		return errors.NotValidf("oled address=%#02x", c.Address)
	}
	if c.Width <= 0 || c.Width > DefaultWidth {
		return errors.NotValidf("oled width=%d", c.Width)
	}
	switch c.Height {
	case 32, 48, 64:
	default:
		return errors.NotValidf("oled height=%d valid: 32, 48, 64", c.Height)
	}
	return nil
}

func (c *Config) Bounds() image.Rectangle { return image.Rect(0, 0, c.Width, c.Height) }
