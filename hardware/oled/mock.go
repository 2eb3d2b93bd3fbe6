package oled

import (
	"fmt"
	"image"
	"sync"
)

// Mock is recording Driver, renders through real GFX so pixels can be checked too.
type Mock struct {
	*GFX
	InitErr    error
	DisplayErr error

	mu     sync.Mutex
	calls  []string
	frames []string
}

var _ Driver = &Mock{}
var _ ImageDrawer = &Mock{}

func NewMock(width, height int) *Mock {
	return &Mock{GFX: NewGFX(width, height)}
}

func (self *Mock) record(format string, args ...interface{}) {
	self.mu.Lock()
	self.calls = append(self.calls, fmt.Sprintf(format, args...))
	self.mu.Unlock()
}

func (self *Mock) Init() error {
	self.record("Init")
	return self.InitErr
}

func (self *Mock) ClearBuffer() {
	self.record("ClearBuffer")
	self.GFX.ClearBuffer()
}

func (self *Mock) SetCursor(x, y int) {
	self.record("SetCursor(%d,%d)", x, y)
	self.GFX.SetCursor(x, y)
}

func (self *Mock) SetTextSize(n int) {
	self.record("SetTextSize(%d)", n)
	self.GFX.SetTextSize(n)
}

func (self *Mock) SetTextColor(c Color) {
	self.record("SetTextColor(%s)", c)
	self.GFX.SetTextColor(c)
}

func (self *Mock) WriteRune(r rune) {
	self.record("WriteRune(%q)", r)
	self.GFX.WriteRune(r)
}

func (self *Mock) DrawImage(img image.Image, at image.Point) {
	self.record("DrawImage(%s,%s)", img.Bounds().Size(), at)
	self.GFX.DrawImage(img, at)
}

// Display snapshots buffer as text frame, even when DisplayErr is set.
func (self *Mock) Display() error {
	self.record("Display")
	frame := self.GFX.String()
	self.mu.Lock()
	self.frames = append(self.frames, frame)
	self.mu.Unlock()
	return self.DisplayErr
}

// Calls returns recorded calls since last Reset.
func (self *Mock) Calls() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]string(nil), self.calls...)
}

func (self *Mock) Frames() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]string(nil), self.frames...)
}

func (self *Mock) Reset() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.calls = nil
	self.frames = nil
}
