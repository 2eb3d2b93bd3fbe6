package oled

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// GFX is text cursor and glyph renderer over 1-bit buffer in SSD1306 memory layout.
// Glyph cell is Face5x7 6x8 multiplied by text size.
type GFX struct {
	buf    *image1bit.VerticalLSB
	face   *basicfont.Face
	x, y   int
	size   int
	color  Color
	nowrap bool
}

func NewGFX(width, height int) *GFX {
	return &GFX{
		buf:   image1bit.NewVerticalLSB(image.Rect(0, 0, width, height)),
		face:  Face5x7,
		size:  1,
		color: On,
	}
}

func (self *GFX) Bounds() image.Rectangle       { return self.buf.Bounds() }
func (self *GFX) Image() *image1bit.VerticalLSB { return self.buf }
func (self *GFX) Cursor() (x, y int)            { return self.x, self.y }
func (self *GFX) SetCursor(x, y int)            { self.x, self.y = x, y }
func (self *GFX) TextSize() int                 { return self.size }
func (self *GFX) TextColor() Color              { return self.color }
func (self *GFX) SetTextColor(c Color)          { self.color = c }
func (self *GFX) SetWrap(wrap bool)             { self.nowrap = !wrap }
func (self *GFX) Pixel(x, y int) bool           { return bool(self.buf.BitAt(x, y)) }
func (self *GFX) CellSize() (width, height int) { return self.face.Advance * self.size, self.face.Height * self.size }

func (self *GFX) SetTextSize(n int) {
	if n < 1 {
		n = 1
	}
	self.size = n
}

func (self *GFX) ClearBuffer() {
	for i := range self.buf.Pix {
		self.buf.Pix[i] = 0
	}
}

// WriteRune draws r at cursor and advances it.
// '\n' starts next line, '\r' is ignored.
// With wrap enabled (default), glyph not fitting rest of line goes to next line.
// Anything beyond bottom edge is clipped.
func (self *GFX) WriteRune(r rune) {
	cw, ch := self.CellSize()
	switch r {
	case '\n':
		self.x = 0
		self.y += ch
		return
	case '\r':
		return
	}
	if !self.nowrap && self.x+cw > self.buf.Rect.Dx() {
		self.x = 0
		self.y += ch
	}
	self.drawGlyph(self.x, self.y, r)
	self.x += cw
}

func (self *GFX) WriteString(s string) {
	for _, r := range s {
		self.WriteRune(r)
	}
}

func (self *GFX) drawGlyph(x0, y0 int, r rune) {
	// ok=false with mask set means replacement glyph
	dr, mask, maskp, _, _ := self.face.Glyph(fixed.P(0, self.face.Ascent), r)
	if mask == nil {
		return
	}
	for dy := 0; dy < dr.Dy(); dy++ {
		for dx := 0; dx < dr.Dx(); dx++ {
			if _, _, _, a := mask.At(maskp.X+dx, maskp.Y+dy).RGBA(); a == 0 {
				continue
			}
			self.fillRect(x0+(dr.Min.X+dx)*self.size, y0+(dr.Min.Y+dy)*self.size, self.size, self.size, self.color)
		}
	}
}

func (self *GFX) fillRect(x0, y0, w, h int, c Color) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			self.SetPixel(x, y, c)
		}
	}
}

// SetPixel outside of buffer is no-op.
func (self *GFX) SetPixel(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(self.buf.Rect)) {
		return
	}
	switch c {
	case On:
		self.buf.SetBit(x, y, image1bit.On)
	case Off:
		self.buf.SetBit(x, y, image1bit.Off)
	case Inverse:
		self.buf.SetBit(x, y, !self.buf.BitAt(x, y))
	}
}

func (self *GFX) DrawImage(img image.Image, at image.Point) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := Off
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y >= 0x80 {
				c = On
			}
			self.SetPixel(at.X+x-b.Min.X, at.Y+y-b.Min.Y, c)
		}
	}
}

// String renders buffer as text, two chars per pixel to keep aspect ratio.
func (self *GFX) String() string {
	r := self.buf.Rect
	b := strings.Builder{}
	b.Grow((r.Dx()*len("██") + 1) * r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if self.Pixel(x, y) {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}
