package oled

import (
	"image"
	"strings"
	"testing"

	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blank(g *GFX) string {
	r := g.Bounds()
	return strings.Repeat(strings.Repeat("  ", r.Dx())+"\n", r.Dy())
}

func TestGlyphScale(t *testing.T) {
	t.Parallel()

	small := NewGFX(DefaultWidth, DefaultHeight)
	small.WriteRune('A')
	big := NewGFX(DefaultWidth, DefaultHeight)
	big.SetTextSize(2)
	big.WriteRune('A')

	x, y := big.Cursor()
	assert.Equal(t, 12, x)
	assert.Equal(t, 0, y)

	lit := 0
	cw, ch := small.CellSize()
	for sy := 0; sy < ch; sy++ {
		for sx := 0; sx < cw; sx++ {
			p := small.Pixel(sx, sy)
			if p {
				lit++
			}
			for _, d := range []image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
				require.Equal(t, p, big.Pixel(sx*2+d.X, sy*2+d.Y), "x=%d y=%d", sx, sy)
			}
		}
	}
	assert.NotZero(t, lit)
}

func TestCursor(t *testing.T) {
	t.Parallel()

	type Case struct {
		name  string
		size  int
		input string
		x, y  int
	}
	cases := []Case{
		{"empty", 2, "", 0, 0},
		{"plain", 1, "abc", 18, 0},
		{"newline", 1, "ab\r\nc", 6, 8},
		{"fits-row", 2, strings.Repeat("W", 10), 120, 0},
		{"wrap", 2, strings.Repeat("W", 11), 12, 16},
		{"fits-row-small", 1, strings.Repeat("W", 21), 126, 0},
		{"size-zero", 0, "x", 6, 0},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			g := NewGFX(DefaultWidth, DefaultHeight)
			g.SetTextSize(c.size)
			g.WriteString(c.input)
			x, y := g.Cursor()
			assert.Equal(t, c.x, x)
			assert.Equal(t, c.y, y)
		})
	}
}

func TestNoWrapClip(t *testing.T) {
	t.Parallel()

	g := NewGFX(DefaultWidth, DefaultHeight)
	g.SetWrap(false)
	g.SetTextSize(2)
	g.SetCursor(120, 50)
	g.WriteString("MMM")
	x, y := g.Cursor()
	assert.Equal(t, 120+3*12, x)
	assert.Equal(t, 50, y)
	assert.NotEqual(t, blank(g), g.String())
}

func TestGlyphPixels(t *testing.T) {
	t.Parallel()

	g := NewGFX(6, 8)
	g.WriteRune('!')
	expect := ""
	for y := 0; y < 8; y++ {
		for x := 0; x < 6; x++ {
			if x == 2 && y != 5 && y != 7 {
				expect += "██"
			} else {
				expect += "  "
			}
		}
		expect += "\n"
	}
	assert.Equal(t, expect, g.String())
}

func TestGlyphReplacement(t *testing.T) {
	t.Parallel()

	box := NewGFX(6, 8)
	box.WriteRune('\ufffd')
	assert.NotEqual(t, blank(box), box.String())
	for _, r := range []rune{'ю', '\u00a0', '\x7f', '\x01'} {
		g := NewGFX(6, 8)
		g.WriteRune(r)
		assert.Equal(t, box.String(), g.String(), "rune=%U", r)
		x, _ := g.Cursor()
		assert.Equal(t, 6, x)
	}
}

func TestClearAndSpace(t *testing.T) {
	t.Parallel()

	g := NewGFX(16, 16)
	g.WriteRune(' ')
	assert.Equal(t, blank(g), g.String())
	g.SetCursor(0, 0)
	g.WriteRune('#')
	assert.NotEqual(t, blank(g), g.String())
	g.ClearBuffer()
	assert.Equal(t, blank(g), g.String())
}

func TestInverse(t *testing.T) {
	t.Parallel()

	g := NewGFX(16, 16)
	g.SetTextColor(Inverse)
	g.WriteRune('X')
	assert.NotEqual(t, blank(g), g.String())
	g.SetCursor(0, 0)
	g.WriteRune('X')
	assert.Equal(t, blank(g), g.String())
}

func TestDrawImageQR(t *testing.T) {
	t.Parallel()

	g := NewGFX(37, 37)
	qrText := "t=20200211T1825&s=23.00&fn=9998887776665555&i=15&fp=0000000000&n=1"
	qr, err := qrcode.New(qrText, qrcode.High)
	require.NoError(t, err)
	qr.DisableBorder = true
	g.DrawImage(qr.Image(37), image.Point{})
	assert.Equal(t, qr.ToString(false), g.String())

	g.ClearBuffer()
	assert.Equal(t, blank(g), g.String())
}
