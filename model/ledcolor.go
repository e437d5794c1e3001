package model

import (
	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

// Channels are packed in wire order, 0xAAGGRRBB.
const (
	AlphaOffset uint8 = 0x18
	GreenOffset uint8 = 0x10
	RedOffset   uint8 = 0x08
	BlueOffset  uint8 = 0x0
)

// ColorVal is a packed color. Alpha scales the other channels when the color
// is sent to the strip.
type ColorVal struct {
	val uint32
}

func NewColor(c uint32) ColorVal {
	return ColorVal{val: c}
}

// ColorFromLED returns an opaque color matching l.
func ColorFromLED(l ws2812b.LED) ColorVal {
	c := NewColor(0xFF000000)
	c.SetR(l.Red)
	c.SetG(l.Green)
	c.SetB(l.Blue)
	return c
}

func (c ColorVal) Color() uint32 {
	return c.val
}

func setcolor(c uint32, n uint8, off uint8) uint32 {
	val := uint32(n) << off
	mask := uint32(0xFF) << off
	return (c &^ mask) | val
}

func getcolor(c uint32, off uint8) uint8 {
	return uint8(c >> off)
}

func (c *ColorVal) SetR(r uint8) { c.val = setcolor(c.val, r, RedOffset) }
func (c *ColorVal) SetG(g uint8) { c.val = setcolor(c.val, g, GreenOffset) }
func (c *ColorVal) SetB(b uint8) { c.val = setcolor(c.val, b, BlueOffset) }
func (c *ColorVal) SetA(a uint8) { c.val = setcolor(c.val, a, AlphaOffset) }

func (c ColorVal) R() uint8 { return getcolor(c.val, RedOffset) }
func (c ColorVal) G() uint8 { return getcolor(c.val, GreenOffset) }
func (c ColorVal) B() uint8 { return getcolor(c.val, BlueOffset) }
func (c ColorVal) A() uint8 { return getcolor(c.val, AlphaOffset) }

// LED converts the color to the value sent on the wire, with alpha
// premultiplied.
func (c ColorVal) LED() ws2812b.LED {
	a := uint32(c.A())
	scale := func(v uint8) uint8 {
		return uint8((uint32(v)*a + 127) / 255)
	}
	return ws2812b.LED{
		Red:   scale(c.R()),
		Green: scale(c.G()),
		Blue:  scale(c.B()),
	}
}

// Scale multiplies the alpha channel by s, which must be within [0, 1].
func (c *ColorVal) Scale(s float64) {
	if s > 1.0 || s < 0.0 {
		return
	}
	c.SetA(uint8(float64(c.A())*s + 0.5))
}
