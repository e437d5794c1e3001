package model

import (
	"image"
	"image/color"
	"sort"

	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

const (
	MaxLedStripLength    uint8 = 26
	MaxPaneLedStripCount uint8 = 5
	MaxPaneCount         uint8 = 4 // should be 5..
)

const DefaultColor uint32 = 0xFF9911CC

type Led struct {
	index  uint8
	Color  ColorVal
	parent *LedStrip
}

func (l *Led) Index() uint8 {
	return l.index
}

func (l *Led) SetColor(cv ColorVal) {
	l.Color = cv
}

// LedStrip is one run of LEDs. Direction reverses the wire order, for strips
// mounted bottom up in a serpentine layout.
type LedStrip struct {
	index     uint8
	Direction bool
	Strip     []*Led
	parent    *Pane
}

func NewStrip(p *Pane, i uint8, size uint8, d bool, c ColorVal) *LedStrip {
	s := &LedStrip{
		parent:    p,
		index:     i,
		Direction: d,
		Strip:     make([]*Led, 0, size),
	}

	for i := 0; i < int(size); i++ {
		s.Strip = append(s.Strip, &Led{index: uint8(i), Color: c, parent: s})
	}

	return s
}

func (s *LedStrip) Index() uint8 {
	return s.index
}

// Leds returns the strip's LEDs in wire order.
func (s *LedStrip) Leds() []*Led {
	ss := make([]*Led, len(s.Strip))
	copy(ss, s.Strip)

	sort.Slice(ss, func(i, j int) bool {
		if s.Direction {
			return ss[j].Index() < ss[i].Index()
		}
		return ss[i].Index() < ss[j].Index()
	})

	return ss
}

func (s *LedStrip) SetColor(cv ColorVal) {
	for _, v := range s.Strip {
		v.SetColor(cv)
	}
}

type Pane struct {
	index     uint8
	Reverse   bool
	parent    *LedStructure
	LedStrips []*LedStrip
}

// NewPane creates a pane of stripCount strips, every other strip running in
// the opposite direction unless the pane itself is reversed.
func NewPane(p *LedStructure, i uint8, stripCount, stripLen uint8, r bool, c ColorVal) *Pane {
	v := &Pane{
		index:     i,
		parent:    p,
		Reverse:   r,
		LedStrips: make([]*LedStrip, 0, stripCount),
	}

	for i := 0; i < int(stripCount); i++ {
		d := i%2 == 1 && !v.Reverse
		v.LedStrips = append(v.LedStrips, NewStrip(v, uint8(i), stripLen, d, c))
	}

	return v
}

func (p *Pane) Index() uint8 {
	return p.index
}

func (p *Pane) Leds() []*Led {
	r := make([]*Led, 0)
	for _, v := range p.sorted() {
		r = append(r, v.Leds()...)
	}
	return r
}

func (p *Pane) SetColor(cv ColorVal) {
	for _, v := range p.LedStrips {
		v.SetColor(cv)
	}
}

func (p *Pane) sorted() []*LedStrip {
	s := make([]*LedStrip, len(p.LedStrips))
	copy(s, p.LedStrips)

	sort.Slice(s, func(i, j int) bool {
		if p.Reverse {
			return s[j].Index() < s[i].Index()
		}
		return s[i].Index() < s[j].Index()
	})

	return s
}

// LedStructure is the whole installation: panes of strips, chained on one
// data line.
type LedStructure struct {
	panels []*Pane
	count  int
}

// NewLedStructure builds panes×strips×length LEDs. Odd panes are reversed.
func NewLedStructure(panes, strips, length uint8) *LedStructure {
	v := &LedStructure{
		panels: make([]*Pane, 0, panes),
		count:  int(panes) * int(strips) * int(length),
	}

	for i := 0; i < int(panes); i++ {
		v.panels = append(v.panels, NewPane(v, uint8(i), strips, length, i%2 == 1, NewColor(DefaultColor)))
	}

	return v
}

// NewStrand is a structure of a single straight strip.
func NewStrand(length uint8) *LedStructure {
	return NewLedStructure(1, 1, length)
}

func (s *LedStructure) Count() int {
	return s.count
}

func (s *LedStructure) Panels() int {
	return len(s.panels)
}

func (s *LedStructure) Panel(i int) *Pane {
	return s.panels[i]
}

func (s *LedStructure) Leds() []*Led {
	r := make([]*Led, 0, s.count)
	for _, v := range s.panels {
		r = append(r, v.Leds()...)
	}
	return r
}

func (s *LedStructure) SetColor(cv ColorVal) {
	for _, v := range s.panels {
		v.SetColor(cv)
	}
}

// Clear turns every LED off.
func (s *LedStructure) Clear() {
	s.SetColor(NewColor(0))
}

// Load sets LED colors from frame, which is in wire order. Extra entries on
// either side are ignored.
func (s *LedStructure) Load(frame []ws2812b.LED) {
	for i, l := range s.Leds() {
		if i >= len(frame) {
			return
		}
		l.SetColor(ColorFromLED(frame[i]))
	}
}

// Frame appends the structure's colors to dst in wire order.
func (s *LedStructure) Frame(dst []ws2812b.LED) []ws2812b.LED {
	for _, l := range s.Leds() {
		dst = append(dst, l.Color.LED())
	}
	return dst
}

// Image renders the structure as a one pixel high image in wire order.
func (s *LedStructure) Image() *image.NRGBA {
	ls := s.Leds()
	im := image.NewNRGBA(image.Rect(0, 0, len(ls), 1))
	for x, l := range ls {
		c := l.Color.LED()
		im.SetNRGBA(x, 0, color.NRGBA{R: c.Red, G: c.Green, B: c.Blue, A: 255})
	}
	return im
}
