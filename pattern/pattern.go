// Package pattern generates frames for an LED structure, one step at a time.
package pattern

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/coreman2200/funtimes-arcaluminis/model"
)

type Kind string

const (
	Solid       Kind = "solid"
	IndexSweep  Kind = "index_sweep"
	RGBChannels Kind = "rgb_channels"
	PaneSweep   Kind = "pane_sweep"
	Rainbow     Kind = "rainbow"
)

// Source colors every LED of s for the given step. It returns false once the
// pattern has nothing more to show; s is left cleared in that case.
type Source interface {
	Frame(step int, s *model.LedStructure) bool
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(step int, s *model.LedStructure) bool

func (f SourceFunc) Frame(step int, s *model.LedStructure) bool {
	return f(step, s)
}

var (
	white = model.NewColor(0xFFFFFFFF)
	red   = model.NewColor(0xFF00FF00)
	green = model.NewColor(0xFFFF0000)
	blue  = model.NewColor(0xFF0000FF)
	cyan  = model.NewColor(0xFFFF00FF)
)

var kinds = map[Kind]func() Source{
	Solid:       func() Source { return NewSolid(model.NewColor(model.DefaultColor)) },
	IndexSweep:  func() Source { return SourceFunc(indexSweep) },
	RGBChannels: func() Source { return SourceFunc(rgbChannels) },
	PaneSweep:   func() Source { return SourceFunc(paneSweep) },
	Rainbow:     func() Source { return NewRainbow(0.01) },
}

// Kinds lists the names accepted by ByName.
func Kinds() []Kind {
	r := make([]Kind, 0, len(kinds))
	for k := range kinds {
		r = append(r, k)
	}
	sort.Slice(r, func(i, j int) bool { return r[i] < r[j] })
	return r
}

func ByName(name string) (Source, error) {
	f, ok := kinds[Kind(name)]
	if !ok {
		return nil, fmt.Errorf("unknown pattern %q", name)
	}
	return f(), nil
}

type solid struct {
	c model.ColorVal
}

// NewSolid returns a source holding every LED at c forever.
func NewSolid(c model.ColorVal) Source {
	return &solid{c: c}
}

func (p *solid) Frame(_ int, s *model.LedStructure) bool {
	s.SetColor(p.c)
	return true
}

// indexSweep lights one LED per step, in wire order.
func indexSweep(step int, s *model.LedStructure) bool {
	s.Clear()
	leds := s.Leds()
	if step >= len(leds) {
		return false
	}
	leds[step].SetColor(white)
	return true
}

// rgbChannels cycles the whole structure through red, green and blue.
func rgbChannels(step int, s *model.LedStructure) bool {
	switch step % 3 {
	case 0:
		s.SetColor(red)
	case 1:
		s.SetColor(green)
	default:
		s.SetColor(blue)
	}
	return true
}

// paneSweep lights one pane per step.
func paneSweep(step int, s *model.LedStructure) bool {
	s.Clear()
	if step >= s.Panels() {
		return false
	}
	s.Panel(step).SetColor(cyan)
	return true
}

type rainbow struct {
	speed float64
}

// NewRainbow spreads the color wheel across the structure in wire order and
// rotates it by speed turns per step.
func NewRainbow(speed float64) Source {
	return &rainbow{speed: speed}
}

func (p *rainbow) Frame(step int, s *model.LedStructure) bool {
	leds := s.Leds()
	phase := float64(step) * p.speed
	for i, l := range leds {
		h := math.Mod(float64(i)/float64(len(leds))+phase, 1.0)
		c := colorWheel(h)

		v := model.NewColor(0)
		v.SetA(c.A)
		v.SetR(c.R)
		v.SetG(c.G)
		v.SetB(c.B)
		l.SetColor(v)
	}
	return true
}

func colorWheel(h float64) color.NRGBA {
	h *= 6
	switch {
	case h < 1.:
		return color.NRGBA{R: 255, G: byte(255 * h), A: 255}
	case h < 2.:
		return color.NRGBA{R: byte(255 * (2 - h)), G: 255, A: 255}
	case h < 3.:
		return color.NRGBA{G: 255, B: byte(255 * (h - 2)), A: 255}
	case h < 4.:
		return color.NRGBA{G: byte(255 * (4 - h)), B: 255, A: 255}
	case h < 5.:
		return color.NRGBA{R: byte(255 * (h - 4)), B: 255, A: 255}
	default:
		return color.NRGBA{R: 255, B: byte(255 * (6 - h)), A: 255}
	}
}
