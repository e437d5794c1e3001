package spi

import (
	"image"
	"image/color"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

// Sink displays frames given in wire order.
type Sink interface {
	Show(leds []ws2812b.LED) error
	Halt() error
	String() string
}

var (
	_ Sink = (*Transmitter)(nil)
	_ Sink = (*Drawer)(nil)
)

// Drawer shows frames on a periph display, one pixel per LED.
type Drawer struct {
	mu  sync.Mutex
	d   display.Drawer
	img *image.NRGBA
}

func NewDrawer(d display.Drawer) *Drawer {
	return &Drawer{d: d}
}

// NRZClock is the only SPI clock periph's nrzled accepts: three SPI bits per
// data bit, rounded up to 2.5MHz.
const NRZClock = BitRate*3 + 100*physic.KiloHertz

// NewNRZ drives the strip with periph's own NRZ encoder instead of the
// ws2812b package. A zero freq means NRZClock.
func NewNRZ(p spi.Port, numPixels int, freq physic.Frequency) (*Drawer, error) {
	if freq == 0 {
		freq = NRZClock
	}
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: numPixels,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, errors.Wrap(err, "nrzled")
	}
	return NewDrawer(d), nil
}

// NewConsole prints frames at the terminal.
func NewConsole(numPixels int) *Drawer {
	return NewDrawer(screen.New(numPixels))
}

func (d *Drawer) Show(leds []ws2812b.LED) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := image.Rect(0, 0, len(leds), 1)
	if d.img == nil || d.img.Rect != r {
		d.img = image.NewNRGBA(r)
	}
	for x, l := range leds {
		d.img.SetNRGBA(x, 0, color.NRGBA{R: l.Red, G: l.Green, B: l.Blue, A: 255})
	}
	return d.d.Draw(d.d.Bounds(), d.img, image.Point{})
}

func (d *Drawer) Halt() error {
	return d.d.Halt()
}

func (d *Drawer) String() string {
	return d.d.String()
}
