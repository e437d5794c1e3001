package spi_test

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	. "github.com/coreman2200/funtimes-arcaluminis/spi"
	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

type fakeDisplay struct {
	n      int
	img    *image.NRGBA
	halted bool
}

func (f *fakeDisplay) String() string          { return "fake" }
func (f *fakeDisplay) Halt() error             { f.halted = true; return nil }
func (f *fakeDisplay) ColorModel() color.Model { return color.NRGBAModel }
func (f *fakeDisplay) Bounds() image.Rectangle { return image.Rect(0, 0, f.n, 1) }

func (f *fakeDisplay) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f.img = image.NewNRGBA(r)
	draw.Draw(f.img, r, src, sp, draw.Src)
	return nil
}

func TestDrawer(t *testing.T) {
	f := &fakeDisplay{n: 2}
	d := NewDrawer(f)
	assert.Equal(t, "fake", d.String())

	require.NoError(t, d.Show(testLEDs))
	require.NotNil(t, f.img)
	assert.Equal(t, color.NRGBA{R: 0xFF, G: 0x80, B: 0x01, A: 0xFF}, f.img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xFF}, f.img.NRGBAAt(1, 0))

	require.NoError(t, d.Halt())
	assert.True(t, f.halted)
}

func TestNRZ(t *testing.T) {
	assert.Equal(t, 2500*physic.KiloHertz, NRZClock)

	for _, tt := range []struct {
		Name string
		Freq physic.Frequency
	}{
		{"default clock", 0},
		{"explicit clock", 2500 * physic.KiloHertz},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			buf := bytes.Buffer{}
			d, err := NewNRZ(spitest.NewRecordRaw(&buf), len(testLEDs), tt.Freq)
			require.NoError(t, err)
			assert.Equal(t, "nrzled{recordraw}", d.String())

			require.NoError(t, d.Show(testLEDs))
			assert.NotZero(t, buf.Len())
		})
	}
}

func TestNRZ_WrongClock(t *testing.T) {
	_, err := NewNRZ(spitest.NewRecordRaw(&bytes.Buffer{}), len(testLEDs), BitRate)
	assert.Error(t, err)
}

func TestConsole(t *testing.T) {
	d := NewConsole(len(testLEDs))
	assert.NoError(t, d.Show([]ws2812b.LED{{Red: 0xFF}, {Blue: 0xFF}}))
}
