package spi_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"

	. "github.com/coreman2200/funtimes-arcaluminis/spi"
	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

var stripConfig = ws2812b.Config{
	Packing:   ws2812b.PackingDouble,
	PulseLen0: ws2812b.PulseLen1b,
	PulseLen1: ws2812b.PulseLen3b,
	FirstBit0: ws2812b.FirstBit0Enabled,
	BitOrder:  ws2812b.MSBFirst,
	PrefixLen: 1,
	SuffixLen: 4,
}

var testLEDs = []ws2812b.LED{
	{Red: 0xFF, Green: 0x80, Blue: 0x01},
	{Red: 0x12, Green: 0x34, Blue: 0x56},
}

func newEncoder(t *testing.T, cfg ws2812b.Config) *ws2812b.Encoder {
	t.Helper()
	e, err := ws2812b.New(cfg)
	require.NoError(t, err)
	return e
}

// connectSpy records the parameters of the Connect call.
type connectSpy struct {
	spitest.Record
	f    physic.Frequency
	mode spi.Mode
	bits int
}

func (c *connectSpy) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	c.f, c.mode, c.bits = f, mode, bits
	return c.Record.Connect(f, mode, bits)
}

func (c *connectSpy) writes() [][]byte {
	var w [][]byte
	for _, op := range c.Ops {
		w = append(w, op.W)
	}
	return w
}

type limitedConn struct {
	spi.Conn
	max int
}

func (c *limitedConn) MaxTxSize() int { return c.max }

type limitedPort struct {
	connectSpy
	max int
}

func (p *limitedPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	c, err := p.connectSpy.Connect(f, mode, bits)
	if err != nil {
		return nil, err
	}
	return &limitedConn{Conn: c, max: p.max}, nil
}

func TestSymbolRate(t *testing.T) {
	assert.Equal(t, 6400*physic.KiloHertz, SymbolRate(ws2812b.PackingSingle))
	assert.Equal(t, 3200*physic.KiloHertz, SymbolRate(ws2812b.PackingDouble))
}

func TestTransmitter_Show(t *testing.T) {
	buf := bytes.Buffer{}
	enc := newEncoder(t, stripConfig)

	tx, err := NewTransmitter(spitest.NewRecordRaw(&buf), enc, nil)
	require.NoError(t, err)
	assert.Equal(t, "ws2812b{recordraw}", tx.String())

	require.NoError(t, tx.Show(testLEDs))
	assert.Equal(t, enc.AppendFrame(nil, testLEDs), buf.Bytes())
}

func TestTransmitter_Connect(t *testing.T) {
	for _, tt := range []struct {
		Name string
		Cfg  func(c *ws2812b.Config)
		Freq physic.Frequency
		Want physic.Frequency
		Mode spi.Mode
	}{
		{"double msb", func(c *ws2812b.Config) {}, 0, 3200 * physic.KiloHertz, spi.Mode0},
		{"single msb", func(c *ws2812b.Config) { c.Packing = ws2812b.PackingSingle }, 0, 6400 * physic.KiloHertz, spi.Mode0},
		{"lsb", func(c *ws2812b.Config) { c.BitOrder = ws2812b.LSBFirst }, 0, 3200 * physic.KiloHertz, spi.Mode0 | spi.LSBFirst},
		{"fixed clock", func(c *ws2812b.Config) {}, 2400 * physic.KiloHertz, 2400 * physic.KiloHertz, spi.Mode0},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			cfg := stripConfig
			tt.Cfg(&cfg)

			p := &connectSpy{}
			tx, err := NewTransmitter(p, newEncoder(t, cfg), &Opts{Freq: tt.Freq})
			require.NoError(t, err)
			assert.Equal(t, tt.Want, p.f)
			assert.Equal(t, tt.Want, tx.Freq())
			assert.Equal(t, tt.Mode, p.mode)
			assert.Equal(t, 8, p.bits)
		})
	}
}

func TestTransmitter_ConnectError(t *testing.T) {
	p := spitest.NewRecordRaw(&bytes.Buffer{})
	enc := newEncoder(t, stripConfig)

	_, err := NewTransmitter(p, enc, nil)
	require.NoError(t, err)
	_, err = NewTransmitter(p, enc, nil)
	assert.Error(t, err)

	_, err = NewTransmitter(&connectSpy{}, enc, &Opts{Chunk: -1})
	assert.Error(t, err)
}

func TestTransmitter_Chunked(t *testing.T) {
	enc := newEncoder(t, stripConfig)
	frame := enc.AppendFrame(nil, testLEDs)
	require.Len(t, frame, 29)

	p := &connectSpy{}
	tx, err := NewTransmitter(p, enc, &Opts{Chunk: 10})
	require.NoError(t, err)
	require.NoError(t, tx.Show(testLEDs))

	w := p.writes()
	require.Len(t, w, 3)
	assert.Equal(t, frame[:10], w[0])
	assert.Equal(t, frame[10:20], w[1])
	assert.Equal(t, frame[20:], w[2])
}

func TestTransmitter_MaxTxSize(t *testing.T) {
	enc := newEncoder(t, stripConfig)
	frame := enc.AppendFrame(nil, testLEDs)

	p := &limitedPort{max: 7}
	tx, err := NewTransmitter(p, enc, &Opts{Chunk: 100})
	require.NoError(t, err)
	require.NoError(t, tx.Show(testLEDs))

	var got []byte
	for _, w := range p.writes() {
		assert.LessOrEqual(t, len(w), 7)
		got = append(got, w...)
	}
	assert.Equal(t, frame, got)
}

func TestTransmitter_Stream(t *testing.T) {
	for _, packing := range []ws2812b.Packing{ws2812b.PackingSingle, ws2812b.PackingDouble} {
		t.Run(packing.String(), func(t *testing.T) {
			cfg := stripConfig
			cfg.Packing = packing
			enc := newEncoder(t, cfg)
			frame := enc.AppendFrame(nil, testLEDs)

			p := &connectSpy{}
			tx, err := NewTransmitter(p, enc, nil)
			require.NoError(t, err)

			require.NoError(t, tx.Stream(testLEDs, 8))
			var got []byte
			for i, w := range p.writes() {
				if i < len(frame)/8 {
					assert.Len(t, w, 8)
				}
				got = append(got, w...)
			}
			assert.Equal(t, frame, got)

			p.Ops = nil
			require.NoError(t, tx.Stream(testLEDs, 0))
			require.Len(t, p.writes(), 1)
			assert.Equal(t, frame, p.writes()[0])
		})
	}
}

func TestTransmitter_Halt(t *testing.T) {
	enc := newEncoder(t, stripConfig)
	p := &spitest.Playback{
		Playback: conntest.Playback{
			DontPanic: true,
			Ops: []conntest.IO{
				{W: enc.AppendFrame(nil, testLEDs)},
				{W: enc.AppendFrame(nil, make([]ws2812b.LED, len(testLEDs)))},
			},
		},
	}

	tx, err := NewTransmitter(p, enc, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Show(testLEDs))
	require.NoError(t, tx.Halt())
	assert.NoError(t, p.Close())
	assert.NoError(t, tx.Close())
}
