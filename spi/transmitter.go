package spi

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

// BitRate is the WS2812B data rate: one bit every 1.25µs.
const BitRate = 800 * physic.KiloHertz

// SymbolRate returns the SPI clock at which one encoded symbol lasts exactly
// one WS2812B bit period.
func SymbolRate(p ws2812b.Packing) physic.Frequency {
	if p == ws2812b.PackingDouble {
		return BitRate * 4
	}
	return BitRate * 8
}

// Opts configures a Transmitter.
type Opts struct {
	// Freq overrides the SPI clock. Zero selects SymbolRate for the encoder's
	// packing.
	Freq physic.Frequency
	// Chunk caps the size of a single transfer. Zero sends whole frames,
	// unless the port reports a smaller limit.
	Chunk  int
	Logger zerolog.Logger
}

// Transmitter sends encoded frames over an SPI port.
type Transmitter struct {
	mu     sync.Mutex
	enc    *ws2812b.Encoder
	conn   spi.Conn
	closer io.Closer
	freq   physic.Frequency
	chunk  int
	buf    []byte
	leds   int
	log    zerolog.Logger
}

// NewTransmitter connects to p with the clock and bit order the encoder needs.
func NewTransmitter(p spi.Port, enc *ws2812b.Encoder, o *Opts) (*Transmitter, error) {
	if o == nil {
		o = &Opts{}
	}
	if o.Chunk < 0 {
		return nil, fmt.Errorf("spi: invalid chunk size %d", o.Chunk)
	}

	cfg := enc.Config()
	freq := o.Freq
	if freq == 0 {
		freq = SymbolRate(cfg.Packing)
	}
	mode := spi.Mode0
	if cfg.BitOrder == ws2812b.LSBFirst {
		mode |= spi.LSBFirst
	}

	c, err := p.Connect(freq, mode, 8)
	if err != nil {
		return nil, errors.Wrapf(err, "spi: connect %s", p)
	}

	chunk := o.Chunk
	if l, ok := c.(conn.Limits); ok {
		if m := l.MaxTxSize(); m > 0 && (chunk == 0 || chunk > m) {
			chunk = m
		}
	}

	t := &Transmitter{
		enc:   enc,
		conn:  c,
		freq:  freq,
		chunk: chunk,
		log:   o.Logger,
	}
	t.log.Debug().
		Str("port", p.String()).
		Str("freq", freq.String()).
		Str("mode", mode.String()).
		Int("chunk", chunk).
		Msg("spi connected")
	return t, nil
}

// Open opens the named port from the registry ("" is the first one) and
// connects a Transmitter to it. Close releases the port.
func Open(name string, enc *ws2812b.Encoder, o *Opts) (*Transmitter, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "spi: open")
	}
	t, err := NewTransmitter(p, enc, o)
	if err != nil {
		p.Close()
		return nil, err
	}
	t.closer = p
	return t, nil
}

func (t *Transmitter) Freq() physic.Frequency {
	return t.freq
}

// Show encodes leds into one frame, guard bytes included, and sends it.
func (t *Transmitter) Show(leds []ws2812b.LED) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.enc.RequiredBufferLen(len(leds))
	if cap(t.buf) < n {
		t.buf = make([]byte, n)
	}
	t.buf = t.buf[:n]
	t.enc.Fill(t.buf, leds)
	t.leds = len(leds)

	for b := t.buf; len(b) > 0; {
		m := len(b)
		if t.chunk > 0 && m > t.chunk {
			m = t.chunk
		}
		if err := t.conn.Tx(b[:m], nil); err != nil {
			return errors.Wrap(err, "spi: tx")
		}
		b = b[m:]
	}
	return nil
}

// Stream sends leds by pulling the frame from an iterator in chunk sized
// transfers, so only one chunk is ever held in memory. A zero chunk falls
// back to the transmitter's limit, or the whole frame.
func (t *Transmitter) Stream(leds []ws2812b.LED, chunk int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	it := t.enc.Iter(leds)
	if chunk <= 0 {
		chunk = t.chunk
	}
	if chunk <= 0 {
		chunk = it.Len()
	}
	if cap(t.buf) < chunk {
		t.buf = make([]byte, chunk)
	}
	buf := t.buf[:chunk]
	t.leds = len(leds)

	for !it.Finished() {
		n, err := it.Read(buf)
		if n > 0 {
			if err := t.conn.Tx(buf[:n], nil); err != nil {
				return errors.Wrap(err, "spi: tx")
			}
		}
		if err == io.EOF {
			break
		}
	}
	return nil
}

// Halt turns off as many LEDs as the last frame held.
func (t *Transmitter) Halt() error {
	t.mu.Lock()
	n := t.leds
	t.mu.Unlock()
	return t.Show(make([]ws2812b.LED, n))
}

// Close releases the port if the transmitter opened it.
func (t *Transmitter) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

func (t *Transmitter) String() string {
	return fmt.Sprintf("ws2812b{%s}", t.conn)
}
