// Package ws2812b encodes RGB pixel data for WS2812B LED strings into a byte
// stream that reproduces the one-wire timing when shifted out over SPI.
//
// Every color bit becomes a pulse: a run of set bits inside an output byte,
// longer for a one than for a zero. With single packing each bit takes one
// output byte, with double packing two bits share a byte, one per nibble.
//
// Output can be produced in one go with Encoder.Fill or pulled byte by byte
// with an Iterator. Both produce identical streams.
package ws2812b

const (
	// BytesPerLEDSingle is the output size of one LED with single packing.
	BytesPerLEDSingle = 3 * 8
	// BytesPerLEDDouble is the output size of one LED with double packing.
	BytesPerLEDDouble = 3 * 4
)

// LED is the color of one pixel. It is transmitted green, red, blue.
type LED struct {
	Red   uint8
	Green uint8
	Blue  uint8
}

// channel returns the LED's byte in wire order: 0 green, 1 red, 2 blue.
func (l LED) channel(i int) uint8 {
	switch i {
	case 0:
		return l.Green
	case 1:
		return l.Red
	default:
		return l.Blue
	}
}

// DataLen returns the number of output bytes needed for the pixel data alone.
func DataLen(ledCount int, p Packing) int {
	if p == PackingSingle {
		return ledCount * BytesPerLEDSingle
	}
	return ledCount * BytesPerLEDDouble
}

// RequiredBufferLen returns the size of the buffer Fill writes for ledCount
// LEDs, including prefix and suffix bytes.
func RequiredBufferLen(ledCount int, p Packing, prefix, suffix int) int {
	return DataLen(ledCount, p) + prefix + suffix
}

// Encoder turns LED colors into SPI bytes. It is immutable once created and
// may be shared between goroutines.
type Encoder struct {
	cfg    Config
	pulses Pulses
}

// New validates cfg and compiles the pulse templates.
func New(cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{
		cfg:    cfg,
		pulses: compilePulses(cfg),
	}, nil
}

// Config returns the configuration the encoder was created with.
func (e *Encoder) Config() Config { return e.cfg }

// Pulses returns the compiled pulse templates.
func (e *Encoder) Pulses() Pulses { return e.pulses }

// RequiredBufferLen returns the buffer size needed for ledCount LEDs.
func (e *Encoder) RequiredBufferLen(ledCount int) int {
	return RequiredBufferLen(ledCount, e.cfg.Packing, e.cfg.PrefixLen, e.cfg.SuffixLen)
}

// Fill encodes leds into buf and returns the number of bytes written. buf must
// be at least RequiredBufferLen(len(leds)) bytes long, otherwise Fill panics.
func (e *Encoder) Fill(buf []byte, leds []LED) int {
	n := e.RequiredBufferLen(len(leds))
	if len(buf) < n {
		panic("ws2812b: buffer too short")
	}
	buf = buf[:n]

	i := 0
	for ; i < e.cfg.PrefixLen; i++ {
		buf[i] = 0x00
	}

	for _, led := range leds {
		for c := 0; c < 3; c++ {
			i += e.encodeByte(buf[i:], led.channel(c))
		}
	}

	for ; i < n; i++ {
		buf[i] = 0x00
	}

	return n
}

// AppendFrame appends the encoded frame for leds to dst.
func (e *Encoder) AppendFrame(dst []byte, leds []LED) []byte {
	n := e.RequiredBufferLen(len(leds))
	start := len(dst)
	if cap(dst)-start < n {
		grown := make([]byte, start, start+n)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:start+n]
	e.Fill(dst[start:], leds)
	return dst
}

func (e *Encoder) encodeByte(dst []byte, value uint8) int {
	if e.cfg.Packing == PackingDouble {
		for b := 0; b < 8; b += 2 {
			dst[b/2] = e.doublePulse(value, b)
		}
		return 4
	}

	for b := 0; b < 8; b++ {
		dst[b] = e.singlePulse(value, b)
	}
	return 8
}

// singlePulse encodes bit b of value, counting from the most significant bit.
func (e *Encoder) singlePulse(value uint8, b int) byte {
	return e.pulses.For(value&(0x80>>uint(b)) != 0)
}

// doublePulse encodes bits b and b+1 of value, counting from the most
// significant bit, into one byte. The bit sent first by the peripheral goes
// into the nibble it shifts out first.
func (e *Encoder) doublePulse(value uint8, b int) byte {
	first := e.pulses.For(value&(0x80>>uint(b)) != 0)
	second := e.pulses.For(value&(0x80>>uint(b+1)) != 0)

	if e.cfg.BitOrder == MSBFirst {
		return first<<4 | second
	}
	return second<<4 | first
}
