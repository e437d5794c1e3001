package ws2812b

import "math/bits"

// Pulses holds the two compiled templates, already shifted for FirstBit0 and
// reversed for the SPI bit order. For double packing only the low nibble is
// used.
type Pulses struct {
	Zero byte
	One  byte
}

// For reports the template encoding a single bit value.
func (p Pulses) For(bit bool) byte {
	if bit {
		return p.One
	}
	return p.Zero
}

func compilePulses(c Config) Pulses {
	shift := uint(c.FirstBit0)
	p := Pulses{
		Zero: byte(c.PulseLen0) << shift,
		One:  byte(c.PulseLen1) << shift,
	}

	if c.BitOrder == MSBFirst {
		if c.Packing == PackingDouble {
			p.Zero = reverseNibble(p.Zero)
			p.One = reverseNibble(p.One)
		} else {
			p.Zero = bits.Reverse8(p.Zero)
			p.One = bits.Reverse8(p.One)
		}
	}

	return p
}

func reverseNibble(b byte) byte {
	return bits.Reverse8(b&0x0F) >> 4
}
