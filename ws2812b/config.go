package ws2812b

import (
	"fmt"
	"strconv"
	"strings"
)

// Packing is the number of color bits encoded into one output byte.
type Packing uint8

const (
	PackingSingle Packing = 1
	PackingDouble Packing = 2
)

func (p Packing) Valid() bool {
	return p == PackingSingle || p == PackingDouble
}

func (p Packing) String() string {
	switch p {
	case PackingSingle:
		return "single"
	case PackingDouble:
		return "double"
	default:
		return fmt.Sprintf("Packing(%d)", uint8(p))
	}
}

func (p Packing) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid packing %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Packing) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "single", "1":
		*p = PackingSingle
	case "double", "2":
		*p = PackingDouble
	default:
		return fmt.Errorf("unknown packing %q", text)
	}
	return nil
}

// PulseLen is a contiguous run of set bits, starting at bit 0, that makes up
// one pulse inside an output byte (or nibble when double packed).
type PulseLen uint8

const (
	PulseLen1b PulseLen = 0x01
	PulseLen2b PulseLen = 0x03
	PulseLen3b PulseLen = 0x07
	PulseLen4b PulseLen = 0x0F
	PulseLen5b PulseLen = 0x1F
	PulseLen6b PulseLen = 0x3F
	PulseLen7b PulseLen = 0x7F
)

// PulseLenBits returns the PulseLen made of n set bits.
func PulseLenBits(n int) (PulseLen, error) {
	if n < 1 || n > 7 {
		return 0, fmt.Errorf("pulse length must be 1-7 bits, got %d", n)
	}
	return PulseLen(1<<uint(n) - 1), nil
}

// Valid reports whether p is one of the PulseLen1b..PulseLen7b runs.
func (p PulseLen) Valid() bool {
	switch p {
	case PulseLen1b, PulseLen2b, PulseLen3b, PulseLen4b, PulseLen5b, PulseLen6b, PulseLen7b:
		return true
	}
	return false
}

// Bits returns the run length of p, or 0 if p is not valid.
func (p PulseLen) Bits() int {
	if !p.Valid() {
		return 0
	}
	n := 0
	for v := p; v != 0; v >>= 1 {
		n++
	}
	return n
}

func (p PulseLen) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PulseLen(%#02x)", uint8(p))
	}
	return strconv.Itoa(p.Bits()) + "b"
}

func (p PulseLen) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid pulse length %#02x", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts "3b" or "3".
func (p *PulseLen) UnmarshalText(text []byte) error {
	s := strings.TrimSuffix(strings.ToLower(string(text)), "b")
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid pulse length %q", text)
	}
	v, err := PulseLenBits(n)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// FirstBit0 forces a leading zero bit into every pulse.
type FirstBit0 uint8

const (
	FirstBit0Disabled FirstBit0 = 0
	FirstBit0Enabled  FirstBit0 = 1
)

func (f FirstBit0) Valid() bool {
	return f == FirstBit0Disabled || f == FirstBit0Enabled
}

func (f FirstBit0) String() string {
	switch f {
	case FirstBit0Disabled:
		return "disabled"
	case FirstBit0Enabled:
		return "enabled"
	default:
		return fmt.Sprintf("FirstBit0(%d)", uint8(f))
	}
}

func (f FirstBit0) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid first bit flag %d", uint8(f))
	}
	return []byte(f.String()), nil
}

func (f *FirstBit0) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "enabled", "true", "on", "1":
		*f = FirstBit0Enabled
	case "disabled", "false", "off", "0":
		*f = FirstBit0Disabled
	default:
		return fmt.Errorf("unknown first bit flag %q", text)
	}
	return nil
}

// BitOrder is the order in which the SPI peripheral shifts out each byte.
type BitOrder uint8

const (
	MSBFirst BitOrder = 0
	LSBFirst BitOrder = 1
)

func (o BitOrder) Valid() bool {
	return o == MSBFirst || o == LSBFirst
}

func (o BitOrder) String() string {
	switch o {
	case MSBFirst:
		return "msb"
	case LSBFirst:
		return "lsb"
	default:
		return fmt.Sprintf("BitOrder(%d)", uint8(o))
	}
}

func (o BitOrder) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid bit order %d", uint8(o))
	}
	return []byte(o.String()), nil
}

func (o *BitOrder) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "msb", "msb_first", "msb-first":
		*o = MSBFirst
	case "lsb", "lsb_first", "lsb-first":
		*o = LSBFirst
	default:
		return fmt.Errorf("unknown bit order %q", text)
	}
	return nil
}

// Config describes how LED data is turned into SPI bytes. It is never
// modified by the encoder.
type Config struct {
	Packing   Packing   `yaml:"packing" toml:"packing"`
	PulseLen0 PulseLen  `yaml:"pulse_len_0" toml:"pulse_len_0"`
	PulseLen1 PulseLen  `yaml:"pulse_len_1" toml:"pulse_len_1"`
	FirstBit0 FirstBit0 `yaml:"first_bit_0" toml:"first_bit_0"`
	BitOrder  BitOrder  `yaml:"bit_order" toml:"bit_order"`
	// PrefixLen and SuffixLen are zero bytes sent around the pixel data.
	PrefixLen int `yaml:"prefix_len" toml:"prefix_len"`
	SuffixLen int `yaml:"suffix_len" toml:"suffix_len"`
}

// maxDoublePulseBits is the longest run that still leaves a low bit in a
// nibble.
const maxDoublePulseBits = 3

// Validate checks the configuration and returns the first problem found as a
// *ConfigError.
func (c Config) Validate() error {
	switch {
	case !c.Packing.Valid():
		return &ConfigError{Err: ErrInvalidPacking, Field: "packing", Value: int(c.Packing)}
	case !c.PulseLen0.Valid():
		return &ConfigError{Err: ErrInvalidPulseLen0, Field: "pulse_len_0", Value: int(c.PulseLen0)}
	case !c.PulseLen1.Valid():
		return &ConfigError{Err: ErrInvalidPulseLen1, Field: "pulse_len_1", Value: int(c.PulseLen1)}
	case !c.FirstBit0.Valid():
		return &ConfigError{Err: ErrInvalidFirstBit0, Field: "first_bit_0", Value: int(c.FirstBit0)}
	case !c.BitOrder.Valid():
		return &ConfigError{Err: ErrInvalidBitOrder, Field: "bit_order", Value: int(c.BitOrder)}
	case c.PulseLen1 <= c.PulseLen0:
		return &ConfigError{Err: ErrPulseOrdering, Field: "pulse_len_1", Value: int(c.PulseLen1)}
	case c.Packing == PackingDouble && c.PulseLen1.Bits() > maxDoublePulseBits:
		return &ConfigError{Err: ErrPulseTooLong, Field: "pulse_len_1", Value: int(c.PulseLen1)}
	case c.PrefixLen < 0:
		return &ConfigError{Err: ErrInvalidGuardLen, Field: "prefix_len", Value: c.PrefixLen}
	case c.SuffixLen < 0:
		return &ConfigError{Err: ErrInvalidGuardLen, Field: "suffix_len", Value: c.SuffixLen}
	}
	return nil
}
