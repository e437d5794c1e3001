package ws2812b

import "io"

type zone uint8

const (
	zonePrefix zone = iota
	zoneData
	zoneSuffix
	zoneDone
)

// position is where a virtual offset falls in the stream.
type position struct {
	zone    zone
	led     int
	channel int
	bit     int
}

// Iterator produces the encoded stream one byte at a time, for callers that
// cannot hold the whole frame (e.g. a transmit-empty interrupt feeding SPI).
//
// The cursor counts in single packing units regardless of the configured
// packing: a double packed data byte advances it by two. An Iterator is not
// safe for concurrent use.
type Iterator struct {
	enc    *Encoder
	leds   []LED
	cursor int
}

// Iter returns an iterator over the encoded stream for leds, positioned at the
// start. leds must not change while iterating.
func (e *Encoder) Iter(leds []LED) *Iterator {
	return &Iterator{enc: e, leds: leds}
}

// virtualLen is the stream length in cursor units.
func (it *Iterator) virtualLen() int {
	c := it.enc.cfg
	return RequiredBufferLen(len(it.leds), PackingSingle, c.PrefixLen, c.SuffixLen)
}

func (it *Iterator) locate(offset int) position {
	c := it.enc.cfg
	dataLen := DataLen(len(it.leds), PackingSingle)

	switch {
	case offset < c.PrefixLen:
		return position{zone: zonePrefix}
	case offset < c.PrefixLen+dataLen:
		d := offset - c.PrefixLen
		return position{
			zone:    zoneData,
			led:     d / BytesPerLEDSingle,
			channel: d % BytesPerLEDSingle / 8,
			bit:     d % 8,
		}
	case offset < c.PrefixLen+dataLen+c.SuffixLen:
		return position{zone: zoneSuffix}
	default:
		return position{zone: zoneDone}
	}
}

// Restart moves the cursor back to the start of the stream.
func (it *Iterator) Restart() { it.cursor = 0 }

// Pos returns the cursor position in single packing units.
func (it *Iterator) Pos() int { return it.cursor }

// Finished reports whether the whole stream has been produced.
func (it *Iterator) Finished() bool {
	return it.cursor >= it.virtualLen()
}

// Len returns the number of bytes Next will still produce before finishing.
func (it *Iterator) Len() int {
	if it.Finished() {
		return 0
	}

	c := it.enc.cfg
	dataStart := c.PrefixLen
	dataEnd := dataStart + DataLen(len(it.leds), PackingSingle)
	step := 1
	if c.Packing == PackingDouble {
		step = 2
	}

	n := 0
	if it.cursor < dataStart {
		n += dataStart - it.cursor
	}
	if from := maxInt(it.cursor, dataStart); from < dataEnd {
		n += (dataEnd - from) / step
	}
	n += it.virtualLen() - maxInt(it.cursor, dataEnd)
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Next returns the next byte of the stream. Once finished it keeps returning
// 0x00 without changing state.
func (it *Iterator) Next() byte {
	pos := it.locate(it.cursor)

	switch pos.zone {
	case zonePrefix, zoneSuffix:
		it.cursor++
		return 0x00
	case zoneData:
		value := it.leds[pos.led].channel(pos.channel)
		if it.enc.cfg.Packing == PackingDouble {
			it.cursor += 2
			return it.enc.doublePulse(value, pos.bit)
		}
		it.cursor++
		return it.enc.singlePulse(value, pos.bit)
	default:
		return 0x00
	}
}

// ReadByte implements io.ByteReader. It returns io.EOF once finished.
func (it *Iterator) ReadByte() (byte, error) {
	if it.Finished() {
		return 0, io.EOF
	}
	return it.Next(), nil
}

// Read implements io.Reader, filling p with as much of the stream as remains.
func (it *Iterator) Read(p []byte) (int, error) {
	if it.Finished() {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && !it.Finished() {
		p[n] = it.Next()
		n++
	}
	return n, nil
}

var (
	_ io.Reader     = (*Iterator)(nil)
	_ io.ByteReader = (*Iterator)(nil)
)
