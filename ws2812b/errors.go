package ws2812b

import (
	"errors"
	"fmt"
)

// Configuration errors returned by New and Config.Validate. They are always
// wrapped in a *ConfigError; use errors.Is to test for them.
var (
	ErrInvalidPacking   = errors.New("packing is invalid")
	ErrInvalidPulseLen0 = errors.New("pulse_len_0 is invalid")
	ErrInvalidPulseLen1 = errors.New("pulse_len_1 is invalid")
	ErrInvalidFirstBit0 = errors.New("first_bit_0 is invalid")
	ErrInvalidBitOrder  = errors.New("bit order is invalid")
	ErrPulseOrdering    = errors.New("one-pulse must be longer than zero-pulse")
	ErrPulseTooLong     = errors.New("one-pulse is too long for double packing")
	ErrInvalidGuardLen  = errors.New("guard length must not be negative")
)

// ConfigError reports which configuration field failed validation.
type ConfigError struct {
	Err   error
	Field string
	Value int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ws2812b: config.%s: %v (got %#x)", e.Field, e.Err, e.Value)
}

func (e *ConfigError) Unwrap() error { return e.Err }
