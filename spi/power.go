package spi

import (
	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

// DefaultChannelMA is the draw of one WS2812B channel at full scale.
const DefaultChannelMA = 20.0

// Limiter keeps frames within what the supply can deliver.
type Limiter struct {
	// WhiteCap caps R+G+B of a single LED, as a fraction of full white.
	// Zero, or one and above, disables it.
	WhiteCap float64
	// ChannelMA defaults to DefaultChannelMA.
	ChannelMA float64
	// BudgetMA is the budget for the whole frame. Zero disables it.
	BudgetMA float64
}

func (l *Limiter) channelMA() float64 {
	if l.ChannelMA > 0 {
		return l.ChannelMA
	}
	return DefaultChannelMA
}

// Current estimates the draw of leds in mA.
func (l *Limiter) Current(leds []ws2812b.LED) float64 {
	var sum float64
	for _, v := range leds {
		sum += float64(v.Red) + float64(v.Green) + float64(v.Blue)
	}
	return sum / 255 * l.channelMA()
}

// Apply caps every LED, then scales the whole frame down if it still draws
// more than the budget. It returns the global scale, 1 when untouched.
func (l *Limiter) Apply(leds []ws2812b.LED) float64 {
	if l.WhiteCap > 0 && l.WhiteCap < 1 {
		limit := l.WhiteCap * 3 * 255
		for i, v := range leds {
			s := float64(v.Red) + float64(v.Green) + float64(v.Blue)
			if s > limit {
				leds[i] = scaleLED(v, limit/s)
			}
		}
	}

	if l.BudgetMA <= 0 {
		return 1
	}
	total := l.Current(leds)
	if total <= l.BudgetMA {
		return 1
	}
	s := l.BudgetMA / total
	for i, v := range leds {
		leds[i] = scaleLED(v, s)
	}
	return s
}

// scaleLED rounds down so a scaled frame never exceeds its target.
func scaleLED(v ws2812b.LED, s float64) ws2812b.LED {
	return ws2812b.LED{
		Red:   uint8(float64(v.Red) * s),
		Green: uint8(float64(v.Green) * s),
		Blue:  uint8(float64(v.Blue) * s),
	}
}
