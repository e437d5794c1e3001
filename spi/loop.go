package spi

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-arcaluminis/model"
	"github.com/coreman2200/funtimes-arcaluminis/pattern"
	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

const DFLT_FPS = 30

// Observer receives a copy of every frame after it was shown.
type Observer interface {
	Observe(leds []ws2812b.LED)
}

// Looper renders a pattern into a sink at a fixed frame rate.
type Looper struct {
	Structure *model.LedStructure
	Source    pattern.Source
	Sink      Sink
	Observer  Observer
	// FPS defaults to DFLT_FPS.
	FPS int
	// Brightness scales every frame, within [0, 1]. Zero means full.
	Brightness float64
	// Limiter, if set, runs on every frame before it is shown.
	Limiter *Limiter
	Logger  zerolog.Logger

	step  int
	frame []ws2812b.LED
}

// Render draws the next frame. Finished patterns start over.
func (l *Looper) Render() error {
	if !l.Source.Frame(l.step, l.Structure) {
		l.Logger.Debug().Int("steps", l.step).Msg("pattern complete")
		l.step = 0
		if !l.Source.Frame(l.step, l.Structure) {
			return errors.New("pattern produced no frames")
		}
	}
	l.step++

	if l.Brightness > 0 && l.Brightness < 1 {
		for _, v := range l.Structure.Leds() {
			v.Color.Scale(l.Brightness)
		}
	}

	l.frame = l.Structure.Frame(l.frame[:0])
	if l.Limiter != nil {
		if s := l.Limiter.Apply(l.frame); s < 1 {
			l.Logger.Debug().Float64("scale", s).Msg("frame limited")
		}
	}
	if err := l.Sink.Show(l.frame); err != nil {
		return errors.Wrapf(err, "show on %s", l.Sink)
	}
	if l.Observer != nil {
		l.Observer.Observe(l.frame)
	}
	return nil
}

// Run renders until ctx is done or the sink fails, then halts the sink.
func (l *Looper) Run(ctx context.Context) error {
	fps := l.FPS
	if fps <= 0 {
		fps = DFLT_FPS
	}
	delta := time.Second / time.Duration(fps)
	ticker := time.NewTicker(delta)
	defer ticker.Stop()

	l.Logger.Info().
		Str("sink", l.Sink.String()).
		Int("fps", fps).
		Int("leds", l.Structure.Count()).
		Msg("render loop starting")

	start := time.Now()
	frames := 0
	defer func() {
		elapsed := time.Since(start)
		l.Logger.Info().
			Int("frames", frames).
			Dur("elapsed", elapsed).
			Msg("render loop stopped")
	}()

	for {
		select {
		case <-ticker.C:
			t := time.Now()
			if err := l.Render(); err != nil {
				l.halt()
				return err
			}
			frames++

			if d := time.Since(t); d > delta {
				l.Logger.Warn().Dur("took", d).Dur("budget", delta).Msg("frame over budget")
			}

		case <-ctx.Done():
			l.halt()
			return ctx.Err()
		}
	}
}

func (l *Looper) halt() {
	if err := l.Sink.Halt(); err != nil {
		l.Logger.Error().Err(err).Str("sink", l.Sink.String()).Msg("halt failed")
	}
}
