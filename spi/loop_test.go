package spi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-arcaluminis/model"
	"github.com/coreman2200/funtimes-arcaluminis/pattern"
	. "github.com/coreman2200/funtimes-arcaluminis/spi"
	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

type recordSink struct {
	frames [][]ws2812b.LED
	halted int
	err    error
	onShow func()
}

func (s *recordSink) Show(leds []ws2812b.LED) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, append([]ws2812b.LED(nil), leds...))
	if s.onShow != nil {
		s.onShow()
	}
	return nil
}

func (s *recordSink) Halt() error    { s.halted++; return nil }
func (s *recordSink) String() string { return "record" }

type recordObserver struct {
	frames int
}

func (o *recordObserver) Observe(leds []ws2812b.LED) { o.frames++ }

func mustPattern(t *testing.T, k pattern.Kind) pattern.Source {
	t.Helper()
	src, err := pattern.ByName(string(k))
	require.NoError(t, err)
	return src
}

func TestLooper_Render(t *testing.T) {
	sink := &recordSink{}
	obs := &recordObserver{}
	l := &Looper{
		Structure: model.NewStrand(2),
		Source:    mustPattern(t, pattern.IndexSweep),
		Sink:      sink,
		Observer:  obs,
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Render())
	}

	on := ws2812b.LED{Red: 0xFF, Green: 0xFF, Blue: 0xFF}
	assert.Equal(t, [][]ws2812b.LED{
		{on, {}},
		{{}, on},
		{on, {}},
	}, sink.frames)
	assert.Equal(t, 3, obs.frames)
}

func TestLooper_Brightness(t *testing.T) {
	sink := &recordSink{}
	l := &Looper{
		Structure:  model.NewStrand(1),
		Source:     pattern.NewSolid(model.NewColor(0xFFFFFFFF)),
		Sink:       sink,
		Brightness: 0.5,
	}
	require.NoError(t, l.Render())
	require.NoError(t, l.Render())
	assert.Equal(t, []ws2812b.LED{{Red: 0x80, Green: 0x80, Blue: 0x80}}, sink.frames[1])
}

func TestLooper_Limiter(t *testing.T) {
	sink := &recordSink{}
	l := &Looper{
		Structure: model.NewStrand(10),
		Source:    pattern.NewSolid(model.NewColor(0xFFFFFFFF)),
		Sink:      sink,
		Limiter:   &Limiter{BudgetMA: 300},
	}
	require.NoError(t, l.Render())
	assert.LessOrEqual(t, l.Limiter.Current(sink.frames[0]), 300.0)
}

func TestLooper_EmptyPattern(t *testing.T) {
	l := &Looper{
		Structure: model.NewStrand(1),
		Source:    pattern.SourceFunc(func(int, *model.LedStructure) bool { return false }),
		Sink:      &recordSink{},
	}
	assert.Error(t, l.Render())
}

func TestLooper_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &recordSink{}
	sink.onShow = func() {
		if len(sink.frames) == 3 {
			cancel()
		}
	}
	l := &Looper{
		Structure: model.NewStrand(4),
		Source:    mustPattern(t, pattern.Rainbow),
		Sink:      sink,
		FPS:       500,
	}

	err := l.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.GreaterOrEqual(t, len(sink.frames), 3)
	assert.Equal(t, 1, sink.halted)
}

func TestLooper_RunSinkError(t *testing.T) {
	sink := &recordSink{err: errors.New("bus fault")}
	l := &Looper{
		Structure: model.NewStrand(4),
		Source:    mustPattern(t, pattern.RGBChannels),
		Sink:      sink,
		FPS:       500,
	}

	err := l.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus fault")
	assert.Equal(t, 1, sink.halted)
}
