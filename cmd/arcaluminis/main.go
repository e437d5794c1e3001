package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-arcaluminis/config"
	"github.com/coreman2200/funtimes-arcaluminis/pattern"
	"github.com/coreman2200/funtimes-arcaluminis/preview"
	"github.com/coreman2200/funtimes-arcaluminis/spi"
	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

var (
	configPath  = "arcaluminis.yaml"
	writeConfig = ""
	verbose     = false

	driver     = config.DriverSPI
	patternArg = ""
	fps        = 0
	brightness = 0.0
	dev        = ""
	freq       = ""
	addr       = ""
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "configuration file (.yaml or .toml)")
	pflag.StringVar(&writeConfig, "write-config", writeConfig, "write the effective configuration to this file and exit")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")

	pflag.StringVarP(&driver, "driver", "d", driver, "output: spi | nrzled | console")
	pflag.StringVarP(&patternArg, "pattern", "p", patternArg, "pattern to render")
	pflag.IntVar(&fps, "fps", fps, "target frames per second")
	pflag.Float64Var(&brightness, "brightness", brightness, "global brightness 0..1")
	pflag.StringVar(&dev, "dev", dev, "SPI port name, empty for the first one")
	pflag.StringVar(&freq, "freq", freq, "SPI clock, e.g. 6.4MHz; empty derives it from the packing")
	pflag.StringVar(&addr, "addr", addr, "preview HTTP listen address, empty to disable")
}

func main() {
	pflag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("arcaluminis failed")
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	if writeConfig != "" {
		if err := config.Save(writeConfig, cfg); err != nil {
			return err
		}
		log.Info().Str("path", writeConfig).Msg("configuration written")
		return nil
	}

	if _, err := host.Init(); err != nil {
		return errors.Wrap(err, "host init")
	}

	structure := cfg.Layout.Structure()
	sink, closeSink, err := openSink(cfg, structure.Count())
	if err != nil {
		return err
	}
	defer closeSink()

	src, err := pattern.ByName(cfg.Pattern)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	looper := &spi.Looper{
		Structure:  structure,
		Source:     src,
		Sink:       sink,
		FPS:        cfg.FPS,
		Brightness: cfg.Brightness,
		Limiter: &spi.Limiter{
			WhiteCap:  cfg.Power.WhiteCap,
			ChannelMA: cfg.Power.ChannelMA,
			BudgetMA:  cfg.Power.BudgetMA,
		},
		Logger: log.With().Str("component", "loop").Logger(),
	}

	errg, ctx := errgroup.WithContext(ctx)

	if cfg.Preview.Addr != "" {
		hub := preview.NewHub(preview.Topology{
			Count:  structure.Count(),
			Panes:  cfg.Layout.Panes,
			Strips: cfg.Layout.Strips,
			Length: cfg.Layout.Length,
			Sink:   sink.String(),
		}, log.With().Str("component", "preview").Logger())
		looper.Observer = hub

		srv := &http.Server{
			Addr:         cfg.Preview.Addr,
			Handler:      hub.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		errg.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return errors.Wrap(err, "preview server")
			}
			return nil
		})
		errg.Go(func() error {
			<-ctx.Done()
			return srv.Close()
		})
	}

	errg.Go(func() error {
		return looper.Run(ctx)
	})

	if err := errg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("shut down")
	return nil
}

// loadConfig reads the configuration file, if any, and applies the flags the
// user set explicitly on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !pflag.CommandLine.Changed("config"):
		log.Warn().Str("path", configPath).Msg("no configuration file; using defaults")
		cfg = config.Default()
	default:
		return nil, err
	}

	flags := pflag.CommandLine
	if flags.Changed("driver") {
		cfg.Driver = driver
	}
	if flags.Changed("pattern") {
		cfg.Pattern = patternArg
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("brightness") {
		cfg.Brightness = brightness
	}
	if flags.Changed("dev") {
		cfg.SPI.Dev = dev
	}
	if flags.Changed("freq") {
		cfg.SPI.Freq = 0
		if freq != "" {
			if err := cfg.SPI.Freq.UnmarshalText([]byte(freq)); err != nil {
				return nil, errors.Wrap(err, "--freq")
			}
		}
	}
	if flags.Changed("addr") {
		cfg.Preview.Addr = addr
	}
	return cfg, nil
}

func nop() error { return nil }

// openSink opens the configured output. Hardware drivers fall back to the
// console when no SPI port can be opened.
func openSink(cfg *config.Config, n int) (spi.Sink, func() error, error) {
	logger := log.With().Str("driver", cfg.Driver).Str("dev", cfg.SPI.Dev).Logger()

	switch cfg.Driver {
	case config.DriverConsole:
		return spi.NewConsole(n), nop, nil

	case config.DriverNRZ:
		p, err := spireg.Open(cfg.SPI.Dev)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to find a SPI port, printing at the console")
			return spi.NewConsole(n), nop, nil
		}
		d, err := spi.NewNRZ(p, n, 0)
		if err != nil {
			p.Close()
			return nil, nil, err
		}
		logger.Info().Str("sink", d.String()).Msg("nrzled ready")
		return d, p.Close, nil

	default:
		enc, err := ws2812b.New(cfg.Strip)
		if err != nil {
			return nil, nil, err
		}
		t, err := spi.Open(cfg.SPI.Dev, enc, &spi.Opts{
			Freq:   physic.Frequency(cfg.SPI.Freq),
			Chunk:  cfg.SPI.Chunk,
			Logger: logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to find a SPI port, printing at the console")
			return spi.NewConsole(n), nop, nil
		}
		logger.Info().
			Str("sink", t.String()).
			Str("freq", t.Freq().String()).
			Int("frame_bytes", enc.RequiredBufferLen(n)).
			Msg("ws2812b ready")
		return t, t.Close, nil
	}
}
