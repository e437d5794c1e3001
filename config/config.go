package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-arcaluminis/model"
	"github.com/coreman2200/funtimes-arcaluminis/pattern"
	"github.com/coreman2200/funtimes-arcaluminis/ws2812b"
)

// Drivers accepted in Config.Driver.
const (
	DriverSPI     = "spi"
	DriverNRZ     = "nrzled"
	DriverConsole = "console"
)

// Frequency is a physic.Frequency spelled like "6.4MHz" in config files.
// Zero means automatic.
type Frequency physic.Frequency

func (f *Frequency) UnmarshalText(text []byte) error {
	var v physic.Frequency
	if err := v.Set(string(text)); err != nil {
		return err
	}
	*f = Frequency(v)
	return nil
}

func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(physic.Frequency(f).String()), nil
}

type Layout struct {
	Panes  int `yaml:"panes" toml:"panes"`
	Strips int `yaml:"strips" toml:"strips"`
	Length int `yaml:"length" toml:"length"`
}

func (l Layout) Count() int {
	return l.Panes * l.Strips * l.Length
}

// Structure builds the LED structure the layout describes.
func (l Layout) Structure() *model.LedStructure {
	return model.NewLedStructure(uint8(l.Panes), uint8(l.Strips), uint8(l.Length))
}

type SPI struct {
	Dev   string    `yaml:"dev" toml:"dev"`     // e.g. /dev/spidev0.0, "" for the first port
	Freq  Frequency `yaml:"freq" toml:"freq"`   // e.g. 6.4MHz
	Chunk int       `yaml:"chunk" toml:"chunk"` // largest single transfer, 0 for whole frames
}

type Power struct {
	WhiteCap  float64 `yaml:"white_cap" toml:"white_cap"`   // fraction of full white per LED, 0 disables
	ChannelMA float64 `yaml:"channel_ma" toml:"channel_ma"` // mA per channel at full scale
	BudgetMA  float64 `yaml:"budget_ma" toml:"budget_ma"`   // 0 disables
}

type Preview struct {
	Addr string `yaml:"addr" toml:"addr"` // empty disables the server
}

type Config struct {
	Driver     string  `yaml:"driver" toml:"driver"` // "spi" | "nrzled" | "console"
	Pattern    string  `yaml:"pattern" toml:"pattern"`
	FPS        int     `yaml:"fps" toml:"fps"`
	Brightness float64 `yaml:"brightness" toml:"brightness"`

	Layout  Layout         `yaml:"layout" toml:"layout"`
	Strip   ws2812b.Config `yaml:"strip" toml:"strip"`
	SPI     SPI            `yaml:"spi" toml:"spi"`
	Power   Power          `yaml:"power" toml:"power"`
	Preview Preview        `yaml:"preview" toml:"preview"`
}

func Default() *Config {
	return &Config{
		Driver:     DriverSPI,
		Pattern:    string(pattern.Rainbow),
		FPS:        30,
		Brightness: 0.8,
		Layout: Layout{
			Panes:  int(model.MaxPaneCount),
			Strips: int(model.MaxPaneLedStripCount),
			Length: int(model.MaxLedStripLength),
		},
		Strip: ws2812b.Config{
			Packing:   ws2812b.PackingSingle,
			PulseLen0: ws2812b.PulseLen2b,
			PulseLen1: ws2812b.PulseLen5b,
			FirstBit0: ws2812b.FirstBit0Disabled,
			BitOrder:  ws2812b.MSBFirst,
			PrefixLen: 1,
			SuffixLen: 48,
		},
		Power: Power{
			WhiteCap:  0.85,
			ChannelMA: 20,
		},
		Preview: Preview{Addr: ":8080"},
	}
}

// Validate checks every field. Strip errors unwrap to the ws2812b sentinel
// errors.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSPI, DriverNRZ, DriverConsole:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	if _, err := pattern.ByName(c.Pattern); err != nil {
		return err
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.Brightness < 0 || c.Brightness > 1 {
		return fmt.Errorf("brightness %v out of [0, 1]", c.Brightness)
	}

	for _, v := range []struct {
		name string
		n    int
	}{{"panes", c.Layout.Panes}, {"strips", c.Layout.Strips}, {"length", c.Layout.Length}} {
		if v.n <= 0 || v.n > 255 {
			return fmt.Errorf("layout.%s %d out of [1, 255]", v.name, v.n)
		}
	}

	if c.Power.WhiteCap < 0 || c.Power.WhiteCap > 1 {
		return fmt.Errorf("power.white_cap %v out of [0, 1]", c.Power.WhiteCap)
	}
	if c.Power.ChannelMA < 0 || c.Power.BudgetMA < 0 {
		return errors.New("power currents must not be negative")
	}

	if c.SPI.Freq < 0 {
		return fmt.Errorf("spi.freq %s is negative", physic.Frequency(c.SPI.Freq))
	}
	if c.SPI.Chunk < 0 {
		return fmt.Errorf("spi.chunk %d is negative", c.SPI.Chunk)
	}

	if err := c.Strip.Validate(); err != nil {
		return errors.Wrap(err, "strip")
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML or TOML file, by extension, over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := Default()
	if isTOML(path) {
		err = toml.Unmarshal(b, c)
	} else {
		err = yaml.Unmarshal(b, c)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	var (
		b   []byte
		err error
	)
	if isTOML(path) {
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Order(toml.OrderPreserve).Encode(c)
		b = buf.Bytes()
	} else {
		b, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return os.WriteFile(path, b, 0644)
}
