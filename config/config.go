// Package config loads and validates the YAML configuration of the driver.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CONFILE is the config file name looked up in the working directory when
// no explicit path is given.
const CONFILE = "config.yml"

// Duration is a time.Duration that parses from YAML scalars written in the
// usual Go form ("40us", "1ms", "10s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10ms\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

type Config struct {
	Hardware HardwareConfig `yaml:"Hardware"`

	// DefaultBoard is the board id used when a call site does not name
	// one. Left out of the file, every call must carry an explicit id.
	DefaultBoard *int          `yaml:"DefaultBoard"`
	Logging      LoggingConfig `yaml:"Logging"`
	Monitor      MonitorConfig `yaml:"Monitor"`
}

type HardwareConfig struct {
	// GPIOLibrary selects the backend: "periph.io" (default), "go-rpio"
	// or "simulation".
	GPIOLibrary   string `yaml:"GPIOLibrary"`
	SPIBus        int    `yaml:"SPIBus"`
	SPIChipSelect int    `yaml:"SPIChipSelect"`
	SPISpeed      int64  `yaml:"SPISpeed"`

	// SPIDelay is the gap the board needs between the command frame and
	// the first response byte. ByteDelay is the settle time after each
	// single-byte response transfer. SettleDelay is taken once after
	// opening the frame-select line so the board's SPI engine can reset.
	SPIDelay     Duration `yaml:"SPIDelay"`
	ByteDelay    Duration `yaml:"ByteDelay"`
	SettleDelay  Duration `yaml:"SettleDelay"`
	FramePin     int      `yaml:"FramePin"`
	InterruptPin int      `yaml:"InterruptPin"`
	AckPin       int      `yaml:"AckPin"`
}

type LoggingConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

type MonitorConfig struct {
	// PollDelay is the pause between state polls of the configured
	// boards; HistorySize bounds the transaction history pane.
	PollDelay   Duration `yaml:"PollDelay"`
	HistorySize int      `yaml:"HistorySize"`
	Boards      []int    `yaml:"Boards"`
}

// Default returns the configuration used when no config file is present:
// periph.io backend, SPI bus 0 chip-select 1 at 300 kHz, and the stock pin
// assignment of the board's interface header.
func Default() *Config {
	return &Config{
		Hardware: HardwareConfig{
			SPIBus:        0,
			SPIChipSelect: 1,
			SPISpeed:      300000,
			SPIDelay:      Duration(40 * time.Microsecond),
			ByteDelay:     Duration(time.Millisecond),
			SettleDelay:   Duration(10 * time.Millisecond),
			FramePin:      25,
			InterruptPin:  22,
			AckPin:        23,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Monitor: MonitorConfig{
			PollDelay:   Duration(500 * time.Millisecond),
			HistorySize: 100,
			Boards:      []int{0},
		},
	}
}

// ReadConfig parses the file at cfile on top of the defaults and validates
// the result.
func ReadConfig(cfile string) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	conf := Default()
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(conf); err != nil {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return conf, nil
}

func (c *Config) validate() error {
	hw := &c.Hardware
	if hw.SPISpeed <= 0 {
		return fmt.Errorf("SPISpeed must be positive (got %d)", hw.SPISpeed)
	}
	if hw.ByteDelay < 0 || hw.SettleDelay < 0 || hw.SPIDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	seen := map[int]string{}
	for _, p := range []struct {
		pin  int
		name string
	}{{hw.FramePin, "FramePin"}, {hw.InterruptPin, "InterruptPin"}, {hw.AckPin, "AckPin"}} {
		if other, dup := seen[p.pin]; dup {
			return fmt.Errorf("%s and %s both use GPIO%d", other, p.name, p.pin)
		}
		seen[p.pin] = p.name
	}
	if c.DefaultBoard != nil && (*c.DefaultBoard < 0 || *c.DefaultBoard > 7) {
		return fmt.Errorf("DefaultBoard %d not in [0,7]", *c.DefaultBoard)
	}
	if c.Monitor.HistorySize <= 0 {
		return fmt.Errorf("Monitor.HistorySize must be positive (got %d)", c.Monitor.HistorySize)
	}
	if c.Monitor.PollDelay <= 0 {
		return fmt.Errorf("Monitor.PollDelay must be positive (got %s)", c.Monitor.PollDelay)
	}
	for _, b := range c.Monitor.Boards {
		if b < 0 || b > 7 {
			return fmt.Errorf("Monitor.Boards entry %d not in [0,7]", b)
		}
	}
	return nil
}
