// Package config holds the settings for the hallway host tool. A config
// file can be YAML or TOML; the extension decides.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"hallway/src/lib/shared"
	"hallway/src/lib/trust"
)

// Config is everything the host tool can be told.
type Config struct {
	Board   BoardConfig   `yaml:"board" toml:"board"`
	Console ConsoleConfig `yaml:"console" toml:"console"`
	Markers []Marker      `yaml:"markers" toml:"markers"`
	Image   ImageConfig   `yaml:"image" toml:"image"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// BoardConfig sizes the simulated board.
type BoardConfig struct {
	RAMBase    uint32 `yaml:"ram_base" toml:"ram_base"`
	RAMSize    uint32 `yaml:"ram_size" toml:"ram_size"`
	BaudRate   int    `yaml:"baud_rate" toml:"baud_rate"`
	TickPeriod string `yaml:"tick_period" toml:"tick_period"`
}

// ConsoleConfig says where the serial console is. An empty device means
// the terminal the tool runs in.
type ConsoleConfig struct {
	Device  string `yaml:"device" toml:"device"`
	LineMax int    `yaml:"line_max" toml:"line_max"`
}

// Marker is a bookmark registered before the monitor starts.
type Marker struct {
	Name string `yaml:"name" toml:"name"`
	Addr uint32 `yaml:"addr" toml:"addr"`
}

// ImageConfig names an Intel HEX image to load at startup.
type ImageConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig controls both logs. Level is the host log (zap level
// names), Kernel is the console log as a list of trust levels.
type LoggingConfig struct {
	Level  string   `yaml:"level" toml:"level"`
	Kernel []string `yaml:"kernel" toml:"kernel"`
}

// DefaultConfig is the real board on the local terminal.
func DefaultConfig() *Config {
	return &Config{
		Board: BoardConfig{
			RAMBase:    0,
			RAMSize:    0x2200,
			BaudRate:   shared.BaudRate,
			TickPeriod: "1ms",
		},
		Console: ConsoleConfig{
			LineMax: shared.MaxLine,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Kernel: strings.Fields(trust.LevelToString()),
		},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads path over the defaults. A missing file is not an error; you
// just get the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config to path in the format its extension names.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dev := os.Getenv("HALLWAY_DEVICE"); dev != "" {
		c.Console.Device = dev
	}
	if img := os.Getenv("HALLWAY_IMAGE"); img != "" {
		c.Image.Path = img
	}
}

// GetTickPeriod is the timer period, 1ms if unset or unparsable.
func (c *Config) GetTickPeriod() time.Duration {
	d, err := time.ParseDuration(c.Board.TickPeriod)
	if err != nil || d <= 0 {
		return time.Millisecond
	}
	return d
}

// KernelLevel turns Logging.Kernel into a trust mask.
func (c *Config) KernelLevel() (trust.MaskLevel, error) {
	mask := trust.Nothing
	for _, name := range c.Logging.Kernel {
		switch strings.ToLower(name) {
		case "error":
			mask |= trust.ErrorMask
		case "warn":
			mask |= trust.WarnMask
		case "info":
			mask |= trust.InfoMask
		case "debug":
			mask |= trust.DebugMask
		case "trace":
			mask |= trust.TraceMask
		default:
			return trust.Nothing, fmt.Errorf("unknown kernel log level: %s", name)
		}
	}
	return mask, nil
}

// Validate checks the things that would otherwise fail later and less
// clearly.
func (c *Config) Validate() error {
	if c.Board.RAMSize == 0 {
		return fmt.Errorf("board ram_size must not be zero")
	}
	if uint64(c.Board.RAMBase)+uint64(c.Board.RAMSize) > 1<<32 {
		return fmt.Errorf("board memory 0x%x+0x%x does not fit in 32 bits", c.Board.RAMBase, c.Board.RAMSize)
	}
	if c.Board.BaudRate <= 0 {
		return fmt.Errorf("board baud_rate must be positive, got %d", c.Board.BaudRate)
	}
	if c.Console.LineMax <= 0 {
		return fmt.Errorf("console line_max must be positive, got %d", c.Console.LineMax)
	}
	for _, m := range c.Markers {
		if m.Name == "" {
			return fmt.Errorf("marker at 0x%x has no name", m.Addr)
		}
	}
	if _, err := c.KernelLevel(); err != nil {
		return err
	}
	return nil
}
