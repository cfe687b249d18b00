// Package config loads daemon settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/cdc-sniffer/internal/gpio"
)

// Source kinds.
const (
	SourceGPIO  = "gpio"
	SourceFile  = "file"
	SourceSynth = "synth"
)

// Config is the full daemon configuration. Field names match the YAML keys
// and the command-line flags of the same name.
type Config struct {
	Source     string        `yaml:"source"`
	Chip       string        `yaml:"chip"`
	Line       int           `yaml:"line"`
	ActiveLow  bool          `yaml:"active_low"`
	Bias       string        `yaml:"bias"`
	SampleRate float64       `yaml:"sample_rate"`
	File       string        `yaml:"file"`
	Channel    uint          `yaml:"channel"`
	Commands   string        `yaml:"commands"`
	Broker     string        `yaml:"broker"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	HTTPAddr   string        `yaml:"http"`
	LogLevel   string        `yaml:"log_level"`
	Print      bool          `yaml:"print"`
	Rows       []string      `yaml:"rows"`
}

// Default returns the configuration used when no file or flag says otherwise.
func Default() Config {
	return Config{
		Source:     SourceGPIO,
		Chip:       gpio.DefaultChip,
		Line:       gpio.DefaultLine,
		Bias:       "none",
		SampleRate: gpio.DefaultSampleRate,
		Broker:     "tcp://192.168.1.200:1883",
		Heartbeat:  15 * time.Minute,
		HTTPAddr:   ":80",
		LogLevel:   "info",
		Rows:       []string{"bits", "bytes", "commands"},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch c.Source {
	case SourceGPIO, SourceSynth:
	case SourceFile:
		if c.File == "" {
			return errors.New("source file requires a capture file")
		}
	default:
		return fmt.Errorf("unknown source %q (want gpio, file or synth)", c.Source)
	}
	if !(c.SampleRate > 0) {
		return fmt.Errorf("sample rate %v: must be positive", c.SampleRate)
	}
	if c.Channel > 7 {
		return fmt.Errorf("channel %d: must be 0-7", c.Channel)
	}
	if _, err := c.GPIOBias(); err != nil {
		return err
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat %v: must not be negative", c.Heartbeat)
	}
	for _, r := range c.Rows {
		switch r {
		case "bits", "bytes", "commands":
		default:
			return fmt.Errorf("unknown row %q (want bits, bytes or commands)", r)
		}
	}
	return nil
}

// GPIOBias maps the bias setting to the gpio package value.
func (c Config) GPIOBias() (gpio.Bias, error) {
	switch c.Bias {
	case "", "none":
		return gpio.BiasNone, nil
	case "pull-up":
		return gpio.BiasPullUp, nil
	case "pull-down":
		return gpio.BiasPullDown, nil
	}
	return gpio.BiasNone, fmt.Errorf("unknown bias %q (want none, pull-up or pull-down)", c.Bias)
}

// LineConfig returns the gpio line request described by c.
func (c Config) LineConfig() (gpio.LineConfig, error) {
	bias, err := c.GPIOBias()
	if err != nil {
		return gpio.LineConfig{}, err
	}
	return gpio.LineConfig{
		Chip:       c.Chip,
		Line:       c.Line,
		ActiveLow:  c.ActiveLow,
		Bias:       bias,
		SampleRate: c.SampleRate,
	}, nil
}
