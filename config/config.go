package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sensorcam/core"
)

// ErrInvalidConfig is returned for configurations that parse but cannot run.
var ErrInvalidConfig = errors.New("invalid_config")

// CaptureConfig sets the capture cadence, in whole seconds.
type CaptureConfig struct {
	IntervalSeconds    uint32 `json:"interval_seconds"`
	FirstOffsetSeconds uint32 `json:"first_offset_seconds"`
}

// Interval returns the capture interval as a duration
func (c CaptureConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// FirstOffset returns the delay before the first capture
func (c CaptureConfig) FirstOffset() time.Duration {
	return time.Duration(c.FirstOffsetSeconds) * time.Second
}

// Config is the device configuration.
type Config struct {
	Clock   core.ClockConfig `json:"clock"`
	Capture CaptureConfig    `json:"capture"`
	Debug   bool             `json:"debug"`
}

// LoadConfig parses a JSON configuration and returns it with defaults
// applied. The clock tree is validated; the derived clocks are returned
// alongside so callers don't derive them twice.
func LoadConfig(jsonData []byte) (*Config, *core.Clocks, error) {
	var config Config

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	clk, err := core.NewClocks(config.Clock)
	if err != nil {
		return nil, nil, err
	}

	interval := clk.TicksFromDuration(config.Capture.Interval())
	if interval > clk.MaxHorizon() {
		return nil, nil, fmt.Errorf("%w: capture interval %ds beyond horizon", ErrInvalidConfig, config.Capture.IntervalSeconds)
	}
	if clk.TicksFromDuration(config.Capture.FirstOffset()) > clk.MaxHorizon() {
		return nil, nil, fmt.Errorf("%w: first offset %ds beyond horizon", ErrInvalidConfig, config.Capture.FirstOffsetSeconds)
	}

	return &config, clk, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *Config) {
	def := core.DefaultClockConfig

	// Clock tree
	if config.Clock.TickHz == 0 {
		config.Clock.TickHz = def.TickHz
	}
	if config.Clock.RefOscHz == 0 {
		config.Clock.RefOscHz = def.RefOscHz
	}
	if config.Clock.RTCPrescaler == 0 {
		config.Clock.RTCPrescaler = def.RTCPrescaler
	}
	if config.Clock.RTCOverflowTocks == 0 {
		config.Clock.RTCOverflowTocks = def.RTCOverflowTocks
	}
	if config.Clock.TimerPrescaler == 0 {
		config.Clock.TimerPrescaler = def.TimerPrescaler
	}
	if config.Clock.TimerMaxCounts == 0 {
		config.Clock.TimerMaxCounts = def.TimerMaxCounts
	}

	// Capture cadence
	if config.Capture.IntervalSeconds == 0 {
		config.Capture.IntervalSeconds = 15 * 60 // every 15 minutes
	}
}

// DefaultConfig returns the configuration used when none is embedded
func DefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}
