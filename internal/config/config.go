// Package config loads the gauge configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/espresso-gauge/internal/input"
	"github.com/sweeney/espresso-gauge/internal/logic"
	"github.com/sweeney/espresso-gauge/internal/power"
	"github.com/sweeney/espresso-gauge/internal/sensor"
)

// Sensor sources.
const (
	SourceI2C       = "i2c"
	SourceSynthetic = "synthetic"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config represents the gauge configuration.
type Config struct {
	Tick    time.Duration `yaml:"tick"`
	History int           `yaml:"history"`
	Sensor  SensorConfig  `yaml:"sensor"`
	Shot    ShotConfig    `yaml:"shot"`
	Idle    IdleConfig    `yaml:"idle"`
	Zones   ZoneConfig    `yaml:"zones"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Serial  SerialConfig  `yaml:"serial"`
	Buttons ButtonConfig  `yaml:"buttons"`
	Power   PowerConfig   `yaml:"power"`
}

// SensorConfig selects and tunes the pressure transducer.
type SensorConfig struct {
	Source      string             `yaml:"source"` // "i2c" or "synthetic"
	Bus         string             `yaml:"bus"`    // periph bus name, "" = first available
	Address     uint16             `yaml:"address"`
	Register    uint8              `yaml:"register"`
	Samples     int                `yaml:"samples"`
	Settle      time.Duration      `yaml:"settle"` // negative disables the delay
	Timeout     time.Duration      `yaml:"timeout"`
	MaxRange    int32              `yaml:"max_range"` // mbar
	Calibration sensor.Calibration `yaml:"calibration"`
}

// ShotConfig contains shot timer parameters.
type ShotConfig struct {
	FlowThreshold int32 `yaml:"flow_threshold"` // mbar
}

// IdleConfig contains the auto power-off policy.
type IdleConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ZoneConfig contains severity thresholds in mbar.
type ZoneConfig struct {
	Elevated int32 `yaml:"elevated"`
	Warning  int32 `yaml:"warning"`
	Danger   int32 `yaml:"danger"`
	Headroom int32 `yaml:"headroom"` // subtracted from max_range for graph scale
}

// MQTTConfig contains telemetry settings. An empty broker disables telemetry.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Enabled   bool          `yaml:"enabled"` // telemetry state at startup
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTPConfig contains the status page address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SerialConfig contains the console port. Empty disables it.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// ButtonConfig contains GPIO line numbers (BCM).
type ButtonConfig struct {
	Chip string `yaml:"chip"` // "" disables buttons
	PinA int    `yaml:"pin_a"`
	PinB int    `yaml:"pin_b"`
	PinC int    `yaml:"pin_c"`
}

// PowerConfig controls power actions.
type PowerConfig struct {
	DryRun    bool   `yaml:"dry_run"`
	SysfsRoot string `yaml:"sysfs_root"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Tick:    20 * time.Millisecond,
		History: 160,
		Sensor: SensorConfig{
			Source:      SourceI2C,
			Address:     sensor.DefaultAddress,
			Register:    sensor.DefaultRegister,
			Samples:     3,
			Settle:      5 * time.Millisecond,
			Timeout:     100 * time.Millisecond,
			MaxRange:    20000,
			Calibration: sensor.DefaultCalibration,
		},
		Shot: ShotConfig{FlowThreshold: 1000},
		Idle: IdleConfig{Timeout: 10 * time.Minute},
		Zones: ZoneConfig{
			Elevated: int32(logic.DefaultThresholds.Elevated),
			Warning:  int32(logic.DefaultThresholds.Warning),
			Danger:   int32(logic.DefaultThresholds.Danger),
			Headroom: 10000,
		},
		MQTT: MQTTConfig{
			ClientID:  "espresso-gauge",
			Enabled:   true,
			Heartbeat: 15 * time.Minute,
		},
		HTTP:   HTTPConfig{Addr: ":8080"},
		Serial: SerialConfig{Baud: 115200},
		Buttons: ButtonConfig{
			Chip: "gpiochip0",
			PinA: input.DefaultPinA,
			PinB: input.DefaultPinB,
			PinC: input.DefaultPinC,
		},
		Power: PowerConfig{SysfsRoot: power.DefaultSysfsRoot},
	}
}

// Load reads configuration from a YAML file over the defaults. A missing file
// yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ensureDefaults()
	return cfg, nil
}

// ensureDefaults re-applies defaults to fields that were explicitly zeroed.
// Omitted keys already keep their defaults because the file is decoded over
// Default(). Zero is honoured where it is a real setting: sensor.register,
// calibration.b and shot.flow_threshold.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Tick == 0 {
		c.Tick = def.Tick
	}
	if c.History == 0 {
		c.History = def.History
	}

	if c.Sensor.Source == "" {
		c.Sensor.Source = def.Sensor.Source
	}
	if c.Sensor.Address == 0 {
		c.Sensor.Address = def.Sensor.Address
	}
	if c.Sensor.Samples == 0 {
		c.Sensor.Samples = def.Sensor.Samples
	}
	if c.Sensor.Settle == 0 {
		c.Sensor.Settle = def.Sensor.Settle
	}
	if c.Sensor.Timeout == 0 {
		c.Sensor.Timeout = def.Sensor.Timeout
	}
	if c.Sensor.MaxRange == 0 {
		c.Sensor.MaxRange = def.Sensor.MaxRange
	}
	if c.Sensor.Calibration.A == 0 {
		c.Sensor.Calibration.A = def.Sensor.Calibration.A
	}

	if c.Idle.Timeout == 0 {
		c.Idle.Timeout = def.Idle.Timeout
	}

	if c.Zones.Elevated == 0 {
		c.Zones.Elevated = def.Zones.Elevated
	}
	if c.Zones.Warning == 0 {
		c.Zones.Warning = def.Zones.Warning
	}
	if c.Zones.Danger == 0 {
		c.Zones.Danger = def.Zones.Danger
	}
	if c.Zones.Headroom == 0 {
		c.Zones.Headroom = def.Zones.Headroom
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Power.SysfsRoot == "" {
		c.Power.SysfsRoot = def.Power.SysfsRoot
	}
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	switch {
	case c.Tick <= 0:
		return fmt.Errorf("%w: tick must be positive", ErrInvalid)
	case c.History < 2:
		return fmt.Errorf("%w: history must hold at least 2 samples", ErrInvalid)
	case c.Sensor.Samples < 1:
		return fmt.Errorf("%w: sensor.samples must be at least 1", ErrInvalid)
	case c.Sensor.Timeout <= 0:
		return fmt.Errorf("%w: sensor.timeout must be positive", ErrInvalid)
	case c.Sensor.Source != SourceI2C && c.Sensor.Source != SourceSynthetic:
		return fmt.Errorf("%w: unknown sensor.source %q", ErrInvalid, c.Sensor.Source)
	case c.Sensor.MaxRange <= c.Zones.Headroom:
		return fmt.Errorf("%w: sensor.max_range %d must exceed zones.headroom %d", ErrInvalid, c.Sensor.MaxRange, c.Zones.Headroom)
	case !(c.Zones.Elevated < c.Zones.Warning && c.Zones.Warning < c.Zones.Danger):
		return fmt.Errorf("%w: zones must satisfy elevated < warning < danger", ErrInvalid)
	case c.Shot.FlowThreshold < 0:
		return fmt.Errorf("%w: shot.flow_threshold must not be negative", ErrInvalid)
	case c.Idle.Timeout <= 0:
		return fmt.Errorf("%w: idle.timeout must be positive", ErrInvalid)
	}
	return nil
}

// Thresholds returns the zone thresholds for the classifier.
func (c *Config) Thresholds() logic.Thresholds {
	return logic.Thresholds{
		Elevated: logic.Pressure(c.Zones.Elevated),
		Warning:  logic.Pressure(c.Zones.Warning),
		Danger:   logic.Pressure(c.Zones.Danger),
	}
}

// ReaderConfig returns the acquisition settings for sensor.NewReader.
func (c *Config) ReaderConfig() sensor.Config {
	return sensor.Config{
		Calibration: c.Sensor.Calibration,
		Samples:     c.Sensor.Samples,
		Settle:      c.Sensor.Settle,
		Timeout:     c.Sensor.Timeout,
		MaxRange:    logic.Pressure(c.Sensor.MaxRange),
	}
}
