// Package config loads the daemon's YAML configuration and publishes each
// service section retained on config/<section>.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"airspeed-go/types"
)

// DefaultPath is the config file used when -config is not given.
const DefaultPath = "airspeedd.yaml"

// Config is the whole file.
type Config struct {
	Log       types.LogConfig       `yaml:"log"`
	Metrics   types.MetricsConfig   `yaml:"metrics"`
	Bus       types.BusConfig       `yaml:"bus"`
	Platform  types.PlatformConfig  `yaml:"platform"`
	Devices   []types.DeviceConfig  `yaml:"devices"`
	Airspeed  types.AirspeedConfig  `yaml:"airspeed"`
	Bridge    types.BridgeConfig    `yaml:"bridge"`
	Heartbeat types.HeartbeatConfig `yaml:"heartbeat"`
}

// Default returns a configuration that runs one simulated MS4525 with
// airspeed output and no uplink.
func Default() *Config {
	return &Config{
		Log:      types.LogConfig{Level: "info"},
		Metrics:  types.MetricsConfig{Listen: ":9110"},
		Bus:      types.BusConfig{QueueLen: 16},
		Platform: types.PlatformConfig{Simulate: true},
		Devices: []types.DeviceConfig{
			{Driver: "ms4525", Type: "4525", Bus: 1},
		},
		Airspeed: types.AirspeedConfig{
			Enabled:          true,
			RateHz:           10,
			AirDensity:       1.225,
			StaticPressurePa: 101325,
		},
		Bridge: types.BridgeConfig{
			Enabled:     false,
			Transport:   "mqtt",
			Broker:      "localhost:1883",
			TopicPrefix: "airspeedd",
			Forward:     []string{"sensor/#", "airspeed/#"},
		},
		Heartbeat: types.HeartbeatConfig{Interval: 10 * time.Second},
	}
}

// Load reads filename over the defaults. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) ensureDefaults() {
	def := Default()

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Bus.QueueLen <= 0 {
		c.Bus.QueueLen = def.Bus.QueueLen
	}
	if c.Airspeed.RateHz <= 0 {
		c.Airspeed.RateHz = def.Airspeed.RateHz
	}
	if c.Airspeed.AirDensity <= 0 {
		c.Airspeed.AirDensity = def.Airspeed.AirDensity
	}
	if c.Airspeed.StaticPressurePa <= 0 {
		c.Airspeed.StaticPressurePa = def.Airspeed.StaticPressurePa
	}
	if c.Bridge.Transport == "" {
		c.Bridge.Transport = def.Bridge.Transport
	}
	if c.Bridge.TopicPrefix == "" {
		c.Bridge.TopicPrefix = def.Bridge.TopicPrefix
	}
	if len(c.Bridge.Forward) == 0 {
		c.Bridge.Forward = def.Bridge.Forward
	}
	if c.Heartbeat.Interval <= 0 {
		c.Heartbeat.Interval = def.Heartbeat.Interval
	}
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q", c.Log.Level)
	}
	for i, d := range c.Devices {
		if d.Driver == "" {
			return fmt.Errorf("devices[%d]: driver missing", i)
		}
		if d.Interval < 0 {
			return fmt.Errorf("devices[%d]: negative interval", i)
		}
	}
	if c.Bridge.QoS > 1 {
		return fmt.Errorf("bridge.qos %d", c.Bridge.QoS)
	}
	return nil
}
