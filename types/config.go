package types

import "time"

// Config sections. Each is published retained on config/<section>.

type LogConfig struct {
	Level string `yaml:"level" json:"level"` // debug|info|warn|error
}

type MetricsConfig struct {
	Listen string `yaml:"listen" json:"listen"` // empty disables the endpoint
}

type BusConfig struct {
	QueueLen int `yaml:"queue_len" json:"queue_len"`
}

type PlatformConfig struct {
	Simulate bool `yaml:"simulate" json:"simulate"`
}

// DeviceConfig is one autostarted driver instance.
type DeviceConfig struct {
	Driver    string        `yaml:"driver" json:"driver"`
	Type      string        `yaml:"type,omitempty" json:"type,omitempty"`
	Bus       int           `yaml:"bus" json:"bus"`
	Address   uint16        `yaml:"address,omitempty" json:"address,omitempty"`
	Frequency uint32        `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	Interval  time.Duration `yaml:"interval,omitempty" json:"interval,omitempty"`
}

// Start converts the entry to a driver start request.
func (d DeviceConfig) Start() DriverStart {
	return DriverStart{
		Driver:    d.Driver,
		Type:      d.Type,
		Bus:       d.Bus,
		Address:   d.Address,
		Frequency: d.Frequency,
		Interval:  d.Interval,
	}
}

type AirspeedConfig struct {
	Enabled bool    `yaml:"enabled" json:"enabled"`
	RateHz  float64 `yaml:"rate_hz" json:"rate_hz"`
	// AirDensity is the reference density for indicated airspeed, kg/m³.
	AirDensity float32 `yaml:"air_density" json:"air_density"`
	// StaticPressurePa stands in for a barometer when converting to true
	// airspeed.
	StaticPressurePa float32 `yaml:"static_pressure_pa" json:"static_pressure_pa"`
	// OffsetPa is subtracted from every differential pressure sample.
	OffsetPa float32 `yaml:"offset_pa" json:"offset_pa"`
}

type BridgeConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	Transport   string        `yaml:"transport,omitempty" json:"transport,omitempty"` // default "mqtt"
	Broker      string        `yaml:"broker" json:"broker"`                           // host:port
	ClientID    string        `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	TopicPrefix string        `yaml:"topic_prefix,omitempty" json:"topic_prefix,omitempty"`
	QoS         byte          `yaml:"qos" json:"qos"`
	KeepAlive   time.Duration `yaml:"keep_alive,omitempty" json:"keep_alive,omitempty"`
	Forward     []string      `yaml:"forward" json:"forward"` // bus filters, "/" separated
}

type HeartbeatConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
}
