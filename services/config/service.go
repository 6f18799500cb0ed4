package config

import (
	"log/slog"
	"sync"

	"airspeed-go/bus"
)

const configPrefix = "config"

// Section names, published as config/<section>.
const (
	SectionAirspeed  = "airspeed"
	SectionBridge    = "bridge"
	SectionHeartbeat = "heartbeat"
	SectionDevices   = "devices"
)

// Sections maps each bus-facing section to its typed payload. Process-level
// settings (log, metrics, bus, platform) are consumed at start-up and are
// not published.
func (c *Config) Sections() map[string]any {
	return map[string]any{
		SectionAirspeed:  c.Airspeed,
		SectionBridge:    c.Bridge,
		SectionHeartbeat: c.Heartbeat,
		SectionDevices:   c.Devices,
	}
}

// Topic is the bus topic of a section.
func Topic(section string) bus.Topic { return bus.T(configPrefix, section) }

// Publish sends every section retained.
func Publish(conn *bus.Connection, c *Config) {
	for k, v := range c.Sections() {
		conn.Publish(conn.NewMessage(Topic(k), v, true))
	}
}

// Service owns the config file and republishes it on Reload.
type Service struct {
	path string
	conn *bus.Connection
	log  *slog.Logger

	mu  sync.Mutex
	cur *Config
}

func NewService(path string, conn *bus.Connection, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{path: path, conn: conn, log: log}
}

// Reload reads the file and publishes its sections. On error the previous
// sections stay in place.
func (s *Service) Reload() (*Config, error) {
	cfg, err := Load(s.path)
	if err != nil {
		s.log.Error("config load failed", "path", s.path, "err", err)
		return nil, err
	}
	s.mu.Lock()
	s.cur = cfg
	s.mu.Unlock()

	Publish(s.conn, cfg)
	s.log.Info("config published", "path", s.path, "devices", len(cfg.Devices))
	return cfg, nil
}

// Current returns the last successfully loaded config, or nil.
func (s *Service) Current() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}
