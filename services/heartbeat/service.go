// Package heartbeat publishes a liveness beat on system/heartbeat at the
// interval given on config/heartbeat.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"airspeed-go/bus"
	"airspeed-go/types"
	"airspeed-go/x/mathx"
	"airspeed-go/x/timex"
)

// Interval bounds.
const (
	MinInterval     = 100 * time.Millisecond
	MaxInterval     = time.Hour
	DefaultInterval = 10 * time.Second
)

var (
	topicConfig = bus.T("config", "heartbeat")
	topicBeat   = bus.T("system", "heartbeat")
)

// Beat is the heartbeat payload.
type Beat struct {
	Seq    uint64        `json:"seq"`
	Uptime time.Duration `json:"uptime_ns"`
	TS     int64         `json:"ts_ms"`
}

type Service struct {
	conn  *bus.Connection
	log   *slog.Logger
	start time.Time
	seq   uint64
}

func New(conn *bus.Connection, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{conn: conn, log: log}
}

// Run beats until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.start = time.Now()
	interval := DefaultInterval
	tick := time.NewTimer(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("heartbeat stopping")
			return
		case now := <-tick.C:
			s.beat(now)
			timex.ResetTimer(tick, interval)
		case msg := <-cfgSub.Channel():
			cfg, ok := msg.Payload.(types.HeartbeatConfig)
			if !ok {
				s.log.Warn("heartbeat config has wrong type", "type", msg.Payload)
				continue
			}
			interval = mathx.Clamp(cfg.Interval, MinInterval, MaxInterval)
			timex.ResetTimer(tick, interval)
			s.log.Debug("heartbeat interval set", "interval", interval)
		}
	}
}

func (s *Service) beat(now time.Time) {
	s.seq++
	s.conn.Publish(s.conn.NewMessage(topicBeat, Beat{
		Seq:    s.seq,
		Uptime: now.Sub(s.start),
		TS:     now.UnixMilli(),
	}, false))
}
