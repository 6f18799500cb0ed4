// Package airspeed turns differential pressure samples into indicated and
// true airspeed. Samples are averaged per instance and published at a
// configured rate; there is no voting between sensors.
package airspeed

import (
	"context"
	"log/slog"
	"math"
	"time"

	"airspeed-go/bus"
	"airspeed-go/types"
	"airspeed-go/x/mathx"
)

// Valid sensor temperature range, °C.
const (
	MinTempC = -40
	MaxTempC = 125
)

// Defaults for unset config fields.
const (
	DefaultRateHz = 10
)

var (
	topicConfig  = bus.T("config", "airspeed")
	topicSamples = bus.T("sensor", "differential_pressure", bus.SingleWild)
	topicState   = bus.T("airspeed", "state")
)

// TopicFor is the output topic of an instance.
func TopicFor(instance int) bus.Topic { return bus.T("airspeed", instance) }

type accum struct {
	device  types.DeviceID
	tsSum   int64 // unix nanoseconds, offset by tsBase
	tsBase  int64
	dpSum   float64
	tSum    float64
	tCount  int
	count   int
	lastPub time.Time
}

type Service struct {
	conn *bus.Connection
	log  *slog.Logger
	now  func() time.Time

	cfg        types.AirspeedConfig
	configured bool
	acc        map[int]*accum
}

func New(conn *bus.Connection, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{conn: conn, log: log, now: time.Now, acc: map[int]*accum{}}
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	sampleSub := s.conn.Subscribe(topicSamples)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(sampleSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled", nil)
			return
		case msg := <-cfgSub.Channel():
			cfg, ok := msg.Payload.(types.AirspeedConfig)
			if !ok {
				s.publishState("error", "config_wrong_type", nil)
				continue
			}
			s.apply(cfg)
		case msg := <-sampleSub.Channel():
			if !s.configured || !s.cfg.Enabled {
				continue
			}
			inst, ok := msg.Topic[len(msg.Topic)-1].(int)
			if !ok {
				continue
			}
			dp, ok := msg.Payload.(types.DifferentialPressure)
			if !ok {
				continue
			}
			s.add(inst, dp)
		}
	}
}

func (s *Service) apply(cfg types.AirspeedConfig) {
	if cfg.RateHz <= 0 {
		cfg.RateHz = DefaultRateHz
	}
	if cfg.AirDensity <= 0 {
		cfg.AirDensity = AirDensitySeaLevel
	}
	if cfg.StaticPressurePa <= 0 {
		cfg.StaticPressurePa = StandardPressurePa
	}
	s.cfg = cfg
	s.configured = true
	s.acc = map[int]*accum{}

	if cfg.Enabled {
		s.publishState("up", "configured", nil)
	} else {
		s.publishState("idle", "disabled", nil)
	}
	s.log.Info("airspeed configured", "enabled", cfg.Enabled, "rate_hz", cfg.RateHz, "offset_pa", cfg.OffsetPa)
}

func (s *Service) add(inst int, dp types.DifferentialPressure) {
	a := s.acc[inst]
	if a == nil {
		a = &accum{}
		s.acc[inst] = a
	}
	if a.count == 0 {
		a.tsBase = dp.TimestampSample.UnixNano()
	}
	a.device = dp.DeviceID
	a.tsSum += dp.TimestampSample.UnixNano() - a.tsBase
	a.dpSum += float64(dp.DifferentialPressurePa - s.cfg.OffsetPa)
	a.count++

	t := float64(dp.Temperature)
	if !math.IsNaN(t) && mathx.Between(t, MinTempC, MaxTempC) {
		a.tSum += t
		a.tCount++
	}

	now := s.now()
	if now.Sub(a.lastPub) < time.Duration(float64(time.Second)/s.cfg.RateHz) {
		return
	}
	s.publish(inst, a, now)
}

func (s *Service) publish(inst int, a *accum, now time.Time) {
	n := a.count
	dp := float32(a.dpSum / float64(n))
	temp := float32(math.NaN())
	if a.tCount > 0 {
		temp = float32(a.tSum / float64(a.tCount))
	}
	ts := time.Unix(0, a.tsBase+a.tsSum/int64(n))
	dev := a.device

	*a = accum{lastPub: now}

	ias := Indicated(dp, s.cfg.AirDensity)
	// No calibration table, so CAS is taken to be IAS.
	tas := TrueFromCalibrated(ias, s.cfg.StaticPressurePa, temp)
	if math.IsNaN(float64(ias)) || math.IsNaN(float64(tas)) {
		return
	}

	s.conn.Publish(s.conn.NewMessage(TopicFor(inst), types.Airspeed{
		TimestampSample:       ts,
		DeviceID:              dev,
		IndicatedAirspeedMS:   ias,
		TrueAirspeedMS:        tas,
		AirTemperatureCelsius: temp,
		Samples:               n,
		Timestamp:             now,
	}, false))
}

func (s *Service) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: time.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, st, true))
}
