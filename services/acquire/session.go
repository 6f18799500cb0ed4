// Package acquire runs the measure/collect acquisition loop of one
// differential pressure sensor.
package acquire

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"airspeed-go/errcode"
	"airspeed-go/services/metrics"
	"airspeed-go/types"
	"airspeed-go/x/mathx"
	"airspeed-go/x/timex"
)

// Phase is the state of the acquisition loop.
type Phase uint32

const (
	PhaseMeasure Phase = iota
	PhaseCollect
)

func (p Phase) String() string {
	if p == PhaseCollect {
		return "collect"
	}
	return "measure"
}

// MaxPollInterval bounds operator supplied intervals.
const MaxPollInterval = time.Hour

// Config carries the optional session settings.
type Config struct {
	// PollInterval is the requested cadence of full measure+collect cycles.
	// Values at or below the conversion interval run as fast as the sensor
	// allows.
	PollInterval time.Duration
	Logger       *slog.Logger
	Perf         *metrics.Perf
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Stats is a point-in-time copy of the session counters.
type Stats struct {
	Phase      Phase
	SensorOK   bool
	Published  uint64
	Errors     uint64
	LastSample time.Time
}

// Session owns one sensor's acquisition state. Step is not re-entrant; Run
// is the only caller once started. The counters may be read concurrently
// through Stats.
type Session struct {
	sensor Sensor
	sink   Sink
	log    *slog.Logger
	perf   *metrics.Perf
	now    func() time.Time

	conv time.Duration
	poll time.Duration

	phase      atomic.Uint32
	sensorOK   atomic.Bool
	errors     atomic.Uint64
	published  atomic.Uint64
	lastSample atomic.Int64 // unix nanoseconds
}

// New prepares a session in the MEASURE phase. Nothing is sent to the
// sensor until the first Step.
func New(sensor Sensor, sink Sink, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Session{
		sensor: sensor,
		sink:   sink,
		log:    cfg.Logger.With("device", sensor.DeviceID().String()),
		perf:   cfg.Perf,
		now:    cfg.Clock,
		conv:   sensor.ConversionInterval(),
		poll:   mathx.Clamp(cfg.PollInterval, 0, MaxPollInterval),
	}
}

// ConversionInterval is the sensor's measure to collect delay.
func (s *Session) ConversionInterval() time.Duration { return s.conv }

// PollInterval is the clamped operator cadence.
func (s *Session) PollInterval() time.Duration { return s.poll }

// Phase is the step the next Step call will run.
func (s *Session) Phase() Phase { return Phase(s.phase.Load()) }

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	st := Stats{
		Phase:     s.Phase(),
		SensorOK:  s.sensorOK.Load(),
		Published: s.published.Load(),
		Errors:    s.errors.Load(),
	}
	if ns := s.lastSample.Load(); ns != 0 {
		st.LastSample = time.Unix(0, ns)
	}
	return st
}

// Run drives Step until ctx is cancelled. A step in progress always
// completes; cancellation only prevents the next one from being scheduled.
func (s *Session) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d := s.Step()
			if ctx.Err() != nil {
				return
			}
			timex.ResetTimer(timer, d)
		}
	}
}

// Step runs one phase of the loop and returns the delay before the next
// call.
func (s *Session) Step() time.Duration {
	if s.Phase() == PhaseCollect {
		if err := s.collect(); err != nil {
			// Any failed collect restarts the cycle with a fresh conversion.
			s.sensorOK.Store(false)
			s.phase.Store(uint32(PhaseMeasure))
			s.log.Debug("collect failed", "err", err)
			return 0
		}

		s.phase.Store(uint32(PhaseMeasure))

		// collect->measure gap for slower requested rates
		if s.poll > s.conv {
			return s.poll - s.conv
		}
	}

	err := s.sensor.Measure()
	if err != nil {
		s.countError()
		s.log.Debug("measure error", "err", err)
	}
	s.sensorOK.Store(err == nil)

	s.phase.Store(uint32(PhaseCollect))
	return s.conv
}

func (s *Session) collect() error {
	start := time.Now()
	defer func() { s.perf.ObserveCollect(time.Since(start)) }()
	ts := s.now()

	rd, ok, err := s.sensor.Collect(ts)
	if err != nil {
		// Stale and reserved frames only mean "no new data".
		if errcode.Of(err) != errcode.NotReady {
			s.countError()
		}
		return err
	}

	if ok {
		sample := types.DifferentialPressure{
			TimestampSample:        rd.TimestampSample,
			DeviceID:               s.sensor.DeviceID(),
			DifferentialPressurePa: rd.PressurePa,
			Temperature:            rd.Temperature,
			ErrorCount:             s.errors.Load(),
			Timestamp:              s.now(),
		}
		s.sink.Publish(sample)
		s.published.Add(1)
		s.lastSample.Store(sample.Timestamp.UnixNano())
		s.perf.CountPublished()
	}
	return nil
}

func (s *Session) countError() {
	s.errors.Add(1)
	s.perf.CountError()
}
