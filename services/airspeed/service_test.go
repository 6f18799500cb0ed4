package airspeed

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airspeed-go/bus"
	"airspeed-go/types"
)

// fakeClock is advanced by the test goroutine and read by the service's.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func startService(t *testing.T, cfg any) (*bus.Connection, *fakeClock) {
	t.Helper()
	b := bus.NewBus(64)
	conn := b.NewConnection("test")
	s := New(b.NewConnection("airspeed"), nil)
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s.now = clk.now

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	state := conn.Subscribe(bus.T("airspeed", "state"))
	go s.Run(ctx)
	waitState(t, state, "awaiting_config")

	if cfg != nil {
		conn.Publish(conn.NewMessage(bus.T("config", "airspeed"), cfg, true))
		st := nextMsg(t, state).Payload.(types.ServiceState)
		require.NotEqual(t, "error", st.Level)
	}
	conn.Unsubscribe(state)
	return conn, clk
}

func TestAveragesAndPublishesAtRate(t *testing.T) {
	conn, clk := startService(t, types.AirspeedConfig{Enabled: true, RateHz: 10})
	out := conn.Subscribe(TopicFor(0))

	q := float32(0.5 * AirDensitySeaLevel * 10 * 10)
	pub := func(dp, temp float32) {
		conn.Publish(conn.NewMessage(bus.T("sensor", "differential_pressure", 0), types.DifferentialPressure{
			TimestampSample:        clk.now(),
			DeviceID:               types.MakeDeviceID(types.BusTypeI2C, 1, 0x28, 0x1C),
			DifferentialPressurePa: dp,
			Temperature:            temp,
		}, false))
	}

	// First sample publishes straight away.
	pub(q, 20)
	first := nextMsg(t, out).Payload.(types.Airspeed)
	assert.InDelta(t, 10, first.IndicatedAirspeedMS, 1e-3)
	assert.Equal(t, 1, first.Samples)
	assert.Equal(t, uint8(0x28), first.DeviceID.Address())

	// The next two land inside the 100 ms window and are averaged with a
	// third that arrives after it.
	clk.advance(30 * time.Millisecond)
	pub(0, 20)
	clk.advance(30 * time.Millisecond)
	pub(2*q, 200) // temperature out of range, ignored
	expectNone(t, out)

	clk.advance(50 * time.Millisecond)
	pub(q, 24)
	got := nextMsg(t, out).Payload.(types.Airspeed)
	assert.Equal(t, 3, got.Samples)
	assert.InDelta(t, 10, got.IndicatedAirspeedMS, 1e-3)
	assert.InDelta(t, 22, got.AirTemperatureCelsius, 1e-4)
	assert.Greater(t, got.TrueAirspeedMS, got.IndicatedAirspeedMS, "warmer than standard")
	want := clk.now().Add(-80 * time.Millisecond).Add(110 * time.Millisecond / 3)
	assert.WithinDuration(t, want, got.TimestampSample, time.Microsecond)
}

func TestOffsetAndNegativePressure(t *testing.T) {
	conn, _ := startService(t, types.AirspeedConfig{Enabled: true, OffsetPa: 10})
	out := conn.Subscribe(TopicFor(2))

	conn.Publish(conn.NewMessage(bus.T("sensor", "differential_pressure", 2), types.DifferentialPressure{
		DifferentialPressurePa: 10 - float32(0.5*AirDensitySeaLevel*25),
		Temperature:            float32(math.NaN()),
	}, false))

	got := nextMsg(t, out).Payload.(types.Airspeed)
	assert.InDelta(t, -5, got.IndicatedAirspeedMS, 1e-3)
	assert.True(t, math.IsNaN(float64(got.AirTemperatureCelsius)))
	assert.InDelta(t, -5, got.TrueAirspeedMS, 0.01, "standard day fallback")
}

func TestDisabledAndUnconfigured(t *testing.T) {
	conn, _ := startService(t, nil)
	out := conn.Subscribe(TopicFor(0))
	sample := conn.NewMessage(bus.T("sensor", "differential_pressure", 0), types.DifferentialPressure{DifferentialPressurePa: 50}, false)

	conn.Publish(sample)
	expectNone(t, out)

	conn.Publish(conn.NewMessage(bus.T("config", "airspeed"), types.AirspeedConfig{Enabled: false}, true))
	conn.Publish(sample)
	expectNone(t, out)
}

func TestWrongConfigType(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(b.NewConnection("airspeed"), nil).Run(ctx)

	state := conn.Subscribe(bus.T("airspeed", "state"))
	waitState(t, state, "awaiting_config")
	conn.Publish(conn.NewMessage(bus.T("config", "airspeed"), "fast please", false))
	waitState(t, state, "config_wrong_type")
}

func nextMsg(t *testing.T, sub *bus.Subscription) *bus.Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting on %s", sub.Topic())
		return nil
	}
}

func expectNone(t *testing.T, sub *bus.Subscription) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected %#v", m.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitState(t *testing.T, sub *bus.Subscription, status string) {
	t.Helper()
	for {
		st := nextMsg(t, sub).Payload.(types.ServiceState)
		if st.Status == status {
			return
		}
	}
}
