package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airspeed-go/drivers/ets"
	"airspeed-go/drivers/ms4525"
	"airspeed-go/errcode"
)

func TestSimBusCarriesDefaultDevices(t *testing.T) {
	f := New(true, nil)
	b, err := f.ByNumber(1, DefaultFrequency)
	require.NoError(t, err)

	again, err := f.ByNumber(1, 400000)
	require.NoError(t, err)
	assert.Same(t, b, again)

	d := ms4525.New(b)
	require.NoError(t, d.Measure())
	r, err := d.Collect()
	require.NoError(t, err)
	assert.InDelta(t, 120, r.DifferentialPa(), 2)
	assert.InDelta(t, 21, r.Celsius(), 0.2)

	e := ets.New(b)
	require.NoError(t, e.Measure())
	raw, err := e.Collect()
	require.NoError(t, err)
	assert.Equal(t, float32(95), ets.PressurePa(raw, time.Now()))
}

func TestSimMS4525StaleWithoutMeasure(t *testing.T) {
	b := NewSimBus()
	b.Attach(ms4525.Address4525, NewSimMS4525(0, 20))
	d := ms4525.New(b)

	require.NoError(t, d.Measure())
	_, err := d.Collect()
	require.NoError(t, err)

	_, err = d.Collect()
	assert.ErrorIs(t, err, ms4525.ErrStale)
}

func TestSimMS4525ConsecutiveFramesDiffer(t *testing.T) {
	b := NewSimBus()
	b.Attach(ms4525.Address4525, NewSimMS4525(300, 20))
	d := ms4525.New(b)

	var prev ms4525.Raw
	for i := 0; i < 4; i++ {
		require.NoError(t, d.Measure())
		r, err := d.Collect()
		require.NoError(t, err)
		assert.NotEqual(t, prev.Pressure, r.Pressure)
		assert.NotEqual(t, prev.Temperature, r.Temperature)
		prev = r
	}
}

func TestSimMS4525FaultAndFailures(t *testing.T) {
	b := NewSimBus()
	dev := NewSimMS4525(0, 20)
	b.Attach(ms4525.Address4525, dev)
	d := ms4525.New(b)

	dev.SetStatus(ms4525.StatusFault)
	require.NoError(t, d.Measure())
	_, err := d.Collect()
	assert.ErrorIs(t, err, ms4525.ErrFault)

	dev.SetStatus(ms4525.StatusNormal)
	dev.Failures = 1
	err = d.Measure()
	assert.Equal(t, errcode.CommsError, errcode.Of(err))
}

func TestSimEmptyAddressNacks(t *testing.T) {
	b := NewSimBus()
	err := b.Tx(0x10, []byte{0}, nil)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestBusRange(t *testing.T) {
	_, err := New(true, nil).ByNumber(MaxBus+1, 0)
	assert.Equal(t, errcode.UnknownBus, errcode.Of(err))
}
