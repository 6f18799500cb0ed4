package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airspeed-go/bus"
	"airspeed-go/platform"
	"airspeed-go/services/driver"
	"airspeed-go/types"
)

func newConsole(t *testing.T) (*Console, *bytes.Buffer, *driver.Manager) {
	t.Helper()
	b := bus.NewBus(64)
	m := driver.NewManager(driver.Config{Conn: b.NewConnection("driver"), Buses: platform.NewSim(nil)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	out := &bytes.Buffer{}
	return New(b.NewConnection("console"), out, nil), out, m
}

func TestStartStatusStop(t *testing.T) {
	c, out, m := newConsole(t)
	ctx := context.Background()

	require.Equal(t, ExitOK, c.Exec(ctx, "start -T 4515 -b 2"), out.String())
	assert.Contains(t, out.String(), "ms4525 started as instance 0")

	st := m.Status()
	require.Len(t, st, 1)
	assert.Equal(t, uint16(0x46), st[0].Address)
	assert.Equal(t, 2, st[0].Bus)

	out.Reset()
	require.Equal(t, ExitOK, c.Exec(ctx, "status"))
	assert.Contains(t, out.String(), "instance 0: ms4525 4515 on i2c bus 2 address 0x46 (100 kHz)")
	assert.Contains(t, out.String(), "conversion 10ms")

	out.Reset()
	require.Equal(t, ExitOK, c.Exec(ctx, "stop"))
	assert.Contains(t, out.String(), "stopped 1 instance(s)")
	assert.Empty(t, m.Status())

	out.Reset()
	require.Equal(t, ExitOK, c.Exec(ctx, "status"))
	assert.Contains(t, out.String(), "no driver running")
}

func TestStartOptions(t *testing.T) {
	c, out, m := newConsole(t)
	ctx := context.Background()

	require.Equal(t, ExitOK, c.Exec(ctx, "start -d ets -b 3 -a 0x75 -f 400000 -i 50000"), out.String())
	st := m.Status()
	require.Len(t, st, 1)
	assert.Equal(t, driver.NameETS, st[0].Driver)
	assert.Equal(t, uint32(400000), st[0].Frequency)
	assert.Equal(t, 50*time.Millisecond, st[0].PollInterval)

	// Any type other than 4525 selects the 4515.
	require.Equal(t, ExitOK, c.Exec(ctx, "start -T 1234"), out.String())
	assert.Equal(t, uint16(0x46), m.Status()[1].Address)
}

func TestFailuresReturnMinusOne(t *testing.T) {
	c, out, _ := newConsole(t)
	ctx := context.Background()

	for _, line := range []string{
		"",
		"frobnicate",
		"start -x",
		"start extra",
		"start -a 0x100",
		"start -d nosuch",
		"start -a 0x11",
		"start -f 4294967296",
		"start -d ets -T 4515",
		"stop",
		`start "unterminated`,
	} {
		out.Reset()
		assert.Equal(t, ExitFail, c.Exec(ctx, line), "line %q", line)
	}

	require.Equal(t, ExitOK, c.Exec(ctx, "start"))
	out.Reset()
	assert.Equal(t, ExitFail, c.Exec(ctx, "start"))
	assert.Contains(t, out.String(), "already_running")

	out.Reset()
	assert.Equal(t, ExitFail, c.Exec(ctx, "start -f 99999999999"))
	assert.Contains(t, out.String(), "frequency 99,999,999,999 is out of range")

	out.Reset()
	assert.Equal(t, ExitFail, c.Exec(ctx, "start -d ets -T 4525"))
	assert.Contains(t, out.String(), "usage")
}

func TestHelp(t *testing.T) {
	c, out, _ := newConsole(t)
	assert.Equal(t, ExitOK, c.Exec(context.Background(), "help"))
	assert.Contains(t, out.String(), "start   [-d driver]")
	assert.Contains(t, out.String(), "Drivers: ets, ms4525")
}

func TestNoDriverService(t *testing.T) {
	b := bus.NewBus(8)
	out := &bytes.Buffer{}
	c := New(b.NewConnection("console"), out, nil)
	c.timeout = 20 * time.Millisecond

	assert.Equal(t, ExitFail, c.Exec(context.Background(), "status"))
	assert.Contains(t, out.String(), "did not answer")
}

func TestPrintStatus(t *testing.T) {
	out := &bytes.Buffer{}
	c := &Console{out: out}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.printStatus(types.DriverStatus{
		Instance:   1,
		Driver:     driver.NameMS4525,
		Type:       "4525",
		Bus:        1,
		Address:    0x28,
		Frequency:  400000,
		Published:  1234567,
		Errors:     3,
		LastSample: now.Add(-2 * time.Second),
		Started:    now.Add(-time.Hour),
		Conversion: 10 * time.Millisecond,
	}, now)

	s := out.String()
	assert.Contains(t, s, "(400 kHz)")
	assert.Contains(t, s, "published 1,234,567  errors 3  last sample 2 seconds ago")
	assert.Contains(t, s, "started 1 hour ago")
}

func TestRunReadsLines(t *testing.T) {
	c, out, m := newConsole(t)
	in := strings.NewReader("start -d ets\n\nstatus\n")
	require.NoError(t, c.Run(context.Background(), in))
	assert.True(t, m.Running())
	assert.Contains(t, out.String(), "instance 0: ets on i2c bus 1 address 0x75")
}
