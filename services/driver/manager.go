// Package driver starts, stops and reports acquisition sessions. It is the
// lifecycle surface the console and the bus control topics drive.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"airspeed-go/bus"
	"airspeed-go/errcode"
	"airspeed-go/platform"
	"airspeed-go/services/acquire"
	"airspeed-go/services/metrics"
	"airspeed-go/types"
)

// MaxInstances bounds the number of concurrent sessions.
const MaxInstances = 8

var topicState = bus.T("driver", "state")

// Config wires a Manager to its collaborators. Conn and Buses are required.
type Config struct {
	Conn    *bus.Connection
	Buses   platform.I2CFactory
	Metrics *metrics.Registry
	Logger  *slog.Logger
}

type instance struct {
	params  types.DriverStart
	build   BuildOutput
	session *acquire.Session
	perf    *metrics.Perf
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager owns the running sessions. Its methods are safe for concurrent use.
type Manager struct {
	conn    *bus.Connection
	buses   platform.I2CFactory
	metrics *metrics.Registry
	log     *slog.Logger

	mu    sync.Mutex
	slots [MaxInstances]*instance
}

func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		conn:    cfg.Conn,
		buses:   cfg.Buses,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
	}
}

// Start builds and runs one session, returning its instance number. The
// session's samples are published on acquire.TopicFor(instance).
func (m *Manager) Start(p types.DriverStart) (int, error) {
	b, ok := Lookup(p.Driver)
	if !ok {
		return -1, &errcode.E{C: errcode.UnknownDriver, Op: "driver", Msg: fmt.Sprintf("%q", p.Driver)}
	}
	if p.Frequency == 0 {
		p.Frequency = platform.DefaultFrequency
	}
	if p.Interval < 0 {
		return -1, &errcode.E{C: errcode.InvalidParams, Op: "driver", Msg: "negative interval"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slot := -1
	for i, in := range m.slots {
		if in == nil {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, &errcode.E{C: errcode.Busy, Op: "driver", Msg: "no free instance"}
	}

	out, err := b.Build(BuildInput{Buses: m.buses, Params: p})
	if err != nil {
		return -1, err
	}
	// The address is only known once the variant has been resolved.
	for _, in := range m.slots {
		if in != nil && in.params.Bus == p.Bus && in.build.Address == out.Address {
			return -1, &errcode.E{C: errcode.AlreadyRunning, Op: "driver", Msg: fmt.Sprintf("bus %d address 0x%02x", p.Bus, out.Address)}
		}
	}
	if err := detect(out.Sensor); err != nil {
		return -1, err
	}

	name := fmt.Sprintf("%s.%d", p.Driver, slot)
	perf := m.metrics.Device(name)
	s := acquire.New(out.Sensor, acquire.NewBusSink(m.conn, slot), acquire.Config{
		PollInterval: p.Interval,
		Logger:       m.log.With("instance", slot),
		Perf:         perf,
	})

	ctx, cancel := context.WithCancel(context.Background())
	in := &instance{
		params:  p,
		build:   out,
		session: s,
		perf:    perf,
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.slots[slot] = in
	go func() {
		defer close(in.done)
		s.Run(ctx)
	}()

	m.log.Info("driver started", "driver", p.Driver, "instance", slot,
		"bus", p.Bus, "address", fmt.Sprintf("0x%02x", out.Address), "device", out.Sensor.DeviceID().String())
	m.publishStateLocked()
	return slot, nil
}

// Stop stops every session of the named driver, or all of them if name is
// empty, and waits for their loops to exit.
func (m *Manager) Stop(name string) (int, error) {
	m.mu.Lock()
	var stopped []*instance
	for i, in := range m.slots {
		if in == nil || (name != "" && in.params.Driver != name) {
			continue
		}
		in.cancel()
		stopped = append(stopped, in)
		m.slots[i] = nil
		m.log.Info("driver stopped", "driver", in.params.Driver, "instance", i)
	}
	if len(stopped) > 0 {
		m.publishStateLocked()
	}
	m.mu.Unlock()

	for _, in := range stopped {
		<-in.done
		in.perf.Forget()
	}
	if len(stopped) == 0 {
		return 0, &errcode.E{C: errcode.NotRunning, Op: "driver", Msg: name}
	}
	return len(stopped), nil
}

// Status reports every running session in instance order.
func (m *Manager) Status() []types.DriverStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// Running reports whether any session is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.slots {
		if in != nil {
			return true
		}
	}
	return false
}

// Close stops everything.
func (m *Manager) Close() {
	_, _ = m.Stop("")
}

func (m *Manager) statusLocked() []types.DriverStatus {
	out := []types.DriverStatus{}
	for i, in := range m.slots {
		if in == nil {
			continue
		}
		st := in.session.Stats()
		link := types.LinkDown
		switch {
		case st.SensorOK && st.Errors == 0:
			link = types.LinkUp
		case st.SensorOK:
			link = types.LinkDegraded
		}
		out = append(out, types.DriverStatus{
			Instance:     i,
			Driver:       in.params.Driver,
			Type:         in.build.Type,
			Bus:          in.params.Bus,
			Address:      in.build.Address,
			Frequency:    in.params.Frequency,
			DeviceID:     in.build.Sensor.DeviceID(),
			Phase:        st.Phase.String(),
			Link:         link,
			Published:    st.Published,
			Errors:       st.Errors,
			LastSample:   st.LastSample,
			PollInterval: in.session.PollInterval(),
			Conversion:   in.session.ConversionInterval(),
			Started:      in.started,
		})
	}
	return out
}

func (m *Manager) publishStateLocked() {
	if m.conn == nil {
		return
	}
	m.conn.Publish(m.conn.NewMessage(topicState, m.statusLocked(), true))
}
