package acquire

import (
	"time"

	"airspeed-go/bus"
	"airspeed-go/types"
)

// Reading is the physical result of an accepted collect.
type Reading struct {
	TimestampSample time.Time
	PressurePa      float32
	Temperature     float32
}

// Sensor abstracts one device's split-phase protocol. Implementations must
// not own goroutines; the session calls them from a single goroutine.
type Sensor interface {
	// Measure commands a conversion.
	Measure() error
	// Collect reads the last conversion. ok is false when the data was valid
	// but suppressed (unchanged). Errors carry an errcode.Code.
	Collect(ts time.Time) (rd Reading, ok bool, err error)
	ConversionInterval() time.Duration
	DeviceID() types.DeviceID
}

// Sink receives accepted samples. Publish must not block.
type Sink interface {
	Publish(s types.DifferentialPressure)
}

// TopicFor is the bus topic of a driver instance.
func TopicFor(instance int) bus.Topic {
	return bus.T("sensor", "differential_pressure", instance)
}

// BusSink publishes samples on the in-process bus.
type BusSink struct {
	conn  *bus.Connection
	topic bus.Topic
}

func NewBusSink(conn *bus.Connection, instance int) *BusSink {
	return &BusSink{conn: conn, topic: TopicFor(instance)}
}

func (b *BusSink) Publish(s types.DifferentialPressure) {
	b.conn.Publish(b.conn.NewMessage(b.topic, s, false))
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(types.DifferentialPressure)

func (f SinkFunc) Publish(s types.DifferentialPressure) { f(s) }
