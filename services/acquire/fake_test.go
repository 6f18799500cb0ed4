package acquire

import (
	"errors"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"airspeed-go/drivers/ms4525"
	"airspeed-go/types"
)

var _ drivers.I2C = (*scriptedI2C)(nil)

var errNack = errors.New("nack")

type read struct {
	frame [4]byte
	err   error
}

// scriptedI2C accepts writes (or fails them with writeErr) and answers each
// read with the next scripted frame. An exhausted script repeats the last one.
type scriptedI2C struct {
	mu       sync.Mutex
	writeErr error
	reads    []read
	last     read
	writes   int
	nreads   int
}

func (b *scriptedI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(w) > 0 {
		b.writes++
		return b.writeErr
	}
	b.nreads++
	if len(b.reads) > 0 {
		b.last = b.reads[0]
		b.reads = b.reads[1:]
	}
	if b.last.err != nil {
		return b.last.err
	}
	copy(r, b.last.frame[:])
	return nil
}

func (b *scriptedI2C) push(rs ...read) {
	b.mu.Lock()
	b.reads = append(b.reads, rs...)
	b.mu.Unlock()
}

func frame(p, t uint16) read { return read{frame: ms4525.Encode(ms4525.StatusNormal, p, t)} }

func status(st ms4525.Status) read { return read{frame: ms4525.Encode(st, 8000, 1000)} }

// recordSink keeps every published sample.
type recordSink struct {
	mu  sync.Mutex
	got []types.DifferentialPressure
}

func (r *recordSink) Publish(s types.DifferentialPressure) {
	r.mu.Lock()
	r.got = append(r.got, s)
	r.mu.Unlock()
}

func (r *recordSink) samples() []types.DifferentialPressure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.DifferentialPressure(nil), r.got...)
}

// stepClock advances by one millisecond per call.
type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}
