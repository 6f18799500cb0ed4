package driver

import (
	"fmt"
	"sort"
	"sync"

	"airspeed-go/platform"
	"airspeed-go/services/acquire"
	"airspeed-go/types"
)

// BuildInput is passed to a driver builder.
type BuildInput struct {
	Buses  platform.I2CFactory
	Params types.DriverStart
}

// BuildOutput describes a constructed sensor.
type BuildOutput struct {
	Sensor  acquire.Sensor
	Type    string // variant, "" if the driver has none
	Address uint16
}

// Builder creates a sensor from start parameters and resolves its address.
// Builders must not talk to the device; the manager checks that it is
// present once the address is known to be free.
type Builder interface {
	Build(in BuildInput) (BuildOutput, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(in BuildInput) (BuildOutput, error)

func (f BuilderFunc) Build(in BuildInput) (BuildOutput, error) { return f(in) }

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

// RegisterBuilder installs a builder under a driver name. It panics on
// duplicates.
func RegisterBuilder(name string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		panic("driver: empty driver name for builder")
	}
	if _, exists := builders[name]; exists {
		panic(fmt.Sprintf("driver: builder already registered for %q", name))
	}
	builders[name] = b
}

func Lookup(name string) (Builder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := builders[name]
	return b, ok
}

// Names lists the registered drivers in order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(builders))
	for n := range builders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
