package driver

import (
	"airspeed-go/drivers/ets"
	"airspeed-go/drivers/ms4525"
	"airspeed-go/errcode"
	"airspeed-go/services/acquire"
)

const (
	NameMS4525 = "ms4525"
	NameETS    = "ets"
)

func init() {
	RegisterBuilder(NameMS4525, BuilderFunc(buildMS4525))
	RegisterBuilder(NameETS, BuilderFunc(buildETS))
}

func buildMS4525(in BuildInput) (BuildOutput, error) {
	typ := ms4525.Type4525
	if in.Params.Type != "" {
		t, err := ms4525.ParseType(in.Params.Type)
		if err != nil {
			return BuildOutput{}, err
		}
		typ = t
	}

	bus, err := in.Buses.ByNumber(in.Params.Bus, in.Params.Frequency)
	if err != nil {
		return BuildOutput{}, err
	}

	s := acquire.NewMS4525(bus, in.Params.Bus, ms4525.Config{Type: typ, Address: in.Params.Address})
	return BuildOutput{Sensor: s, Type: typ.String(), Address: s.Device().Address}, nil
}

func buildETS(in BuildInput) (BuildOutput, error) {
	if in.Params.Type != "" {
		return BuildOutput{}, &errcode.E{C: errcode.Usage, Op: "ets", Msg: "the ets driver has no device types"}
	}
	bus, err := in.Buses.ByNumber(in.Params.Bus, in.Params.Frequency)
	if err != nil {
		return BuildOutput{}, err
	}

	addr := in.Params.Address
	if addr == 0 {
		addr = ets.Address
	}
	s := acquire.NewETS(bus, in.Params.Bus, addr)
	return BuildOutput{Sensor: s, Address: addr}, nil
}

// detect issues one conversion command; a device that does not acknowledge
// is treated as absent.
func detect(s acquire.Sensor) error {
	if err := s.Measure(); err != nil {
		return &errcode.E{C: errcode.InitFailed, Op: "driver", Msg: "no response at " + s.DeviceID().String(), Err: err}
	}
	return nil
}
