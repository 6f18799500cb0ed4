package ms4525

import "airspeed-go/errcode"

// Status is the 2-bit validity field in the top of the first response byte.
type Status uint8

const (
	StatusNormal   Status = 0
	StatusReserved Status = 1
	StatusStale    Status = 2 // data already fetched since the last conversion
	StatusFault    Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusReserved:
		return "reserved"
	case StatusStale:
		return "stale"
	default:
		return "fault"
	}
}

// TemperatureSaturated is the full-scale 11-bit temperature count. The sensor
// reports it when the reading is invalid.
const TemperatureSaturated = 2047

const (
	pressureMask    = 0x3FFF
	temperatureMask = 0xFFE0
)

// Errors returned by Decode and Collect. Reserved and stale mean "no new
// data"; fault and saturation are counted as errors by callers.
var (
	ErrReserved  = &errcode.E{C: errcode.NotReady, Op: "ms4525", Msg: "reserved status"}
	ErrStale     = &errcode.E{C: errcode.NotReady, Op: "ms4525", Msg: "stale data"}
	ErrFault     = &errcode.E{C: errcode.Fault, Op: "ms4525", Msg: "fault detected"}
	ErrSaturated = &errcode.E{C: errcode.Saturated, Op: "ms4525", Msg: "temperature saturated"}
)

// Raw is one decoded response.
type Raw struct {
	Status      Status
	Pressure    uint16 // 14-bit count
	Temperature uint16 // 11-bit count
}

// Decode parses the 4-byte response. It is pure. The counts are only
// extracted when the status is normal.
func Decode(b [4]byte) (Raw, error) {
	r := Raw{Status: Status((b[0] & 0xC0) >> 6)}
	switch r.Status {
	case StatusReserved:
		return r, ErrReserved
	case StatusStale:
		return r, ErrStale
	case StatusFault:
		return r, ErrFault
	}

	r.Pressure = pressureMask & (uint16(b[0])<<8 | uint16(b[1]))
	r.Temperature = (temperatureMask & (uint16(b[2])<<8 | uint16(b[3]))) >> 5

	if r.Temperature == TemperatureSaturated {
		return r, ErrSaturated
	}
	return r, nil
}

// Encode builds a response frame. Used by simulators and tests.
func Encode(st Status, pressure, temperature uint16) [4]byte {
	p := pressure & pressureMask
	t := (temperature << 5) & temperatureMask
	return [4]byte{
		byte(st)<<6 | byte(p>>8),
		byte(p),
		byte(t >> 8),
		byte(t),
	}
}
