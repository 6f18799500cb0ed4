//go:build !linux

package platform

import (
	"log/slog"

	"tinygo.org/x/drivers"

	"airspeed-go/errcode"
)

type hardware struct{}

func newHardware(*slog.Logger) I2CFactory { return hardware{} }

func (hardware) ByNumber(int, uint32) (drivers.I2C, error) {
	return nil, &errcode.E{C: errcode.Unsupported, Op: "platform", Msg: "hardware i2c needs linux, use platform.simulate"}
}

func (hardware) Close() error { return nil }
