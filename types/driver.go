package types

import "time"

// DriverStatus describes one running acquisition session.
type DriverStatus struct {
	Instance     int           `json:"instance"`
	Driver       string        `json:"driver"`
	Type         string        `json:"type,omitempty"`
	Bus          int           `json:"bus"`
	Address      uint16        `json:"address"`
	Frequency    uint32        `json:"frequency_hz"`
	DeviceID     DeviceID      `json:"device_id"`
	Phase        string        `json:"phase"`
	Link         Link          `json:"link"`
	Published    uint64        `json:"published"`
	Errors       uint64        `json:"errors"`
	LastSample   time.Time     `json:"last_sample,omitempty"`
	PollInterval time.Duration `json:"poll_interval"`
	Conversion   time.Duration `json:"conversion_interval"`
	Started      time.Time     `json:"started"`
}

// DriverStart asks the driver service to start one acquisition session.
type DriverStart struct {
	Driver    string        `json:"driver"`
	Type      string        `json:"type,omitempty"`
	Bus       int           `json:"bus"`
	Address   uint16        `json:"address,omitempty"`
	Frequency uint32        `json:"frequency_hz,omitempty"`
	Interval  time.Duration `json:"interval,omitempty"`
}

// DriverStop stops every session of Driver, or all sessions if it is empty.
type DriverStop struct {
	Driver string `json:"driver,omitempty"`
}

// DriverReply answers a driver control request.
type DriverReply struct {
	OK       bool           `json:"ok"`
	Code     string         `json:"code,omitempty"`
	Error    string         `json:"error,omitempty"`
	Instance int            `json:"instance,omitempty"`
	Stopped  int            `json:"stopped,omitempty"`
	Status   []DriverStatus `json:"status,omitempty"`
}
