// Package adc implements the ADC interface named in the external
// interfaces contract: start(channel) / read(channel) over 12-bit unsigned
// samples. It is deliberately out of the safety core's scope — AmbientSensor
// and OutputMonitor only depend on the Source interface — but a concrete
// adapter still needs to exist for the system to run against real
// hardware, following the reference service's split between
// internal/hardware (concrete) and the small interfaces core depends on.
package adc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Source is the dependency-injection seam AmbientSensor and OutputMonitor
// read through. Values are raw 12-bit samples, 0..4095.
type Source interface {
	Start(channel int) error
	Read(channel int) (int, bool)
}

// ErrNotReady names the "not ready" condition of the external interface
// contract. Read does not return it: Read signals a missing sample through
// its ok=false return.
var ErrNotReady = fmt.Errorf("adc: channel not ready")

// SimulatedSource is an in-memory ADC backing store written by tests and
// read by AmbientSensor/OutputMonitor, matching the "simulated-ADC backing
// store" shared resource named in the concurrency model.
type SimulatedSource struct {
	started map[int]bool
	values  map[int]int
	ready   map[int]bool
}

// NewSimulatedSource returns a SimulatedSource with no channels started.
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{
		started: make(map[int]bool),
		values:  make(map[int]int),
		ready:   make(map[int]bool),
	}
}

func (s *SimulatedSource) Start(channel int) error {
	s.started[channel] = true
	return nil
}

func (s *SimulatedSource) Read(channel int) (int, bool) {
	if !s.started[channel] || !s.ready[channel] {
		return 0, false
	}
	return s.values[channel], true
}

// Inject sets the value a subsequent Read on channel will return. Test
// helper: production code never calls this.
func (s *SimulatedSource) Inject(channel int, value int) {
	s.values[channel] = value
	s.ready[channel] = true
}

// SysfsIIOSource reads 12-bit ADC samples from a Linux industrial-I/O
// sysfs device, the same sysfs path convention the reference service uses
// in its own ADC helper (hardware.ReadAdcValue), generalised here behind
// the Source interface and with an explicit readiness probe via a raw
// unix.Access check rather than a bare os.Stat, following the
// golang.org/x/sys idiom the reference service already depends on for its
// other hardware adapters.
type SysfsIIOSource struct {
	Device string
}

func (s *SysfsIIOSource) Start(channel int) error {
	path := s.path(channel)
	if err := unix.Access(path, unix.R_OK); err != nil {
		return fmt.Errorf("adc: sysfs channel not accessible: %s: %w", path, err)
	}
	return nil
}

func (s *SysfsIIOSource) Read(channel int) (int, bool) {
	path := s.path(channel)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var value int
	if _, err := fmt.Sscanf(string(data), "%d", &value); err != nil {
		return 0, false
	}
	return value, true
}

func (s *SysfsIIOSource) path(channel int) string {
	return fmt.Sprintf("/sys/bus/iio/devices/%s/in_voltage%d_raw", s.Device, channel)
}
