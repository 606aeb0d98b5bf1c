// Package outputmonitor implements the OutputMonitor component: per
// spec.md §4.4, it drives the low-beam/high-beam output channels and
// classifies the electrical behaviour of the load, ticking every 10ms.
package outputmonitor

import (
	"time"

	"flm-ecu/internal/adc"
	"flm-ecu/internal/config"
	"flm-ecu/internal/diagnostics"
	"flm-ecu/internal/dio"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/types"
)

// currentSenseChannel is the current-sense ADC channel, fixed by wiring.
const currentSenseChannel = 1

// Monitor owns the sole copy of OutputMonitor's state.
type Monitor struct {
	log    *logger.Logger
	diag   diagnostics.Sink
	writer dio.Writer
	source adc.Source

	prevCommand          types.HeadlightCommand
	commandChangeInstant time.Time // wall-clock, diagnostic stamp only
	ticksSinceChange     int       // tick count driving the settling gate
	haveCommand          bool

	openLoadCounter int
	shortCounter    int
	fault           types.HeadlightFault
	shortLatched    bool
}

// New returns a freshly initialised Monitor. diag may be nil in tests that
// don't care about diagnostic event reporting.
func New(writer dio.Writer, source adc.Source, diag diagnostics.Sink, log *logger.Logger) *Monitor {
	return &Monitor{log: log, diag: diag, writer: writer, source: source}
}

// Start arms the current-sense ADC channel.
func (m *Monitor) Start() error {
	return m.source.Start(currentSenseChannel)
}

// Tick runs one 10ms cycle: drive the output table, read the current
// sense, run open-load and short-circuit detection.
func (m *Monitor) Tick(command types.HeadlightCommand) types.OutputSnapshot {
	if !m.haveCommand || command != m.prevCommand {
		m.commandChangeInstant = time.Now()
		m.ticksSinceChange = 0
		m.haveCommand = true
	} else {
		m.ticksSinceChange++
	}
	m.prevCommand = command

	if !m.shortLatched {
		m.drive(command)
	}

	rawMA := 0
	if raw, ready := m.source.Read(currentSenseChannel); ready {
		rawMA = raw * config.ScaleFactor
	}

	if command == types.HeadlightOff {
		m.openLoadCounter = 0
	} else if !m.shortLatched && m.ticksSinceChange >= config.FaultConfirmCycles {
		if rawMA < config.OpenLoadThresholdMA {
			m.openLoadCounter++
			if m.openLoadCounter >= config.FaultConfirmCycles && m.fault == types.FaultNone {
				m.fault = types.FaultOpenLoad
				m.log.Warnf("output: open-load fault latched")
			}
		} else if m.fault != types.FaultOpenLoad {
			m.openLoadCounter = 0
		}
	}

	if rawMA > config.OvercurrentThresholdMA {
		m.shortCounter++
		if m.shortCounter >= config.FaultConfirmCycles && !m.shortLatched {
			m.shortLatched = true
			m.fault = types.FaultShort
			m.drive(types.HeadlightOff)
			m.log.Errorf("output: short-circuit fault latched, outputs de-energised")
		}
	} else if !m.shortLatched {
		m.shortCounter = 0
	}

	if m.diag != nil {
		if m.fault == types.FaultOpenLoad {
			m.diag.Set(diagnostics.EventOutputOpenLoad, diagnostics.Failed)
		} else {
			m.diag.Set(diagnostics.EventOutputOpenLoad, diagnostics.Passed)
		}
		if m.fault == types.FaultShort {
			m.diag.Set(diagnostics.EventOutputShort, diagnostics.Failed)
		} else {
			m.diag.Set(diagnostics.EventOutputShort, diagnostics.Passed)
		}
	}

	return types.OutputSnapshot{
		Command:          command,
		ActuallyOn:       rawMA >= config.MinOnCurrentMA,
		CurrentMA:        rawMA,
		Fault:            m.fault,
		CommandChangedAt: m.commandChangeInstant,
	}
}

func (m *Monitor) drive(command types.HeadlightCommand) {
	lowBeam, highBeam := dio.LevelLow, dio.LevelLow
	switch command {
	case types.HeadlightLowBeam:
		lowBeam = dio.LevelHigh
	case types.HeadlightHighBeam:
		lowBeam, highBeam = dio.LevelHigh, dio.LevelHigh
	}
	if err := m.writer.WriteChannel(dio.ChannelLowBeam, lowBeam); err != nil {
		m.log.Errorf("output: write low-beam: %v", err)
	}
	if err := m.writer.WriteChannel(dio.ChannelHighBeam, highBeam); err != nil {
		m.log.Errorf("output: write high-beam: %v", err)
	}
}
