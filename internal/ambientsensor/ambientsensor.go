// Package ambientsensor implements the AmbientSensor component: per
// spec.md §4.2, it converts a noisy 12-bit ADC stream into a qualified
// ambient-light reading, ticking every 20ms.
package ambientsensor

import (
	"flm-ecu/internal/adc"
	"flm-ecu/internal/config"
	"flm-ecu/internal/diagnostics"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/types"
)

// channel is the ambient-light ADC channel, fixed by the hardware wiring.
const channel = 0

// Sensor owns the sole copy of AmbientSensor's state.
type Sensor struct {
	log    *logger.Logger
	diag   diagnostics.Sink
	source adc.Source

	buffer   [config.AdcSamples]int
	filled   int
	writePos int

	filteredPrev   int
	havePrev       bool
	rateTickCount  int
	plausibilityDebounce int
	plausibilityFault    bool
}

// New returns a freshly initialised Sensor reading from source. diag may be
// nil in tests that don't care about diagnostic event reporting.
func New(source adc.Source, diag diagnostics.Sink, log *logger.Logger) *Sensor {
	return &Sensor{log: log, diag: diag, source: source}
}

// Start arms the ADC channel. Call once before the first Tick.
func (s *Sensor) Start() error {
	return s.source.Start(channel)
}

// Tick runs one 20ms cycle: sample, filter, electrical-fault screen,
// plausibility screen, lux conversion.
func (s *Sensor) Tick() types.AmbientReading {
	raw, ready := s.source.Read(channel)
	if !ready {
		return types.AmbientReading{Status: types.AmbientTimeout, Valid: false}
	}

	s.buffer[s.writePos] = raw
	s.writePos = (s.writePos + 1) % config.AdcSamples
	if s.filled < config.AdcSamples {
		s.filled++
	}

	filtered := s.mean()

	status := types.AmbientValid
	valid := false

	switch {
	case filtered < config.OpenCircuitThreshold:
		status = types.AmbientOpenCircuit
		s.log.Debugf("open-circuit: filtered=%d", filtered)
	case filtered > config.ShortCircuitThreshold:
		status = types.AmbientShortCircuit
		s.log.Debugf("short-circuit: filtered=%d", filtered)
	}

	s.rateTickCount++
	if s.rateTickCount >= config.RateCheckCycles {
		s.rateTickCount = 0
		if s.havePrev {
			delta := filtered - s.filteredPrev
			if delta < 0 {
				delta = -delta
			}
			if delta > config.RateLimit {
				if s.plausibilityDebounce < config.PlausibilityDebounce {
					s.plausibilityDebounce++
				}
				if s.plausibilityDebounce >= config.PlausibilityDebounce {
					if !s.plausibilityFault {
						s.log.Warnf("plausibility fault: delta=%d exceeds rate limit across %d check intervals", delta, config.PlausibilityDebounce)
					}
					s.plausibilityFault = true
				}
			} else {
				s.plausibilityDebounce = 0
				s.plausibilityFault = false
			}
		}
		s.filteredPrev = filtered
		s.havePrev = true
	}

	if s.plausibilityFault && status == types.AmbientValid {
		status = types.AmbientPlausibility
	}

	if status == types.AmbientValid && s.filled >= config.AdcSamples {
		valid = true
	}

	if s.diag != nil {
		setOrClear := func(event diagnostics.EventID, failing bool) {
			if failing {
				s.diag.Set(event, diagnostics.Failed)
			} else {
				s.diag.Set(event, diagnostics.Passed)
			}
		}
		setOrClear(diagnostics.EventAmbientOpen, status == types.AmbientOpenCircuit)
		setOrClear(diagnostics.EventAmbientShort, status == types.AmbientShortCircuit)
		setOrClear(diagnostics.EventAmbientPlaus, status == types.AmbientPlausibility)
	}

	return types.AmbientReading{
		Filtered: filtered,
		Lux:      filtered / 4,
		Valid:    valid,
		Status:   status,
	}
}

func (s *Sensor) mean() int {
	if s.filled == 0 {
		return 0
	}
	sum := 0
	for i := 0; i < s.filled; i++ {
		sum += s.buffer[i]
	}
	return sum / s.filled
}
