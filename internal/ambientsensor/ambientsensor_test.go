package ambientsensor

import (
	"log"
	"os"
	"testing"

	"flm-ecu/internal/adc"
	"flm-ecu/internal/config"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/types"
)

func newTestSensor() (*Sensor, *adc.SimulatedSource) {
	src := adc.NewSimulatedSource()
	l := logger.NewLogger(log.New(os.Stdout, "", 0), logger.LogLevelNone)
	s := New(src, nil, l.WithTag("test"))
	if err := s.Start(); err != nil {
		panic(err)
	}
	return s, src
}

func TestConstantValueBecomesValidAfterFourTicks(t *testing.T) {
	s, src := newTestSensor()
	src.Inject(0, 2000)

	var reading types.AmbientReading
	for i := 0; i < config.AdcSamples; i++ {
		reading = s.Tick()
	}
	if !reading.Valid {
		t.Fatalf("expected valid after %d ticks, got %+v", config.AdcSamples, reading)
	}
	if reading.Filtered != 2000 {
		t.Fatalf("want filtered 2000, got %d", reading.Filtered)
	}
}

func TestOpenCircuitBelowThreshold(t *testing.T) {
	s, src := newTestSensor()
	src.Inject(0, 50)
	reading := s.Tick()
	if reading.Status != types.AmbientOpenCircuit {
		t.Fatalf("want OpenCircuit, got %v", reading.Status)
	}
	if reading.Valid {
		t.Fatalf("open circuit reading must be invalid")
	}
}

func TestShortCircuitAboveThreshold(t *testing.T) {
	s, src := newTestSensor()
	src.Inject(0, 4000)
	reading := s.Tick()
	if reading.Status != types.AmbientShortCircuit {
		t.Fatalf("want ShortCircuit, got %v", reading.Status)
	}
}

func TestPlausibilityAfterSustainedJump(t *testing.T) {
	s, src := newTestSensor()

	// Settle on a baseline without yet reaching a rate-check tick.
	src.Inject(0, 1000)
	for i := 0; i < config.AdcSamples; i++ {
		s.Tick()
	}

	// Each step below jumps by more than RateLimit relative to the last
	// rate-check's filtered value, while staying within the electrical
	// valid range so only the plausibility screen is exercised.
	steps := []int{1700, 2400, 3100, 3800}
	var reading types.AmbientReading
	for _, v := range steps {
		src.Inject(0, v)
		for i := 0; i < config.RateCheckCycles; i++ {
			reading = s.Tick()
		}
	}
	if reading.Status != types.AmbientPlausibility {
		t.Fatalf("want Plausibility after %d sustained-jump intervals, got %v", len(steps), reading.Status)
	}
}
