package outputmonitor

import (
	"log"
	"os"
	"testing"

	"flm-ecu/internal/adc"
	"flm-ecu/internal/config"
	"flm-ecu/internal/dio"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/types"
)

func newTestMonitor() (*Monitor, *dio.SimulatedWriter, *adc.SimulatedSource) {
	w := dio.NewSimulatedWriter()
	src := adc.NewSimulatedSource()
	l := logger.NewLogger(log.New(os.Stdout, "", 0), logger.LogLevelNone)
	m := New(w, src, nil, l.WithTag("test"))
	if err := m.Start(); err != nil {
		panic(err)
	}
	return m, w, src
}

func TestOutputTableLowBeam(t *testing.T) {
	m, w, src := newTestMonitor()
	src.Inject(1, 20) // 200mA, healthy
	m.Tick(types.HeadlightLowBeam)
	if w.LevelOf(dio.ChannelLowBeam) != dio.LevelHigh {
		t.Fatalf("low-beam line should be energised")
	}
	if w.LevelOf(dio.ChannelHighBeam) != dio.LevelLow {
		t.Fatalf("high-beam line should be de-energised")
	}
}

func TestOpenLoadLatchesAfterConfirmWindow(t *testing.T) {
	m, _, src := newTestMonitor()
	src.Inject(1, 0) // 0mA, below OpenLoadThresholdMA

	// The settling gate needs FaultConfirmCycles ticks after the command
	// change before it starts counting, then FaultConfirmCycles more to
	// latch the fault.
	var snap types.OutputSnapshot
	for i := 0; i < 2*config.FaultConfirmCycles; i++ {
		snap = m.Tick(types.HeadlightLowBeam)
	}
	if snap.Fault != types.FaultOpenLoad {
		t.Fatalf("want OpenLoad fault after %d cycles, got %v", 2*config.FaultConfirmCycles, snap.Fault)
	}
}

func TestShortCircuitDeenergisesImmediately(t *testing.T) {
	m, w, src := newTestMonitor()
	src.Inject(1, config.OvercurrentThresholdMA/config.ScaleFactor+100)

	var snap types.OutputSnapshot
	for i := 0; i < config.FaultConfirmCycles; i++ {
		snap = m.Tick(types.HeadlightLowBeam)
	}
	if snap.Fault != types.FaultShort {
		t.Fatalf("want Short fault, got %v", snap.Fault)
	}
	if w.LevelOf(dio.ChannelLowBeam) != dio.LevelLow || w.LevelOf(dio.ChannelHighBeam) != dio.LevelLow {
		t.Fatalf("both output lines must be de-energised once short is confirmed")
	}
}
