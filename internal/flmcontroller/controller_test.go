package flmcontroller

import (
	"log"
	"os"
	"testing"

	"flm-ecu/internal/config"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/types"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	l := logger.NewLogger(log.New(os.Stdout, "", 0), logger.LogLevelNone)
	c, err := New(l.WithTag("test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func validSwitch(cmd types.SwitchCommand) types.SwitchReport {
	return types.SwitchReport{Command: cmd, Valid: true}
}

func validAmbient(filtered int) types.AmbientReading {
	return types.AmbientReading{Filtered: filtered, Valid: true}
}

func TestEntersNormalWhenAllInputsValid(t *testing.T) {
	c := newTestController(t)
	snap := c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), false)
	if snap.State != types.FLMNormal {
		t.Fatalf("want Normal after one tick with valid inputs, got %v", snap.State)
	}
}

func TestDegradesAfterConsecutiveErrorsThenRecovers(t *testing.T) {
	c := newTestController(t)
	c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), false)

	invalidAmbient := types.AmbientReading{Valid: false}
	var snap types.FLMSnapshot
	for i := 0; i < config.MaxConsecutiveErrors; i++ {
		snap = c.Tick(validSwitch(types.SwitchOff), invalidAmbient, false)
	}
	if snap.State != types.FLMDegraded {
		t.Fatalf("want Degraded after %d consecutive errors, got %v", config.MaxConsecutiveErrors, snap.State)
	}

	snap = c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), false)
	if snap.State != types.FLMNormal {
		t.Fatalf("want Normal immediately on recovery from Degraded, got %v", snap.State)
	}
}

func TestExternalSafeTriggerForcesSafeFromAnyState(t *testing.T) {
	c := newTestController(t)
	c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), false)

	snap := c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), true)
	if snap.State != types.FLMSafe {
		t.Fatalf("want Safe on external trigger, got %v", snap.State)
	}

	snap = c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), false)
	if snap.State != types.FLMSafe {
		t.Fatalf("Safe must be absorbing, got %v", snap.State)
	}
}

func TestSafeStateAmbientFallback(t *testing.T) {
	c := newTestController(t)
	c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), true)

	snap := c.Tick(validSwitch(types.SwitchHighBeam), validAmbient(500), false)
	if snap.Command != types.HeadlightLowBeam {
		t.Fatalf("want LowBeam fallback below AmbientThresholdOn in Safe, got %v", snap.Command)
	}

	snap = c.Tick(validSwitch(types.SwitchHighBeam), validAmbient(2000), false)
	if snap.Command != types.HeadlightOff {
		t.Fatalf("want Off above AmbientThresholdOn in Safe, got %v", snap.Command)
	}

	snap = c.Tick(validSwitch(types.SwitchHighBeam), types.AmbientReading{Valid: false}, false)
	if snap.Command != types.HeadlightLowBeam {
		t.Fatalf("want fail-visible LowBeam when ambient itself invalid in Safe, got %v", snap.Command)
	}
}

func TestAutoModeHysteresis(t *testing.T) {
	c := newTestController(t)
	c.Tick(validSwitch(types.SwitchAuto), validAmbient(2000), false)

	snap := c.Tick(validSwitch(types.SwitchAuto), validAmbient(500), false)
	if snap.Command != types.HeadlightLowBeam {
		t.Fatalf("lights off, ambient 500 < threshold-on: want LowBeam, got %v", snap.Command)
	}

	snap = c.Tick(validSwitch(types.SwitchAuto), validAmbient(900), false)
	if snap.Command != types.HeadlightLowBeam {
		t.Fatalf("ambient 900 is between thresholds: want lights to stay LowBeam, got %v", snap.Command)
	}

	snap = c.Tick(validSwitch(types.SwitchAuto), validAmbient(1200), false)
	if snap.Command != types.HeadlightOff {
		t.Fatalf("ambient 1200 > threshold-off: want Off, got %v", snap.Command)
	}

	snap = c.Tick(validSwitch(types.SwitchAuto), validAmbient(900), false)
	if snap.Command != types.HeadlightOff {
		t.Fatalf("ambient 900 is between thresholds: want lights to stay Off, got %v", snap.Command)
	}
}

func TestDirectSwitchCommandsMapDirectly(t *testing.T) {
	c := newTestController(t)
	c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), false)

	cases := []struct {
		cmd  types.SwitchCommand
		want types.HeadlightCommand
	}{
		{types.SwitchOff, types.HeadlightOff},
		{types.SwitchLowBeam, types.HeadlightLowBeam},
		{types.SwitchHighBeam, types.HeadlightHighBeam},
	}
	for _, tc := range cases {
		snap := c.Tick(validSwitch(tc.cmd), validAmbient(500), false)
		if snap.Command != tc.want {
			t.Fatalf("switch %v: want %v, got %v", tc.cmd, tc.want, snap.Command)
		}
	}
}

func TestUnrecognisedSwitchCodeRetainsPreviousCommand(t *testing.T) {
	c := newTestController(t)
	c.Tick(validSwitch(types.SwitchOff), validAmbient(2000), false)
	c.Tick(validSwitch(types.SwitchHighBeam), validAmbient(500), false)

	// An invalid report with an out-of-range command in Normal falls to the
	// Auto-mode rule only when Degraded; in Normal with Valid=false it has
	// already contributed to the error count but computeCommand still maps
	// off of the stale Command field. Exercise the literal "unrecognised
	// code, command field itself out of range" path directly.
	badReport := types.SwitchReport{Command: types.SwitchCommand(7), Valid: true}
	snap := c.Tick(badReport, validAmbient(500), false)
	if snap.Command != types.HeadlightHighBeam {
		t.Fatalf("unrecognised switch code should retain previous command HighBeam, got %v", snap.Command)
	}
}
