package switchreceiver

import (
	"log"
	"os"
	"testing"

	"flm-ecu/internal/config"
	"flm-ecu/internal/e2e"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/serialbus"
	"flm-ecu/internal/types"
)

func newTestReceiver() (*Receiver, *serialbus.Mailbox, *e2e.ProtectState) {
	box := serialbus.NewMailbox()
	l := logger.NewLogger(log.New(os.Stdout, "", 0), logger.LogLevelNone)
	return New(box, nil, l.WithTag("test")), box, &e2e.ProtectState{}
}

func sendFrame(t *testing.T, r *Receiver, ps *e2e.ProtectState, command byte) types.SwitchReport {
	t.Helper()
	frame := [4]byte{0, 0, command, 0}
	if err := e2e.Protect(config.SwitchFrameDataID, ps, frame[:]); err != nil {
		t.Fatalf("Protect: %v", err)
	}
	r.SubmitFrame(frame)
	return r.Tick()
}

func TestReachesValidAfterEnoughGoodFrames(t *testing.T) {
	r, _, ps := newTestReceiver()

	var report types.SwitchReport
	for i := 0; i < 4; i++ {
		report = sendFrame(t, r, ps, byte(types.SwitchLowBeam))
	}
	if !report.Valid {
		t.Fatalf("expected valid report after %d good frames, got %+v", 4, report)
	}
	if report.Command != types.SwitchLowBeam {
		t.Fatalf("want LowBeam, got %v", report.Command)
	}
}

func TestTimeoutAfterSilence(t *testing.T) {
	r, _, ps := newTestReceiver()
	for i := 0; i < 4; i++ {
		sendFrame(t, r, ps, byte(types.SwitchOff))
	}

	var report types.SwitchReport
	for i := 0; i < int(config.FrameTimeoutCycles); i++ {
		report = r.Tick()
	}
	if !report.TimedOut {
		t.Fatalf("expected timeout after %d silent ticks", config.FrameTimeoutCycles)
	}
	if report.Valid {
		t.Fatalf("report must not be valid once timed out")
	}
}

func TestOutOfRangeCommandInvalidatesReport(t *testing.T) {
	r, _, ps := newTestReceiver()
	for i := 0; i < 4; i++ {
		sendFrame(t, r, ps, byte(types.SwitchLowBeam))
	}
	report := sendFrame(t, r, ps, 7) // out of range, > 3
	if report.Valid {
		t.Fatalf("out-of-range command must invalidate the report")
	}
}
