package e2e

import (
	"testing"

	"flm-ecu/internal/config"
	"flm-ecu/internal/types"
)

func protectedFrame(t *testing.T, ps *ProtectState, command byte) []byte {
	t.Helper()
	frame := []byte{0, 0, command, 0}
	if err := Protect(config.SwitchFrameDataID, ps, frame); err != nil {
		t.Fatalf("Protect: %v", err)
	}
	return frame
}

func TestInitialThenOk(t *testing.T) {
	ps := &ProtectState{}
	cs := NewCheckState()

	f1 := protectedFrame(t, ps, 1)
	if got := Check(config.SwitchFrameDataID, cs, f1); got != types.E2EInitial {
		t.Fatalf("first frame: want Initial, got %v", got)
	}

	for i := 0; i < 5; i++ {
		f := protectedFrame(t, ps, 1)
		if got := Check(config.SwitchFrameDataID, cs, f); got != types.E2EOk {
			t.Fatalf("frame %d: want Ok, got %v", i, got)
		}
	}
}

func TestCorruptedCRCYieldsWrongCrc(t *testing.T) {
	ps := &ProtectState{}
	cs := NewCheckState()
	protectedFrame(t, ps, 1) // seed counter

	frame := protectedFrame(t, ps, 1)
	frame[2] ^= 0x01 // corrupt the command byte, not the counter nibble

	if got := Check(config.SwitchFrameDataID, cs, frame); got != types.E2EWrongCrc {
		t.Fatalf("want WrongCrc, got %v", got)
	}
}

func TestRepeatedFrame(t *testing.T) {
	ps := &ProtectState{}
	cs := NewCheckState()
	f := protectedFrame(t, ps, 1)
	Check(config.SwitchFrameDataID, cs, f)

	// Re-submit a frame with the same counter as the last accepted one.
	dup := []byte{f[0], f[1], f[2], f[3]}
	if got := Check(config.SwitchFrameDataID, cs, dup); got != types.E2ERepeated {
		t.Fatalf("want Repeated, got %v", got)
	}
}

func TestSkippingCountersWithinDelta(t *testing.T) {
	ps := &ProtectState{}
	cs := NewCheckState()
	Check(config.SwitchFrameDataID, cs, protectedFrame(t, ps, 1)) // Initial, counter 0

	ps.Counter++ // skip one counter value (delta becomes 2)
	f := protectedFrame(t, ps, 1)
	if got := Check(config.SwitchFrameDataID, cs, f); got != types.E2EOkSomeLost {
		t.Fatalf("want OkSomeLost, got %v", got)
	}
}

func TestSkippingTooManyCountersWrongSequence(t *testing.T) {
	ps := &ProtectState{}
	cs := NewCheckState()
	Check(config.SwitchFrameDataID, cs, protectedFrame(t, ps, 1))

	ps.Counter += 5
	f := protectedFrame(t, ps, 1)
	if got := Check(config.SwitchFrameDataID, cs, f); got != types.E2EWrongSequence {
		t.Fatalf("want WrongSequence, got %v", got)
	}
}

func TestCounterWrapAt15(t *testing.T) {
	if got := counterDelta(0, 14); got != 1 {
		t.Fatalf("wrap delta(0,14): want 1, got %d", got)
	}
	if got := counterDelta(14, 0); got != 14 {
		t.Fatalf("delta(14,0): want 14, got %d", got)
	}
}

func TestSupervisorReachesValidThenInvalid(t *testing.T) {
	s := NewSupervisorState()

	// First tick always goes Deinit -> NoData regardless of status.
	if got := SupervisorCheck(s, types.E2EInitial, false); got != types.E2ESMNoData {
		t.Fatalf("tick1: want NoData, got %v", got)
	}
	// Second tick with a non-NoNewData status moves NoData -> Init and
	// counts the status within Init.
	if got := SupervisorCheck(s, types.E2EInitial, false); got != types.E2ESMInit {
		t.Fatalf("tick2: want Init, got %v", got)
	}
	// One more Ok reaches MinOkStateInit (2) -> Valid.
	if got := SupervisorCheck(s, types.E2EOk, false); got != types.E2ESMValid {
		t.Fatalf("tick3: want Valid, got %v", got)
	}

	for i := 0; i < int(config.MaxErrorStateValid); i++ {
		SupervisorCheck(s, types.E2EWrongCrc, false)
	}
	if s.State != types.E2ESMInvalid {
		t.Fatalf("want Invalid after %d errors, got %v", config.MaxErrorStateValid, s.State)
	}
}

func TestSupervisorRepeatedFramesCountAsErrors(t *testing.T) {
	s := NewSupervisorState()
	SupervisorCheck(s, types.E2EInitial, false) // Deinit -> NoData
	SupervisorCheck(s, types.E2EInitial, false) // NoData -> Init
	SupervisorCheck(s, types.E2EOk, false)       // Init -> Valid

	// A sustained stream of Repeated frames must still advance ErrorCount
	// toward MaxErrorStateValid even though it never resets OkCount -
	// E2E_SMCheck increments ErrorCount on every non-positive status and
	// only skips the OkCount reset for Repeated.
	for i := 0; i < int(config.MaxErrorStateValid)-1; i++ {
		if got := SupervisorCheck(s, types.E2ERepeated, false); got != types.E2ESMValid {
			t.Fatalf("repeated frame %d: want still Valid, got %v", i, got)
		}
	}
	if got := SupervisorCheck(s, types.E2ERepeated, false); got != types.E2ESMInvalid {
		t.Fatalf("want Invalid once Repeated count reaches MaxErrorStateValid, got %v", got)
	}
}
