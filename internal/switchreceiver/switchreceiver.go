// Package switchreceiver implements the SwitchReceiver component: per
// spec.md §4.1, it validates every incoming 4-byte light-switch frame
// against E2E Profile 01 and publishes a typed switch report with a
// confidence tag, ticking every 10ms.
package switchreceiver

import (
	"flm-ecu/internal/config"
	"flm-ecu/internal/diagnostics"
	"flm-ecu/internal/e2e"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/serialbus"
	"flm-ecu/internal/types"
)

// Receiver owns the sole copy of SwitchReceiver's state. No other
// component may mutate it; FlmController reads only the published
// snapshot returned by Tick.
type Receiver struct {
	log  *logger.Logger
	diag diagnostics.Sink

	box *serialbus.Mailbox

	check      *e2e.CheckState
	supervisor *e2e.SupervisorState

	timeoutCounter uint8
	timedOut       bool

	lastCommand types.SwitchCommand
}

// New returns a freshly initialised Receiver draining box. diag may be nil
// in tests that don't care about diagnostic event reporting.
func New(box *serialbus.Mailbox, diag diagnostics.Sink, log *logger.Logger) *Receiver {
	return &Receiver{
		log:        log,
		diag:       diag,
		box:        box,
		check:      e2e.NewCheckState(),
		supervisor: e2e.NewSupervisorState(),
	}
}

// SubmitFrame buffers bytes as the pending frame for the next Tick. This
// is the only entry point external callers (the serial transport) use;
// a fresh submission before the next Tick overwrites whatever was
// pending, per the external interface contract.
func (r *Receiver) SubmitFrame(bytes [4]byte) {
	r.box.Submit(bytes)
}

// Tick runs one 10ms cycle: stamp-advance, E2E check, timeout update,
// validity decision, signal emission.
func (r *Receiver) Tick() types.SwitchReport {
	frame, hasFrame := r.box.Take()

	var status types.E2ECheckStatus
	skipSupervisor := false

	if hasFrame {
		r.timeoutCounter = 0
		r.timedOut = false
		status = e2e.Check(config.SwitchFrameDataID, r.check, frame[:])
		if status == types.E2EInitial || status == types.E2EOk || status == types.E2EOkSomeLost {
			r.lastCommand = decodeCommand(frame[2])
		} else if status == types.E2EWrongCrc || status == types.E2EWrongSequence {
			r.log.Debugf("frame rejected: %s", status)
		}
	} else {
		r.timeoutCounter++
		if r.timeoutCounter >= config.FrameTimeoutCycles && !r.timedOut {
			r.log.Warnf("frame timeout after %d silent ticks", r.timeoutCounter)
		}
		if r.timeoutCounter >= config.FrameTimeoutCycles {
			r.timedOut = true
		}
		var reported bool
		status, reported = e2e.NoData(r.check)
		skipSupervisor = !reported
	}

	supervisorState := e2e.SupervisorCheck(r.supervisor, status, skipSupervisor)

	report := types.SwitchReport{
		Command:         r.lastCommand,
		LastStatus:      status,
		SupervisorState: supervisorState,
		TimedOut:        r.timedOut,
	}
	report.Valid = supervisorState == types.E2ESMValid && !r.timedOut

	if !report.Command.Valid() {
		report.Valid = false
	}

	if r.diag != nil {
		if report.Valid {
			r.diag.Set(diagnostics.EventSwitchE2E, diagnostics.Passed)
		} else {
			r.diag.Set(diagnostics.EventSwitchE2E, diagnostics.Failed)
		}
	}

	return report
}

// decodeCommand maps a raw command byte to a SwitchCommand, leaving
// anything out of range as an invalid value the caller's validity check
// catches (an unrecognised code is never silently substituted with Off).
func decodeCommand(code byte) types.SwitchCommand {
	return types.SwitchCommand(code)
}
