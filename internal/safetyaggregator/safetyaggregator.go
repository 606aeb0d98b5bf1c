// Package safetyaggregator implements the SafetyAggregator component: per
// spec.md §4.5, it fuses per-component fault signals into a single global
// safety posture and drives the system into a latched safe state when
// necessary. Ticks every 5ms.
package safetyaggregator

import (
	"context"

	"github.com/librescoot/librefsm"

	"flm-ecu/internal/config"
	"flm-ecu/internal/diagnostics"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/modemanager"
	"flm-ecu/internal/types"
	"flm-ecu/internal/watchdog"
)

const (
	stateActive  librefsm.StateID = "active"
	stateLatched librefsm.StateID = "latched"
	eventLatch   librefsm.EventID = "latch"
)

// Aggregator owns the sole copy of SafetyAggregator's state. The latch
// itself is a two-state librefsm machine — Active to Latched is the one
// legal transition and it is absorbing, the same "enter once, no exit"
// shape the reference service's FSM builder already expresses for other
// one-way transitions, generalised here to the safety latch.
type Aggregator struct {
	log     *logger.Logger
	diag    diagnostics.Sink
	machine *librefsm.Machine
	modeMgr modemanager.Manager

	reason         types.SafeStateReason
	classification types.DayNight

	// faultTicks and e2eInvalidTicks count this component's own 5ms ticks,
	// not wall-clock time: the scheduler is cooperative and fixed-tick, and
	// the original source advances its own simulated SystemTime by its
	// main-function period rather than sampling a real clock.
	faultTicks      int
	e2eInvalidTicks int
}

// New builds and starts the Aggregator's latch machine. diag may be nil in
// tests that don't care about diagnostic event reporting.
func New(modeMgr modemanager.Manager, diag diagnostics.Sink, log *logger.Logger) (*Aggregator, error) {
	a := &Aggregator{log: log, diag: diag, modeMgr: modeMgr}

	def := librefsm.NewDefinition().
		State(stateActive).
		State(stateLatched, librefsm.WithOnEnter(a.onLatch)).
		Transition(stateActive, eventLatch, stateLatched).
		Initial(stateActive)

	machine, err := def.Build()
	if err != nil {
		return nil, err
	}
	a.machine = machine
	if err := machine.Start(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

// Inputs is the set of per-component observations the aggregator reads at
// the top of its tick, sampled from the snapshots published at the end of
// the previous tick.
type Inputs struct {
	SwitchValid    bool
	AmbientValid   bool
	AmbientReading types.AmbientReading
	E2ESupervisor  types.E2ESupervisorState
	FLMState       types.FLMState
	OutputFault    types.HeadlightFault
	Watchdog       watchdog.Client
}

// Tick runs one 5ms cycle.
func (a *Aggregator) Tick(in Inputs) types.SafetySnapshot {
	if in.AmbientValid {
		if in.AmbientReading.Filtered > config.DayThreshold {
			a.classification = types.Day
		} else {
			a.classification = types.Night
		}
	}

	wdgStatus := in.Watchdog.GlobalStatus()

	faultCount := 0
	if !in.SwitchValid {
		faultCount++
	}
	if !in.AmbientValid {
		faultCount++
	}
	if in.OutputFault != types.FaultNone {
		faultCount++
	}
	if wdgStatus != types.WatchdogOk {
		faultCount++
	}

	if faultCount > 0 {
		a.faultTicks++
	} else {
		a.faultTicks = 0
	}

	if in.E2ESupervisor != types.E2ESMValid {
		a.e2eInvalidTicks++
	} else {
		a.e2eInvalidTicks = 0
	}

	// The strict greater-than below (not >=) matches the original source's
	// timing: its elapsed-time check only starts counting on the tick
	// after the timer arms, so the transition always lands one tick past
	// the nominal deadline.
	if a.machine.CurrentState() == stateActive {
		switch {
		case faultCount >= config.MaxFaultCount:
			a.latch(types.SafeReasonMultiFault)
		case wdgStatus == types.WatchdogFailed || wdgStatus == types.WatchdogExpired:
			a.latch(types.SafeReasonWdgmFailure)
		case a.e2eInvalidTicks > config.E2eTimeoutTicks:
			a.latch(types.SafeReasonE2eFailure)
		case a.faultTicks > config.FTTITicks:
			a.latch(types.SafeReasonTimeout)
		}
	}

	status := types.GlobalOk
	latched := a.machine.CurrentState() == stateLatched
	if latched {
		status = types.GlobalSafeState
	} else {
		switch {
		case faultCount == 0:
			status = types.GlobalOk
		case faultCount == 1:
			status = types.GlobalWarning
		default:
			status = types.GlobalDegraded
		}
	}

	safeCommand := types.HeadlightLowBeam
	if a.classification == types.Day {
		safeCommand = types.HeadlightOff
	}

	return types.SafetySnapshot{
		Status:           status,
		Reason:           a.reason,
		SafeLatched:      latched,
		FaultCount:       faultCount,
		Classification:   a.classification,
		SafeStateCommand: safeCommand,
	}
}

// Latched reports whether the safe-state latch has fired.
func (a *Aggregator) Latched() bool {
	return a.machine.CurrentState() == stateLatched
}

// TriggerManual lets an external caller (the operator shell, a test) post
// the manual safe-state trigger named in the external interface contract.
func (a *Aggregator) TriggerManual() {
	if a.machine.CurrentState() == stateActive {
		a.latch(types.SafeReasonManual)
	}
}

func (a *Aggregator) latch(reason types.SafeStateReason) {
	a.reason = reason
	if err := a.machine.SendSync(librefsm.Event{ID: eventLatch}); err != nil {
		a.log.Debugf("aggregator: latch event rejected: %v", err)
	}
}

func (a *Aggregator) onLatch(ctx *librefsm.Context) error {
	a.log.Errorf("safety aggregator: latched safe state, reason=%s", a.reason)
	if a.diag != nil {
		a.diag.Set(diagnostics.EventSafeState, diagnostics.Failed)
	}
	if a.reason == types.SafeReasonWdgmFailure || a.reason == types.SafeReasonMultiFault {
		a.modeMgr.RequestReset(a.reason)
	}
	return nil
}
