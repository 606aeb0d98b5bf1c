package flmfsm

import (
	"github.com/librescoot/librefsm"
)

// NewDefinition builds the FlmController's Init/Normal/Degraded/Safe
// definition, in the same builder-chain idiom the reference service uses
// for its own vehicle-state definition: WithOnEnter/WithOnExit hooks call
// back into actions. The Degraded -> Safe timeout is not armed here via
// librefsm's own (wall-clock) timer support: it is counted in
// FlmController ticks and raised as an explicit SendSync of
// EventDegradedTimeout, the same way the original source counts FTTI
// against a simulated, tick-advanced SystemTime rather than a real clock.
// The caller is responsible for calling Build() on the result, the same
// split the reference service keeps between definition.go and its FSM
// initialiser.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateInit).
		State(StateNormal,
			librefsm.WithOnEnter(actions.OnEnterNormal),
		).
		State(StateDegraded,
			librefsm.WithOnEnter(actions.OnEnterDegraded),
			librefsm.WithOnExit(actions.OnExitDegraded),
		).
		State(StateSafe,
			librefsm.WithOnEnter(actions.OnEnterSafe),
		).
		Transition(StateInit, EventInputsValid, StateNormal).
		Transition(StateNormal, EventMaxErrors, StateDegraded).
		Transition(StateDegraded, EventRestored, StateNormal).
		Transition(StateDegraded, EventDegradedTimeout, StateSafe).
		Transition(StateInit, EventSafeTrigger, StateSafe).
		Transition(StateNormal, EventSafeTrigger, StateSafe).
		Transition(StateDegraded, EventSafeTrigger, StateSafe).
		Initial(StateInit)
}
