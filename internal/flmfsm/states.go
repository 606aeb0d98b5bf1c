// Package flmfsm defines the librefsm state machine definition shared by
// FlmController, in the same shape as the reference service's internal/fsm
// package: string-typed state/event IDs plus a builder function, kept
// separate from the component that owns the runtime data the actions
// close over.
package flmfsm

import "github.com/librescoot/librefsm"

const (
	StateInit     librefsm.StateID = "init"
	StateNormal   librefsm.StateID = "normal"
	StateDegraded librefsm.StateID = "degraded"
	StateSafe     librefsm.StateID = "safe"
)

const (
	EventInputsValid     librefsm.EventID = "inputs_valid"
	EventMaxErrors       librefsm.EventID = "max_errors"
	EventRestored        librefsm.EventID = "restored"
	EventDegradedTimeout librefsm.EventID = "degraded_timeout"
	EventSafeTrigger     librefsm.EventID = "safe_trigger"
)
