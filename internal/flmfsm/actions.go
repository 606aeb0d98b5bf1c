package flmfsm

import "github.com/librescoot/librefsm"

// Actions is the seam FlmController implements so the definition stays
// independent of the component's concrete state, following the reference
// service's fsm.Actions split between machine wiring and business logic.
type Actions interface {
	OnEnterNormal(ctx *librefsm.Context) error
	OnEnterDegraded(ctx *librefsm.Context) error
	OnEnterSafe(ctx *librefsm.Context) error
	OnExitDegraded(ctx *librefsm.Context) error
}
