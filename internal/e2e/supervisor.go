package e2e

import (
	"flm-ecu/internal/config"
	"flm-ecu/internal/types"
)

// SupervisorState is the sliding-window state machine that qualifies a
// stream of per-frame check statuses into Deinit/NoData/Init/Valid/Invalid,
// ported from the original's E2E_SMCheck.
type SupervisorState struct {
	OkCount    uint8
	ErrorCount uint8
	State      types.E2ESupervisorState
}

// NewSupervisorState returns a supervisor parked in Deinit, matching a
// freshly constructed component before its first tick.
func NewSupervisorState() *SupervisorState {
	return &SupervisorState{State: types.E2ESMDeinit}
}

// isPositive reports whether a check status counts toward the supervisor's
// ok-count (Ok, OkSomeLost and Initial all count as positive).
func isPositive(status types.E2ECheckStatus) bool {
	switch status {
	case types.E2EOk, types.E2EOkSomeLost, types.E2EInitial:
		return true
	default:
		return false
	}
}

// SupervisorCheck advances the supervisor by one tick's profile check
// status. Pass skip=true for a tick in which NoData reported "no check
// performed" — the supervisor stays exactly as it was. Deinit always
// advances to NoData on the very first call regardless of status.
func SupervisorCheck(s *SupervisorState, status types.E2ECheckStatus, skip bool) types.E2ESupervisorState {
	if s.State == types.E2ESMDeinit {
		s.State = types.E2ESMNoData
		s.OkCount = 0
		s.ErrorCount = 0
		return s.State
	}
	if skip {
		return s.State
	}

	if s.State == types.E2ESMNoData {
		if status != types.E2ENoNewData {
			s.State = types.E2ESMInit
			s.OkCount = 0
			s.ErrorCount = 0
		}
	}

	positive := isPositive(status)
	repeated := status == types.E2ERepeated

	if positive {
		s.OkCount++
	} else {
		s.ErrorCount++
		if !repeated {
			s.OkCount = 0
		}
	}

	switch s.State {
	case types.E2ESMInit:
		if s.OkCount >= config.MinOkStateInit {
			s.State = types.E2ESMValid
			s.OkCount, s.ErrorCount = 0, 0
		} else if s.ErrorCount >= config.MaxErrorStateInit {
			s.State = types.E2ESMInvalid
			s.OkCount, s.ErrorCount = 0, 0
		}
	case types.E2ESMValid:
		if s.ErrorCount >= config.MaxErrorStateValid {
			s.State = types.E2ESMInvalid
			s.OkCount, s.ErrorCount = 0, 0
		}
	case types.E2ESMInvalid:
		if s.OkCount >= config.MinOkStateInvalid {
			s.State = types.E2ESMValid
			s.OkCount, s.ErrorCount = 0, 0
		}
	}

	return s.State
}
