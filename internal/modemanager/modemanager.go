// Package modemanager implements the mode-manager collaborator named in
// the external interfaces contract: request_reset() is posted but the
// core never blocks on its result. Supplemented from the original
// AUTOSAR BswM reset-propagation flow (SPEC_FULL.md supplement C.3): the
// SafetyAggregator posts a reset request when it latches Safe for a
// WdgmFailure or MultiFault reason.
package modemanager

import (
	"sync/atomic"

	"flm-ecu/internal/logger"
	"flm-ecu/internal/types"
)

// Manager is the dependency-injection seam SafetyAggregator posts through.
type Manager interface {
	RequestReset(reason types.SafeStateReason)
}

// LoggingManager records and logs reset requests without acting on them —
// same-process notification only, no persistence and no multi-ECU
// coordination, consistent with the Non-goals this supplement is scoped
// against.
type LoggingManager struct {
	log   *logger.Logger
	count atomic.Int64
}

// NewLoggingManager returns a Manager backed by log.
func NewLoggingManager(log *logger.Logger) *LoggingManager {
	return &LoggingManager{log: log}
}

func (m *LoggingManager) RequestReset(reason types.SafeStateReason) {
	m.count.Add(1)
	m.log.Warnf("reset requested by safety aggregator, reason=%s", reason)
}

// RequestCount reports how many reset requests have been posted, for test
// assertions.
func (m *LoggingManager) RequestCount() int64 {
	return m.count.Load()
}
