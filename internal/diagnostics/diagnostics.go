// Package diagnostics implements the diagnostic event sink named as an
// external collaborator in the external interfaces contract:
// set_event_status(event_id, status), fire-and-forget. The core never
// depends on its return value; this package's concrete adapter records
// and logs event statuses (see SPEC_FULL.md supplement C.2). The telemetry
// fault stream is not fed from here: it is written from SafetyAggregator's
// snapshot.
package diagnostics

import (
	"sync"

	"flm-ecu/internal/logger"
)

// EventStatus mirrors the four statuses named in the external interface.
type EventStatus uint8

const (
	Passed EventStatus = iota
	Failed
	PrePassed
	PreFailed
)

func (s EventStatus) String() string {
	switch s {
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	case PrePassed:
		return "PrePassed"
	case PreFailed:
		return "PreFailed"
	default:
		return "Unknown"
	}
}

// EventID names a diagnostic event a component can raise or clear.
type EventID string

const (
	EventSwitchE2E     EventID = "DTC_SWITCH_E2E"
	EventAmbientOpen   EventID = "DTC_AMBIENT_OPEN_CIRCUIT"
	EventAmbientShort  EventID = "DTC_AMBIENT_SHORT_CIRCUIT"
	EventAmbientPlaus  EventID = "DTC_AMBIENT_PLAUSIBILITY"
	EventOutputOpenLoad EventID = "DTC_OUTPUT_OPEN_LOAD"
	EventOutputShort    EventID = "DTC_OUTPUT_SHORT"
	EventSafeState      EventID = "DTC_SAFE_STATE"
)

// Sink is the dependency-injection seam every component calls through.
// set_event_status is fire-and-forget: Set has no return value by design.
type Sink interface {
	Set(event EventID, status EventStatus)
}

// LoggingSink records the latest status per event and logs every
// transition, following the reference service's pattern of giving every
// otherwise-external collaborator at least one concrete, logging-backed
// implementation so the system runs standalone.
type LoggingSink struct {
	mu     sync.Mutex
	log    *logger.Logger
	latest map[EventID]EventStatus
}

// NewLoggingSink returns a Sink that logs through log.
func NewLoggingSink(log *logger.Logger) *LoggingSink {
	return &LoggingSink{log: log, latest: make(map[EventID]EventStatus)}
}

func (s *LoggingSink) Set(event EventID, status EventStatus) {
	s.mu.Lock()
	prev, had := s.latest[event]
	s.latest[event] = status
	s.mu.Unlock()

	if !had || prev != status {
		s.log.Infof("diagnostic event %s -> %s", event, status)
	}
}

// Latest reports the most recently set status for event, for test
// assertions.
func (s *LoggingSink) Latest(event EventID) (EventStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.latest[event]
	return status, ok
}
