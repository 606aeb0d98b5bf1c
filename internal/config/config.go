// Package config holds the compile-time safety constants from the system's
// external interface contract. These are not operator-tunable: changing
// any of them is a safety-case change, not a deployment parameter, so they
// stay as Go constants rather than flags or a config file.
package config

import "time"

// Tick periods for the three scheduling bands (see the concurrency model).
const (
	SystemTickPeriod     = 1 * time.Millisecond
	SafetyAggregatorPeriod = 5 * time.Millisecond
	SwitchReceiverPeriod   = 10 * time.Millisecond
	FlmControllerPeriod    = 10 * time.Millisecond
	OutputMonitorPeriod    = 10 * time.Millisecond
	AmbientSensorPeriod    = 20 * time.Millisecond
)

// Per-band deadline budgets for a tick handler (5ms band, 10ms band).
// Nothing in this tree measures handler run time against them, so an
// overrun is neither detected nor reported as a fault.
const (
	FiveMsDeadline = 5 * time.Millisecond
	TenMsDeadline  = 3 * time.Millisecond
)

// E2E Profile 01 wire parameters for the light-switch message, arbitration
// id 0x200.
const (
	SwitchFrameDataID         uint16 = 0x0100
	SwitchFrameMaxDeltaCounter uint8  = 2
	SwitchFrameMaxNoNewOrRepeatedData uint16 = 5

	CRC8Polynomial uint8 = 0x1D
	CRC8Initial    uint8 = 0xFF
	CRC8XorOut     uint8 = 0xFF

	CounterMax  uint8 = 14
	CounterWrap uint8 = 15
)

// E2E supervisor sliding-window thresholds. Not given numerically in the
// distilled spec; carried over from the original source's concrete wiring
// for the switch-command check (see DESIGN.md).
const (
	MinOkStateInit     uint8 = 2
	MaxErrorStateInit  uint8 = 2
	MinOkStateValid    uint8 = 2
	MinOkStateInvalid  uint8 = 3
	MaxErrorStateValid uint8 = 2
	MaxErrorStateInvalid uint8 = 3
)

// FrameTimeoutCycles is the number of SwitchReceiver ticks without a
// pending frame before the independent timeout flag raises: 50ms / 10ms.
const FrameTimeoutCycles = 5

// AmbientSensor constants.
const (
	AdcSamples            = 4
	OpenCircuitThreshold  = 100
	ShortCircuitThreshold = 3995
	RateCheckCycles       = 5
	RateLimit             = 500
	PlausibilityDebounce  = 3
)

// FlmController constants.
const (
	MaxConsecutiveErrors = 3
	AmbientThresholdOn   = 800
	AmbientThresholdOff  = 1000
)

// OutputMonitor constants.
const (
	ScaleFactor          = 10
	FaultDetectWindow    = 20 * time.Millisecond
	OpenLoadThresholdMA  = 50
	MinOnCurrentMA       = 100
	OvercurrentThresholdMA = 15000
	// FaultConfirmCycles = FaultDetectWindow / TickPeriod, 10ms tick.
	FaultConfirmCycles = int(FaultDetectWindow / OutputMonitorPeriod)
)

// SafetyAggregator constants.
const (
	FTTI                    = 200 * time.Millisecond
	SafeStateTransitionTime = 100 * time.Millisecond
	E2eTimeout              = 100 * time.Millisecond
	FrameTimeout            = 50 * time.Millisecond
	MaxFaultCount           = 3
	DayThreshold            = 1500
)

// DegradedSafeTimeout is the FTTI-aware timeout FlmController uses to force
// Degraded -> Safe: FTTI - SafeStateTransitionTime.
const DegradedSafeTimeout = FTTI - SafeStateTransitionTime

// Tick-counted equivalents of the duration constants above. The scheduler
// is cooperative and fixed-tick, not wall-clock driven: every timeout a
// component enforces against its own state is counted in ticks of that
// component's own period, matching how the original source advances a
// simulated SystemTime by its main-function period rather than sampling a
// real clock.
const (
	// DegradedSafeTicks is DegradedSafeTimeout in FlmController ticks.
	DegradedSafeTicks = int(DegradedSafeTimeout / FlmControllerPeriod)
	// FTTITicks is FTTI in SafetyAggregator ticks.
	FTTITicks = int(FTTI / SafetyAggregatorPeriod)
	// E2eTimeoutTicks is E2eTimeout in SafetyAggregator ticks.
	E2eTimeoutTicks = int(E2eTimeout / SafetyAggregatorPeriod)
)

func init() {
	// Compile-time-equivalent sanity checks the original source enforced
	// with static_assert. Panicking here at package init catches a
	// misconfigured build before any tick ever runs, the same place the
	// original caught it at compile time.
	if DegradedSafeTimeout <= 0 || DegradedSafeTimeout > FTTI {
		panic("config: degraded->safe timeout must lie within FTTI")
	}
	if E2eTimeout >= FTTI {
		panic("config: E2E timeout must be less than FTTI")
	}
	if FrameTimeout >= E2eTimeout {
		panic("config: frame timeout must be less than E2E timeout")
	}
	if AmbientThresholdOn >= AmbientThresholdOff {
		panic("config: ambient on-threshold must be below off-threshold")
	}
	if OpenLoadThresholdMA >= OvercurrentThresholdMA {
		panic("config: open-load threshold must be below overcurrent threshold")
	}
}
