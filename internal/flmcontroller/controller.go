// Package flmcontroller implements the FlmController component: per
// spec.md §4.3, it runs the Init/Normal/Degraded/Safe machine and, in
// Normal/Degraded, translates the switch command into a headlight
// command. Ticks every 10ms.
package flmcontroller

import (
	"context"
	"time"

	"github.com/librescoot/librefsm"

	"flm-ecu/internal/config"
	"flm-ecu/internal/flmfsm"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/types"
)

var _ flmfsm.Actions = (*Controller)(nil)

// Controller owns the sole copy of FlmController's state.
type Controller struct {
	log     *logger.Logger
	machine *librefsm.Machine

	stateEnteredAt time.Time
	command        types.HeadlightCommand
	lightsOn       bool

	consecutiveErrors int
	ticksInDegraded   int
	safeTriggered     bool
}

// New builds and starts the FlmController's FSM.
func New(log *logger.Logger) (*Controller, error) {
	c := &Controller{log: log}
	def := flmfsm.NewDefinition(c)
	machine, err := def.Build()
	if err != nil {
		return nil, err
	}
	c.machine = machine
	if err := machine.Start(context.Background()); err != nil {
		return nil, err
	}
	c.stateEnteredAt = time.Now()
	return c, nil
}

// Tick runs one 10ms cycle given the freshest switch report and ambient
// reading, and the level-checked external safe-state trigger sampled at
// the top of the tick.
func (c *Controller) Tick(switchReport types.SwitchReport, ambient types.AmbientReading, externalSafeTrigger bool) types.FLMSnapshot {
	if externalSafeTrigger && !c.safeTriggered {
		c.triggerSafe()
	}

	allValid := switchReport.Valid && ambient.Valid
	anyInvalid := !switchReport.Valid || !ambient.Valid

	switch c.machine.CurrentState() {
	case flmfsm.StateInit:
		if allValid {
			c.sendEvent(flmfsm.EventInputsValid)
		}
	case flmfsm.StateNormal:
		if anyInvalid {
			c.consecutiveErrors++
			if c.consecutiveErrors >= config.MaxConsecutiveErrors {
				c.sendEvent(flmfsm.EventMaxErrors)
			}
		} else {
			c.consecutiveErrors = 0
		}
	case flmfsm.StateDegraded:
		if allValid {
			c.ticksInDegraded = 0
			c.sendEvent(flmfsm.EventRestored)
		} else {
			c.ticksInDegraded++
			// Strict greater-than retains the original source's off-by-one:
			// the transition lands one tick after the nominal FTTI-aware
			// deadline.
			if c.ticksInDegraded > config.DegradedSafeTicks {
				c.sendEvent(flmfsm.EventDegradedTimeout)
			}
		}
	case flmfsm.StateSafe:
		// absorbing, no recovery this power cycle.
	}

	c.command = c.computeCommand(switchReport, ambient)

	return types.FLMSnapshot{
		State:             stateIDToFLMState(c.machine.CurrentState()),
		Command:           c.command,
		LightsCurrentlyOn: c.lightsOn,
		StateEnteredAt:    c.stateEnteredAt,
	}
}

// TriggerSafe is called by the scheduler when SafetyAggregator raises the
// shared safe-state flag; it forces the transition regardless of current
// state.
func (c *Controller) TriggerSafe() {
	c.triggerSafe()
}

func (c *Controller) triggerSafe() {
	c.safeTriggered = true
	c.sendEvent(flmfsm.EventSafeTrigger)
}

func (c *Controller) sendEvent(event librefsm.EventID) {
	if err := c.machine.SendSync(librefsm.Event{ID: event}); err != nil {
		c.log.Debugf("fsm: event %s rejected from state %s: %v", event, c.machine.CurrentState(), err)
	}
}

func (c *Controller) computeCommand(switchReport types.SwitchReport, ambient types.AmbientReading) types.HeadlightCommand {
	switch c.machine.CurrentState() {
	case flmfsm.StateInit:
		return types.HeadlightOff
	case flmfsm.StateSafe:
		if !ambient.Valid {
			// Fail-visible: a stranded dark road is more dangerous than
			// a bright one.
			c.lightsOn = true
			return types.HeadlightLowBeam
		}
		if ambient.Filtered < config.AmbientThresholdOn {
			c.lightsOn = true
			return types.HeadlightLowBeam
		}
		c.lightsOn = false
		return types.HeadlightOff
	default: // Normal, Degraded
		useAuto := switchReport.Command == types.SwitchAuto ||
			(c.machine.CurrentState() == flmfsm.StateDegraded && !switchReport.Valid)

		if useAuto {
			return c.autoModeCommand(ambient)
		}

		switch switchReport.Command {
		case types.SwitchOff:
			c.lightsOn = false
			return types.HeadlightOff
		case types.SwitchLowBeam:
			c.lightsOn = true
			return types.HeadlightLowBeam
		case types.SwitchHighBeam:
			c.lightsOn = true
			return types.HeadlightHighBeam
		default:
			// Unrecognised code: retain the previous headlight command.
			return c.command
		}
	}
}

func (c *Controller) autoModeCommand(ambient types.AmbientReading) types.HeadlightCommand {
	if !c.lightsOn {
		if ambient.Filtered < config.AmbientThresholdOn {
			c.lightsOn = true
		}
	} else {
		if ambient.Filtered > config.AmbientThresholdOff {
			c.lightsOn = false
		}
	}
	if c.lightsOn {
		return types.HeadlightLowBeam
	}
	return types.HeadlightOff
}

func stateIDToFLMState(id librefsm.StateID) types.FLMState {
	switch id {
	case flmfsm.StateInit:
		return types.FLMInit
	case flmfsm.StateNormal:
		return types.FLMNormal
	case flmfsm.StateDegraded:
		return types.FLMDegraded
	case flmfsm.StateSafe:
		return types.FLMSafe
	default:
		return types.FLMInit
	}
}

// --- flmfsm.Actions ---

func (c *Controller) OnEnterNormal(ctx *librefsm.Context) error {
	c.stateEnteredAt = time.Now()
	c.consecutiveErrors = 0
	c.log.Infof("fsm: entered Normal")
	return nil
}

func (c *Controller) OnEnterDegraded(ctx *librefsm.Context) error {
	c.stateEnteredAt = time.Now()
	c.ticksInDegraded = 0
	c.log.Warnf("fsm: entered Degraded")
	return nil
}

func (c *Controller) OnEnterSafe(ctx *librefsm.Context) error {
	c.stateEnteredAt = time.Now()
	c.log.Errorf("fsm: entered Safe")
	return nil
}

func (c *Controller) OnExitDegraded(ctx *librefsm.Context) error {
	return nil
}
