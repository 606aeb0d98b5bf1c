// Package scheduler is the top-level task scheduler: a cooperative,
// single-threaded fixed-tick dispatcher that owns every component and
// runs them to completion in declared order, per spec.md §5. The
// scheduler itself is named as an external collaborator outside the core
// safety control plane (spec.md §1), the same way the reference service's
// cmd/main.go and internal/core.Start() sit outside the FSM definition
// they drive — this package is that outer wiring layer.
package scheduler

import (
	"context"
	"time"

	"flm-ecu/internal/adc"
	"flm-ecu/internal/ambientsensor"
	"flm-ecu/internal/config"
	"flm-ecu/internal/diagnostics"
	"flm-ecu/internal/dio"
	"flm-ecu/internal/flmcontroller"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/modemanager"
	"flm-ecu/internal/outputmonitor"
	"flm-ecu/internal/safetyaggregator"
	"flm-ecu/internal/serialbus"
	"flm-ecu/internal/switchreceiver"
	"flm-ecu/internal/telemetry"
	"flm-ecu/internal/types"
	"flm-ecu/internal/watchdog"
)

// Scheduler ties every component together and drives the three tick
// bands (5ms/10ms/20ms) off a single 1ms system tick.
type Scheduler struct {
	log *logger.Logger

	switchRx  *switchreceiver.Receiver
	ambient   *ambientsensor.Sensor
	flm       *flmcontroller.Controller
	output    *outputmonitor.Monitor
	aggregator *safetyaggregator.Aggregator

	watchdog watchdog.Client
	telemetry *telemetry.Publisher // nil when running without Redis

	latest struct {
		switchReport types.SwitchReport
		ambient      types.AmbientReading
		flmSnapshot  types.FLMSnapshot
		output       types.OutputSnapshot
		safety       types.SafetySnapshot
	}

	tickCount uint64
}

// Config gathers the adapters the scheduler wires components through.
type Config struct {
	Box            *serialbus.Mailbox
	AmbientSource  adc.Source
	CurrentSource  adc.Source
	OutputWriter   dio.Writer
	Watchdog       watchdog.Client
	ModeManager    modemanager.Manager
	Diagnostics    diagnostics.Sink
	Telemetry      *telemetry.Publisher
	Logger         *logger.Logger
}

// New constructs every component and wires them through cfg's adapters.
func New(cfg Config) (*Scheduler, error) {
	s := &Scheduler{
		log:       cfg.Logger,
		watchdog:  cfg.Watchdog,
		telemetry: cfg.Telemetry,
	}

	s.switchRx = switchreceiver.New(cfg.Box, cfg.Diagnostics, cfg.Logger.WithTag("SwitchReceiver"))
	s.ambient = ambientsensor.New(cfg.AmbientSource, cfg.Diagnostics, cfg.Logger.WithTag("AmbientSensor"))

	flm, err := flmcontroller.New(cfg.Logger.WithTag("FlmController"))
	if err != nil {
		return nil, err
	}
	s.flm = flm

	s.output = outputmonitor.New(cfg.OutputWriter, cfg.CurrentSource, cfg.Diagnostics, cfg.Logger.WithTag("OutputMonitor"))

	agg, err := safetyaggregator.New(cfg.ModeManager, cfg.Diagnostics, cfg.Logger.WithTag("SafetyAggregator"))
	if err != nil {
		return nil, err
	}
	s.aggregator = agg

	if err := s.ambient.Start(); err != nil {
		return nil, err
	}
	if err := s.output.Start(); err != nil {
		return nil, err
	}

	return s, nil
}

// Run drives the 1ms system tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(config.SystemTickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickCount++
			s.dispatch()
		}
	}
}

// dispatch runs one 1ms system tick, invoking each band whose period
// divides the elapsed tick count. The 5ms band runs first so it always
// observes the snapshots published at the end of the previous tick, never
// the ones the 10ms/20ms bands are about to publish later in this same
// system tick — the ordering guarantee spec.md §5 calls out explicitly.
func (s *Scheduler) dispatch() {
	if s.tickCount%uint64(config.SafetyAggregatorPeriod/config.SystemTickPeriod) == 0 {
		s.runFiveMsBand()
	}
	if s.tickCount%uint64(config.SwitchReceiverPeriod/config.SystemTickPeriod) == 0 {
		s.runTenMsBand()
	}
	if s.tickCount%uint64(config.AmbientSensorPeriod/config.SystemTickPeriod) == 0 {
		s.runTwentyMsBand()
	}
}

func (s *Scheduler) runTenMsBand() {
	s.watchdog.CheckpointReached("SwitchReceiver", "tick")
	s.latest.switchReport = s.switchRx.Tick()
	if s.telemetry != nil {
		s.telemetry.PublishSwitch(s.latest.switchReport)
	}

	s.watchdog.CheckpointReached("FlmController", "tick")
	externalSafeTrigger := s.aggregator.Latched()
	s.latest.flmSnapshot = s.flm.Tick(s.latest.switchReport, s.latest.ambient, externalSafeTrigger)
	if s.telemetry != nil {
		s.telemetry.PublishFLM(s.latest.flmSnapshot)
	}

	s.watchdog.CheckpointReached("OutputMonitor", "tick")
	s.latest.output = s.output.Tick(s.latest.flmSnapshot.Command)
	if s.telemetry != nil {
		s.telemetry.PublishOutput(s.latest.output)
	}
}

func (s *Scheduler) runTwentyMsBand() {
	s.watchdog.CheckpointReached("AmbientSensor", "tick")
	s.latest.ambient = s.ambient.Tick()
	if s.telemetry != nil {
		s.telemetry.PublishAmbient(s.latest.ambient)
	}
}

func (s *Scheduler) runFiveMsBand() {
	s.watchdog.CheckpointReached("SafetyAggregator", "tick")

	wasLatched := s.aggregator.Latched()
	safety := s.aggregator.Tick(safetyaggregator.Inputs{
		SwitchValid:    s.latest.switchReport.Valid,
		AmbientValid:   s.latest.ambient.Valid,
		AmbientReading: s.latest.ambient,
		E2ESupervisor:  s.latest.switchReport.SupervisorState,
		FLMState:       s.latest.flmSnapshot.State,
		OutputFault:    s.latest.output.Fault,
		Watchdog:       s.watchdog,
	})
	s.latest.safety = safety

	if safety.SafeLatched && !wasLatched {
		s.flm.TriggerSafe()
	}

	if s.telemetry != nil {
		s.telemetry.PublishSafety(safety, safety.SafeLatched && !wasLatched)
	}
}

// SubmitFrame exposes the external inbound-frame entry point to the
// serial transport.
func (s *Scheduler) SubmitFrame(bytes [4]byte) {
	s.switchRx.SubmitFrame(bytes)
}
