// Command flm-ecu runs the Front Light Management ECU. It owns the
// scheduler shell named in spec.md §6 (start/stop/status via process
// lifecycle and signals) — the core safety control plane has no CLI of
// its own.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"flm-ecu/internal/adc"
	"flm-ecu/internal/dio"
	"flm-ecu/internal/diagnostics"
	"flm-ecu/internal/logger"
	"flm-ecu/internal/modemanager"
	"flm-ecu/internal/scheduler"
	"flm-ecu/internal/serialbus"
	"flm-ecu/internal/telemetry"
	"flm-ecu/internal/watchdog"
)

func main() {
	var (
		logLevel     = flag.Int("log-level", int(logger.LogLevelInfo), "log verbosity (0=None .. 4=Debug)")
		serialDevice = flag.String("serial-device", "", "serial device for the light-switch bus; empty runs against an in-memory mailbox only")
		ambientDevice = flag.String("ambient-adc-device", "", "sysfs IIO device name for the ambient-light channel; empty uses a simulated source")
		currentDevice = flag.String("current-adc-device", "", "sysfs IIO device name for the current-sense channel; empty uses a simulated source")
		redisAddr    = flag.String("redis-addr", "", "redis host:port for telemetry publishing; empty disables telemetry")
	)
	flag.Parse()

	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		stdLogger = log.New(os.Stdout, "", 0)
	} else {
		stdLogger = log.New(os.Stdout, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	}
	l := logger.NewLogger(stdLogger, logger.LogLevel(*logLevel))

	box := serialbus.NewMailbox()

	var ambientSource adc.Source
	if *ambientDevice != "" {
		ambientSource = &adc.SysfsIIOSource{Device: *ambientDevice}
	} else {
		ambientSource = adc.NewSimulatedSource()
	}

	var currentSource adc.Source
	if *currentDevice != "" {
		currentSource = &adc.SysfsIIOSource{Device: *currentDevice}
	} else {
		currentSource = adc.NewSimulatedSource()
	}

	var outputWriter dio.Writer
	gpioWriter, err := dio.NewGPIOWriter()
	if err != nil {
		l.Warnf("main: falling back to simulated digital outputs: %v", err)
		outputWriter = dio.NewSimulatedWriter()
	} else {
		outputWriter = gpioWriter
		defer gpioWriter.Close()
	}

	diagSink := diagnostics.NewLoggingSink(l.WithTag("Diagnostics"))
	wd := watchdog.NewInProcess()
	mm := modemanager.NewLoggingManager(l.WithTag("ModeManager"))

	var pub *telemetry.Publisher
	if *redisAddr != "" {
		pub, err = telemetry.NewPublisher(*redisAddr, l.WithTag("Telemetry"))
		if err != nil {
			l.Warnf("main: telemetry disabled: %v", err)
			pub = nil
		} else {
			defer pub.Close()
		}
	}

	sched, err := scheduler.New(scheduler.Config{
		Box:           box,
		AmbientSource: ambientSource,
		CurrentSource: currentSource,
		OutputWriter:  outputWriter,
		Watchdog:      wd,
		ModeManager:   mm,
		Diagnostics:   diagSink,
		Telemetry:     pub,
		Logger:        l,
	})
	if err != nil {
		l.Fatalf("main: failed to construct scheduler: %v", err)
	}

	if *serialDevice != "" {
		reader, err := serialbus.NewLineReader(serialbus.LineConfig{
			Address:  *serialDevice,
			BaudRate: 9600,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
		}, box)
		if err != nil {
			l.Fatalf("main: failed to open serial device %s: %v", *serialDevice, err)
		}
		reader.Start()
		defer reader.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	l.Infof("main: shutting down")
	cancel()
}
