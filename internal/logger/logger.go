// Package logger provides the tagged, leveled logger every FLM-ECU
// component is constructed with. Tags follow the component names in the
// scheduler's tick bands (SwitchReceiver, AmbientSensor, FlmController,
// OutputMonitor, SafetyAggregator, ...), so a single log stream can be
// filtered per band without a structured-logging dependency.
package logger

import (
	"fmt"
	"log"
	"strconv"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

type Logger struct {
	logger *log.Logger
	level  LogLevel
	tag    string

	// A component's Warnf/Errorf is typically called from inside its own
	// tick routine for as long as a fault condition holds - a sustained
	// E2E-invalid or open-load condition would otherwise write the
	// identical line once per 10ms/20ms tick for the whole time the fault
	// is latched. lastWarn/lastError collapse an unbroken run of identical
	// messages at the same level into one line plus a repeat count, only
	// flushed when the message changes (a run still in progress when the
	// process exits is not flushed).
	lastWarn     string
	warnRepeats  int
	lastError    string
	errorRepeats int
}

func NewLogger(logger *log.Logger, level LogLevel) *Logger {
	return &Logger{
		logger: logger,
		level:  level,
		tag:    "",
	}
}

// WithTag creates a new logger with a tag prefix, one per component
// instance the scheduler constructs. The returned logger starts with its
// own empty repeat-collapse state, since a sustained fault in one
// component must never suppress the first occurrence of an unrelated
// fault logged under a different tag.
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{
		logger: l.logger,
		level:  l.level,
		tag:    tag,
	}
}

// Enabled reports whether a call at level would actually be written. Tick
// handlers that assemble an expensive diagnostic string (a full snapshot
// dump, say) under a 3-5ms deadline budget should guard on this first
// rather than format-then-discard.
func (l *Logger) Enabled(level LogLevel) bool {
	return l.level >= level
}

// collapse reports whether msg should be suppressed as a repeat of the
// last message logged at this level, updating the tracked last-message
// and repeat-count. On a transition away from a run of repeats it returns
// the flush line to print ahead of msg, or "" if there was no run to
// flush.
func collapse(last *string, repeats *int, msg string) (flush string, suppress bool) {
	if msg == *last {
		*repeats++
		return "", true
	}
	if *repeats > 0 {
		flush = "(previous line repeated " + strconv.Itoa(*repeats) + " more times)"
	}
	*last = msg
	*repeats = 0
	return flush, false
}

func (l *Logger) formatMessage(level string, format string) string {
	if l.tag != "" {
		if level != "" {
			return "[" + l.tag + "] " + level + " " + format
		}
		return "[" + l.tag + "] " + format
	}
	if level != "" {
		return level + " " + format
	}
	return format
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.logger.Printf(l.formatMessage("DEBUG:", format), v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.logger.Printf(l.formatMessage("", format), v...)
	}
}

// Warnf logs a warning, collapsing an unbroken run of identical messages
// (e.g. a component re-reporting the same degraded condition on every
// tick) into a single repeat count instead of one line per tick.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.level < LogLevelWarning {
		return
	}
	msg := fmt.Sprintf(format, v...)
	flush, suppress := collapse(&l.lastWarn, &l.warnRepeats, msg)
	if flush != "" {
		l.logger.Print(l.formatMessage("WARN:", flush))
	}
	if suppress {
		return
	}
	l.logger.Print(l.formatMessage("WARN:", msg))
}

// Errorf logs a component-local fault, with the same repeat-collapsing as
// Warnf. It does not by itself raise a diagnostics event or drive the
// safety latch — components report faults to diagnostics.Sink and
// SafetyAggregator explicitly; this is the human-readable trail alongside
// that.
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.level < LogLevelError {
		return
	}
	msg := fmt.Sprintf(format, v...)
	flush, suppress := collapse(&l.lastError, &l.errorRepeats, msg)
	if flush != "" {
		l.logger.Print(l.formatMessage("ERROR:", flush))
	}
	if suppress {
		return
	}
	l.logger.Print(l.formatMessage("ERROR:", msg))
}

// Fatalf logs unconditionally and terminates the process. Reserved for
// startup failures (bad wiring, a definition that fails to build) before
// the scheduler's tick loop is running; nothing in the tick path should
// ever call it, since an ASIL component degrades or latches safe instead
// of exiting.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(l.formatMessage("FATAL:", format), v...)
}
