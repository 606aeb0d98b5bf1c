// Package dio implements the digital-output interface named in the
// external interfaces contract: write_channel(id, level). Channel 0 is the
// low-beam relay, channel 1 the high-beam relay, channel 2 is read-only
// feedback and is not writable through this package.
package dio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Channel identifies a writable output line.
type Channel int

const (
	ChannelLowBeam Channel = iota
	ChannelHighBeam
	channelFeedback // read-only, not exposed through Writer
)

// Level is the digital level commanded onto a channel.
type Level int

const (
	LevelLow Level = iota
	LevelHigh
)

// Writer is the dependency-injection seam OutputMonitor writes through.
type Writer interface {
	WriteChannel(ch Channel, level Level) error
}

// SimulatedWriter is an in-memory output line used by tests, recording the
// last level written to each channel.
type SimulatedWriter struct {
	levels map[Channel]Level
}

// NewSimulatedWriter returns a SimulatedWriter with every channel low.
func NewSimulatedWriter() *SimulatedWriter {
	return &SimulatedWriter{levels: make(map[Channel]Level)}
}

func (w *SimulatedWriter) WriteChannel(ch Channel, level Level) error {
	if ch == channelFeedback {
		return fmt.Errorf("dio: channel %d is read-only", ch)
	}
	w.levels[ch] = level
	return nil
}

// LevelOf reports the last level written to ch, for test assertions.
func (w *SimulatedWriter) LevelOf(ch Channel) Level {
	return w.levels[ch]
}

// lineMapping is the declarative chip/line table for the two output
// relays, in the same shape as the reference service's hardware.DoMappings.
var lineMapping = map[Channel]struct {
	Chip int
	Line int
}{
	ChannelLowBeam:  {2, 12},
	ChannelHighBeam: {2, 13},
}

// GPIOWriter drives the two relay lines over a Linux GPIO character
// device, grounded in the reference service's internal/hardware chip/line
// request pattern.
type GPIOWriter struct {
	lines map[Channel]*gpiocdev.Line
	chips map[int]*gpiocdev.Chip
}

// NewGPIOWriter opens a chip and requests an output line for each of the
// writable channels, initialised low.
func NewGPIOWriter() (*GPIOWriter, error) {
	w := &GPIOWriter{
		lines: make(map[Channel]*gpiocdev.Line),
		chips: make(map[int]*gpiocdev.Chip),
	}
	for ch, mapping := range lineMapping {
		chip, ok := w.chips[mapping.Chip]
		if !ok {
			var err error
			chip, err = gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", mapping.Chip))
			if err != nil {
				w.Close()
				return nil, fmt.Errorf("dio: open chip %d: %w", mapping.Chip, err)
			}
			w.chips[mapping.Chip] = chip
		}
		line, err := chip.RequestLine(mapping.Line, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("flm-ecu"))
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("dio: request line %d on chip %d: %w", mapping.Line, mapping.Chip, err)
		}
		w.lines[ch] = line
	}
	return w, nil
}

func (w *GPIOWriter) WriteChannel(ch Channel, level Level) error {
	line, ok := w.lines[ch]
	if !ok {
		return fmt.Errorf("dio: channel %d is not writable", ch)
	}
	v := 0
	if level == LevelHigh {
		v = 1
	}
	return line.SetValue(v)
}

// Close releases every requested line and chip.
func (w *GPIOWriter) Close() error {
	var firstErr error
	for _, line := range w.lines {
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, chip := range w.chips {
		if err := chip.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
