// Package serialbus supplies the light-switch frame transport:
// SwitchReceiver never talks to a byte stream directly (spec.md scopes
// "the bit-banging serial transceiver" out of the core), it only drains a
// single-producer-single-consumer mailbox that a tick handler reads at its
// entry. This package is that mailbox, plus a concrete adapter that fills
// it from a real serial line.
package serialbus

import (
	"sync"
	"time"

	"github.com/goburrow/serial"
)

// FrameSource is the frame-transport interface Mailbox implements: Submit
// mirrors submit_frame(bytes[4]) from the external interface, Take drains
// whatever is currently pending (ok=false if nothing arrived since the
// last Take). SwitchReceiver holds a *Mailbox directly, not a FrameSource.
type FrameSource interface {
	Submit(frame [4]byte)
	Take() (frame [4]byte, ok bool)
}

// Mailbox is a single-slot, last-write-wins buffer: a fresh frame always
// overwrites a stale pending one, matching submit_frame's documented
// overwrite semantics. A mutex guards the single slot against the
// producer goroutine (bus reader) and the consumer tick handler running on
// different goroutines; within a tick itself nothing mutates it.
type Mailbox struct {
	mu      sync.Mutex
	pending [4]byte
	hasData bool
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

func (m *Mailbox) Submit(frame [4]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = frame
	m.hasData = true
}

func (m *Mailbox) Take() ([4]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasData {
		return [4]byte{}, false
	}
	frame := m.pending
	m.hasData = false
	return frame, true
}

// LineReader pumps fixed 4-byte frames off a real serial port into a
// Mailbox, following the goburrow/serial Config/Port shape the modbus
// example in the retrieved pack declares as a dependency (that example
// only exercises it indirectly through goburrow/modbus's RTU handler; the
// Config fields below are the package's documented public surface).
type LineReader struct {
	port   serial.Port
	box    *Mailbox
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// LineConfig names the serial port parameters for the light-switch bus.
type LineConfig struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

// NewLineReader opens the serial port described by cfg and returns a
// reader that has not yet started pumping frames; call Start to begin.
func NewLineReader(cfg LineConfig, box *Mailbox) (*LineReader, error) {
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &LineReader{port: port, box: box, stopCh: make(chan struct{})}, nil
}

// Start launches the read pump goroutine.
func (r *LineReader) Start() {
	r.wg.Add(1)
	go r.pump()
}

func (r *LineReader) pump() {
	defer r.wg.Done()
	buf := make([]byte, 4)
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}
		n, err := r.port.Read(buf)
		if err != nil {
			continue
		}
		if n != 4 {
			continue
		}
		var frame [4]byte
		copy(frame[:], buf)
		r.box.Submit(frame)
	}
}

// Close stops the pump and closes the underlying port.
func (r *LineReader) Close() error {
	close(r.stopCh)
	r.wg.Wait()
	return r.port.Close()
}
