// Package e2e implements AUTOSAR E2E Profile 01 style end-to-end message
// protection: a CRC-8 plus a 4-bit monotonic counter that lets a receiver
// detect corruption, loss, reordering and stale repetition of a periodic
// message. This is a direct Go port of the original AUTOSAR
// E2E_P01.cpp/.h primitives, trimmed to the fixed 4-byte light-switch
// frame layout this system actually uses.
package e2e

import (
	"encoding/binary"
	"fmt"

	"flm-ecu/internal/config"
	"flm-ecu/internal/types"
)

// FrameLength is the fixed wire size of the light-switch message.
const FrameLength = 4

// ProtectState is the sender-side counter. Exercised by the test corpus
// that synthesizes valid/corrupted frames for the checker (see
// SPEC_FULL.md supplement C.4); this system has no sender component of its
// own.
type ProtectState struct {
	Counter uint8
}

// Protect stamps frame with the next counter value and a freshly computed
// CRC, advancing state. frame must be FrameLength bytes; byte 0 is CRC,
// byte 1's low nibble is the counter, bytes 2-3 are payload/reserved.
func Protect(dataID uint16, state *ProtectState, frame []byte) error {
	if state == nil || frame == nil {
		return fmt.Errorf("e2e: nil state or frame")
	}
	if len(frame) != FrameLength {
		return fmt.Errorf("e2e: frame must be %d bytes, got %d", FrameLength, len(frame))
	}

	frame[1] = (frame[1] &^ 0x0F) | (state.Counter & 0x0F)

	crc := crcOverFrame(dataID, frame)
	frame[0] = crc

	state.Counter++
	if state.Counter > config.CounterMax {
		state.Counter = 0
	}
	return nil
}

// crcOverFrame computes the CRC-8 over the DataID (big-endian) followed by
// the frame's payload bytes, skipping the CRC byte itself (byte 0).
func crcOverFrame(dataID uint16, frame []byte) uint8 {
	var idBytes [2]byte
	binary.BigEndian.PutUint16(idBytes[:], dataID)

	crc := CalculateCRC8(idBytes[:], config.CRC8Initial)
	crc = CalculateCRC8(frame[1:], crc)
	return crc ^ config.CRC8XorOut
}

// CheckState is the receiver-side state maintained across ticks.
type CheckState struct {
	LastValidCounter        uint8
	WaitForFirstData        bool
	NewDataAvailable        bool
	LostData                uint16
	LastStatus              types.E2ECheckStatus
	NoNewOrRepeatedDataCounter uint16
}

// NewCheckState returns a freshly initialised receiver state.
func NewCheckState() *CheckState {
	return &CheckState{WaitForFirstData: true}
}

// NoData advances state's no-new-data bookkeeping for a tick in which no
// frame was pending, returning E2ENoNewData once
// SwitchFrameMaxNoNewOrRepeatedData consecutive empty ticks have elapsed,
// and the zero status otherwise (the caller should treat a zero return as
// "no check performed this tick" and leave the supervisor state alone,
// rather than feeding it a status).
func NoData(state *CheckState) (types.E2ECheckStatus, bool) {
	state.NoNewOrRepeatedDataCounter++
	if state.NoNewOrRepeatedDataCounter >= config.SwitchFrameMaxNoNewOrRepeatedData {
		state.LastStatus = types.E2ENoNewData
		return types.E2ENoNewData, true
	}
	return 0, false
}

// Check validates a received frame against state, returning the check
// status and mutating state per the E2E Profile 01 rules.
func Check(dataID uint16, state *CheckState, frame []byte) types.E2ECheckStatus {
	if len(frame) != FrameLength {
		state.LastStatus = types.E2EWrongCrc
		return types.E2EWrongCrc
	}

	receivedCRC := frame[0]
	expectedCRC := crcOverFrame(dataID, frame)
	if receivedCRC != expectedCRC {
		state.LastStatus = types.E2EWrongCrc
		return types.E2EWrongCrc
	}

	state.NoNewOrRepeatedDataCounter = 0
	receivedCounter := frame[1] & 0x0F

	if state.WaitForFirstData {
		state.WaitForFirstData = false
		state.LastValidCounter = receivedCounter
		state.LastStatus = types.E2EInitial
		return types.E2EInitial
	}

	delta := counterDelta(receivedCounter, state.LastValidCounter)

	var status types.E2ECheckStatus
	switch {
	case delta == 0:
		status = types.E2ERepeated
	case delta == 1:
		status = types.E2EOk
		state.LastValidCounter = receivedCounter
	case delta <= uint8(config.SwitchFrameMaxDeltaCounter):
		status = types.E2EOkSomeLost
		state.LostData += uint16(delta - 1)
		state.LastValidCounter = receivedCounter
	default:
		status = types.E2EWrongSequence
	}

	state.LastStatus = status
	return status
}

// counterDelta computes the forward distance from last to received under
// the 4-bit counter's wrap-at-15 arithmetic (value 15 is reserved, so the
// wrap adds 15, not 16).
func counterDelta(received, last uint8) uint8 {
	if received >= last {
		return received - last
	}
	return config.CounterWrap - last + received
}
