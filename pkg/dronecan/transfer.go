// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import (
	"fmt"
	"time"
)

// Transfer is a fully reassembled DroneCAN transfer.
type Transfer struct {
	Header     FrameHeader
	TransferID uint8
	Payload    []byte
	Timestamp  time.Time
}

// Reassembler collects frames into transfers. Only data types registered
// with RegisterType are assembled; frames for other types return (nil, nil).
//
// One rxSession exists per (source, service flag, data type) tuple, so
// interleaved transfers from different nodes reassemble independently.
type Reassembler struct {
	signatures map[uint32]uint64
	sessions   map[uint32]*rxSession
}

type rxSession struct {
	transferID uint8
	toggle     bool
	payload    []byte
	crc        uint16
	active     bool
}

// NewReassembler creates a reassembler with no registered types.
func NewReassembler() *Reassembler {
	return &Reassembler{
		signatures: make(map[uint32]uint64),
		sessions:   make(map[uint32]*rxSession),
	}
}

// RegisterType subscribes the reassembler to a data type. The signature is
// needed to verify the transfer CRC of multi-frame transfers.
func (r *Reassembler) RegisterType(service bool, typeID uint16, signature uint64) {
	r.signatures[typeKey(service, typeID)] = signature
}

func typeKey(service bool, typeID uint16) uint32 {
	k := uint32(typeID)
	if service {
		k |= 1 << 16
	}
	return k
}

func sessionKey(h FrameHeader) uint32 {
	return typeKey(h.IsService, h.DataTypeID)<<8 | uint32(h.Source)
}

// Accept processes a single frame. It returns a completed transfer, or nil
// if the transfer is incomplete or the frame's data type is not registered.
// Returns an error if reassembly fails; the session is reset and the next
// start-of-transfer frame recovers.
func (r *Reassembler) Accept(f Frame) (*Transfer, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	h := ParseFrameID(f.ID)
	signature, known := r.signatures[typeKey(h.IsService, h.DataTypeID)]
	if !known {
		return nil, nil
	}

	tail := f.Tail()
	payload := f.Payload()

	// Single-frame transfer: no CRC, delivered immediately.
	if tail.Start() && tail.End() {
		if tail.Toggle() {
			return nil, fmt.Errorf("single-frame transfer with toggle set (type %d from node %d)", h.DataTypeID, h.Source)
		}
		delete(r.sessions, sessionKey(h))
		out := make([]byte, len(payload))
		copy(out, payload)
		return &Transfer{
			Header:     h,
			TransferID: tail.TransferID(),
			Payload:    out,
			Timestamp:  time.Now(),
		}, nil
	}

	key := sessionKey(h)
	s := r.sessions[key]
	if s == nil {
		s = &rxSession{}
		r.sessions[key] = s
	}

	if tail.Start() {
		// First frame carries the transfer CRC in its first two bytes.
		if tail.Toggle() {
			return nil, fmt.Errorf("start-of-transfer frame with toggle set (type %d from node %d)", h.DataTypeID, h.Source)
		}
		if len(payload) < 2 {
			s.active = false
			return nil, fmt.Errorf("start-of-transfer frame too short for transfer CRC")
		}
		s.active = true
		s.transferID = tail.TransferID()
		s.toggle = false
		s.crc = uint16(payload[0]) | uint16(payload[1])<<8
		s.payload = append(s.payload[:0], payload[2:]...)
		return nil, nil
	}

	// Continuation frame: must match an active session.
	if !s.active {
		// Mid-transfer frame with no start seen; drop silently, the bus
		// may have been joined partway through a transfer.
		return nil, nil
	}
	if tail.TransferID() != s.transferID {
		s.active = false
		return nil, fmt.Errorf("transfer ID changed mid-transfer: got %d, want %d", tail.TransferID(), s.transferID)
	}
	if tail.Toggle() == s.toggle {
		s.active = false
		return nil, fmt.Errorf("toggle bit out of sequence in transfer %d from node %d", s.transferID, h.Source)
	}
	s.toggle = tail.Toggle()

	if len(s.payload)+len(payload) > MaxTransferBytes {
		s.active = false
		return nil, fmt.Errorf("transfer exceeds %d bytes", MaxTransferBytes)
	}
	s.payload = append(s.payload, payload...)

	if !tail.End() {
		return nil, nil
	}

	// Transfer complete - verify CRC.
	s.active = false
	if crc := TransferCRC(signature, s.payload); crc != s.crc {
		return nil, fmt.Errorf("transfer CRC mismatch: expected 0x%04X, got 0x%04X", crc, s.crc)
	}

	out := make([]byte, len(s.payload))
	copy(out, s.payload)
	return &Transfer{
		Header:     h,
		TransferID: s.transferID,
		Payload:    out,
		Timestamp:  time.Now(),
	}, nil
}

// SplitTransfer splits a transfer payload into wire frames under the given
// CAN ID. Payloads up to MaxFramePayload bytes produce a single frame;
// larger ones are prefixed with the transfer CRC and split with alternating
// toggle bits.
func SplitTransfer(id uint32, transferID uint8, signature uint64, payload []byte) ([]Frame, error) {
	if len(payload) > MaxTransferBytes {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxTransferBytes)
	}

	if len(payload) <= MaxFramePayload {
		data := make([]byte, 0, len(payload)+1)
		data = append(data, payload...)
		data = append(data, MakeTail(true, true, false, transferID))
		return []Frame{{ID: id, Data: data}}, nil
	}

	crc := TransferCRC(signature, payload)
	buf := make([]byte, 0, len(payload)+2)
	buf = append(buf, byte(crc), byte(crc>>8))
	buf = append(buf, payload...)

	var frames []Frame
	toggle := false
	for offset := 0; offset < len(buf); {
		n := len(buf) - offset
		if n > MaxFramePayload {
			n = MaxFramePayload
		}
		start := offset == 0
		end := offset+n == len(buf)

		data := make([]byte, 0, n+1)
		data = append(data, buf[offset:offset+n]...)
		data = append(data, MakeTail(start, end, toggle, transferID))
		frames = append(frames, Frame{ID: id, Data: data})

		toggle = !toggle
		offset += n
	}
	return frames, nil
}
