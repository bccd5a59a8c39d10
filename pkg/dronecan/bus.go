// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import "fmt"

// FrameIO is the adapter interface the bus speaks through: an SLCAN serial
// link, a websocket bridge, or an in-memory loopback in tests.
type FrameIO interface {
	ReadFrame() (Frame, error)
	WriteFrame(Frame) error
	Close() error
}

// Bus binds a FrameIO to transfer assembly and splitting, and allocates
// outbound transfer IDs. Not safe for concurrent use; callers serialize
// through one goroutine (the panel event loop does this naturally).
type Bus struct {
	io     FrameIO
	selfID uint8
	reasm  *Reassembler
	txIDs  map[uint32]uint8
}

// NewBus creates a bus with the given self node ID. The standard data
// types are pre-registered on the reassembler.
func NewBus(io FrameIO, selfID uint8) *Bus {
	r := NewReassembler()
	r.RegisterType(false, TypeNodeStatus, SignatureNodeStatus)
	r.RegisterType(false, TypeLogMessage, SignatureLogMessage)
	r.RegisterType(true, ServiceParamGetSet, SignatureParamGetSet)

	return &Bus{
		io:     io,
		selfID: selfID,
		reasm:  r,
		txIDs:  make(map[uint32]uint8),
	}
}

// SelfID returns the bus's own node ID.
func (b *Bus) SelfID() uint8 {
	return b.selfID
}

// Close closes the underlying frame transport.
func (b *Bus) Close() error {
	return b.io.Close()
}

// Receive reads one frame and feeds it to the reassembler. Returns a
// completed transfer, or nil if more frames are needed or the frame's type
// is not registered. Blocks on the underlying transport.
func (b *Bus) Receive() (*Transfer, error) {
	frame, err := b.io.ReadFrame()
	if err != nil {
		return nil, err
	}
	return b.reasm.Accept(frame)
}

// RequestGetSet sends a param.GetSet request to the destination node,
// fire-and-forget. The done callback, if non-nil, is invoked with the
// submission outcome once all frames are written.
func (b *Bus) RequestGetSet(dest uint8, req GetSetRequest, done func(error)) error {
	payload, err := req.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode GetSet request: %w", err)
	}

	id := ServiceFrameID(DefaultPriority, ServiceParamGetSet, true, dest, b.selfID)
	err = b.send(id, SignatureParamGetSet, payload)
	if done != nil {
		done(err)
	}
	return err
}

// BroadcastNodeStatus publishes this tool's own NodeStatus.
func (b *Bus) BroadcastNodeStatus(status NodeStatus) error {
	id := MessageFrameID(DefaultPriority, TypeNodeStatus, b.selfID)
	return b.send(id, SignatureNodeStatus, EncodeNodeStatus(status))
}

func (b *Bus) send(id uint32, signature uint64, payload []byte) error {
	tid := b.txIDs[id]
	b.txIDs[id] = (tid + 1) & TransferIDMax

	frames, err := SplitTransfer(id, tid, signature, payload)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := b.io.WriteFrame(f); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
	}
	return nil
}
