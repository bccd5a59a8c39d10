// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import (
	"bytes"
	"strings"
	"testing"
)

func newTestReassembler() *Reassembler {
	r := NewReassembler()
	r.RegisterType(false, TypeNodeStatus, SignatureNodeStatus)
	r.RegisterType(false, TypeLogMessage, SignatureLogMessage)
	r.RegisterType(true, ServiceParamGetSet, SignatureParamGetSet)
	return r
}

// feed runs frames through the reassembler, failing on any error, and
// returns the last completed transfer.
func feed(t *testing.T, r *Reassembler, frames []Frame) *Transfer {
	t.Helper()
	var out *Transfer
	for i, f := range frames {
		transfer, err := r.Accept(f)
		if err != nil {
			t.Fatalf("Frame %d: %v", i, err)
		}
		if transfer != nil {
			out = transfer
		}
	}
	return out
}

// ============================================================
// Split Tests
// ============================================================

func TestSplitTransfer_SingleFrame(t *testing.T) {
	id := MessageFrameID(DefaultPriority, TypeNodeStatus, 42)
	payload := EncodeNodeStatus(NodeStatus{UptimeSec: 99})

	frames, err := SplitTransfer(id, 3, SignatureNodeStatus, payload)
	if err != nil {
		t.Fatalf("SplitTransfer: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	tail := frames[0].Tail()
	if !tail.Start() || !tail.End() || tail.Toggle() || tail.TransferID() != 3 {
		t.Errorf("Tail wrong: 0x%02X", byte(tail))
	}
	if !bytes.Equal(frames[0].Payload(), payload) {
		t.Error("Single-frame payload should carry no CRC prefix")
	}
}

func TestSplitTransfer_MultiFrame(t *testing.T) {
	id := MessageFrameID(DefaultPriority, TypeLogMessage, 42)
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i)
	}

	frames, err := SplitTransfer(id, 7, SignatureLogMessage, payload)
	if err != nil {
		t.Fatalf("SplitTransfer: %v", err)
	}
	// 2 CRC bytes + 20 payload bytes over 7-byte slots = 4 frames.
	if len(frames) != 4 {
		t.Fatalf("Expected 4 frames, got %d", len(frames))
	}

	first, last := frames[0].Tail(), frames[len(frames)-1].Tail()
	if !first.Start() || first.End() || first.Toggle() {
		t.Errorf("First tail wrong: 0x%02X", byte(first))
	}
	if last.Start() || !last.End() {
		t.Errorf("Last tail wrong: 0x%02X", byte(last))
	}
	for i, f := range frames {
		tail := f.Tail()
		if tail.TransferID() != 7 {
			t.Errorf("Frame %d: transfer ID %d", i, tail.TransferID())
		}
		if tail.Toggle() != (i%2 == 1) {
			t.Errorf("Frame %d: toggle %v", i, tail.Toggle())
		}
	}

	crc := TransferCRC(SignatureLogMessage, payload)
	p0 := frames[0].Payload()
	if uint16(p0[0])|uint16(p0[1])<<8 != crc {
		t.Error("Transfer CRC not in first two bytes")
	}
}

func TestSplitTransfer_TooLarge(t *testing.T) {
	if _, err := SplitTransfer(0, 0, 0, make([]byte, MaxTransferBytes+1)); err == nil {
		t.Error("Oversize payload should fail")
	}
}

// ============================================================
// Reassembly Tests
// ============================================================

func TestReassembler_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"empty payload", 0},
		{"single frame", 7},
		{"two frames", 8},
		{"many frames", 83},
		{"max size", MaxTransferBytes},
	}

	id := MessageFrameID(DefaultPriority, TypeLogMessage, 42)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]byte, tt.size)
			for i := range payload {
				payload[i] = byte(i * 7)
			}
			frames, err := SplitTransfer(id, 5, SignatureLogMessage, payload)
			if err != nil {
				t.Fatalf("SplitTransfer: %v", err)
			}

			transfer := feed(t, newTestReassembler(), frames)
			if transfer == nil {
				t.Fatal("No transfer completed")
			}
			if !bytes.Equal(transfer.Payload, payload) {
				t.Error("Payload mismatch after reassembly")
			}
			if transfer.TransferID != 5 || transfer.Header.Source != 42 {
				t.Errorf("Transfer metadata wrong: %+v", transfer)
			}
		})
	}
}

func TestReassembler_UnregisteredType(t *testing.T) {
	r := NewReassembler() // nothing registered
	f := Frame{
		ID:   MessageFrameID(DefaultPriority, TypeNodeStatus, 1),
		Data: []byte{1, 2, 3, MakeTail(true, true, false, 0)},
	}
	transfer, err := r.Accept(f)
	if transfer != nil || err != nil {
		t.Errorf("Unregistered type should be ignored: %+v, %v", transfer, err)
	}
}

func TestReassembler_CRCMismatch(t *testing.T) {
	id := MessageFrameID(DefaultPriority, TypeLogMessage, 42)
	payload := make([]byte, 20)
	frames, _ := SplitTransfer(id, 0, SignatureLogMessage, payload)

	// Corrupt one payload byte in a middle frame.
	frames[1].Data[0] ^= 0xFF

	r := newTestReassembler()
	var lastErr error
	for _, f := range frames {
		if _, err := r.Accept(f); err != nil {
			lastErr = err
		}
	}
	if lastErr == nil || !strings.HasPrefix(lastErr.Error(), "transfer CRC mismatch") {
		t.Errorf("Expected CRC mismatch, got %v", lastErr)
	}
}

func TestReassembler_ToggleError(t *testing.T) {
	id := MessageFrameID(DefaultPriority, TypeLogMessage, 42)
	frames, _ := SplitTransfer(id, 0, SignatureLogMessage, make([]byte, 20))

	// Repeat the toggle of the first continuation frame.
	tid := frames[1].Tail().TransferID()
	frames[2].Data[len(frames[2].Data)-1] = MakeTail(false, false, frames[1].Tail().Toggle(), tid)

	r := newTestReassembler()
	r.Accept(frames[0])
	r.Accept(frames[1])
	if _, err := r.Accept(frames[2]); err == nil {
		t.Error("Out-of-sequence toggle should fail")
	}

	// A fresh transfer recovers the session.
	good, _ := SplitTransfer(id, 1, SignatureLogMessage, []byte("recovered"))
	transfer := feed(t, r, good)
	if transfer == nil || !bytes.Equal(transfer.Payload, []byte("recovered")) {
		t.Error("Session should recover on next start-of-transfer")
	}
}

func TestReassembler_TransferIDChange(t *testing.T) {
	id := MessageFrameID(DefaultPriority, TypeLogMessage, 42)
	frames, _ := SplitTransfer(id, 3, SignatureLogMessage, make([]byte, 20))

	// Continuation claims a different transfer ID.
	tail := frames[1].Tail()
	frames[1].Data[len(frames[1].Data)-1] = MakeTail(false, false, tail.Toggle(), 9)

	r := newTestReassembler()
	r.Accept(frames[0])
	if _, err := r.Accept(frames[1]); err == nil {
		t.Error("Transfer ID change mid-transfer should fail")
	}
}

func TestReassembler_SingleFrameToggleSet(t *testing.T) {
	f := Frame{
		ID:   MessageFrameID(DefaultPriority, TypeNodeStatus, 1),
		Data: []byte{1, 2, 3, 4, 5, 6, 7, MakeTail(true, true, true, 0)},
	}
	if _, err := newTestReassembler().Accept(f); err == nil {
		t.Error("Single frame with toggle set should fail")
	}
}

func TestReassembler_MidTransferJoin(t *testing.T) {
	id := MessageFrameID(DefaultPriority, TypeLogMessage, 42)
	frames, _ := SplitTransfer(id, 0, SignatureLogMessage, make([]byte, 20))

	// Joining after the start frame: continuation frames drop silently.
	r := newTestReassembler()
	for _, f := range frames[1:] {
		transfer, err := r.Accept(f)
		if transfer != nil || err != nil {
			t.Errorf("Orphan continuation should drop silently: %+v, %v", transfer, err)
		}
	}
}

func TestReassembler_InterleavedSources(t *testing.T) {
	payloadA := []byte("from node A, long enough to split")
	payloadB := []byte("from node B, also long enough yes")
	framesA, _ := SplitTransfer(MessageFrameID(DefaultPriority, TypeLogMessage, 10), 0, SignatureLogMessage, payloadA)
	framesB, _ := SplitTransfer(MessageFrameID(DefaultPriority, TypeLogMessage, 20), 0, SignatureLogMessage, payloadB)

	r := newTestReassembler()
	var got [][]byte
	for i := 0; i < len(framesA) || i < len(framesB); i++ {
		for _, frames := range [][]Frame{framesA, framesB} {
			if i >= len(frames) {
				continue
			}
			transfer, err := r.Accept(frames[i])
			if err != nil {
				t.Fatalf("Interleaved accept: %v", err)
			}
			if transfer != nil {
				got = append(got, transfer.Payload)
			}
		}
	}
	if len(got) != 2 || !bytes.Equal(got[0], payloadA) || !bytes.Equal(got[1], payloadB) {
		t.Errorf("Interleaved transfers corrupted: %q", got)
	}
}
