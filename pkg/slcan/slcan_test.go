// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package slcan

import (
	"bytes"
	"errors"
	"testing"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
)

// decodeLine runs a full line through a fresh decoder.
func decodeLine(t *testing.T, line string) (*dronecan.Frame, error) {
	t.Helper()
	d := NewDecoder()
	var frame *dronecan.Frame
	var lastErr error
	for _, b := range []byte(line) {
		f, err := d.DecodeByte(b)
		if err != nil {
			lastErr = err
		}
		if f != nil {
			frame = f
		}
	}
	return frame, lastErr
}

// ============================================================
// Bitrate Code Tests
// ============================================================

func TestBitrateCode(t *testing.T) {
	tests := []struct {
		bitrate int
		code    int
	}{
		{10000, 0},
		{125000, 4},
		{250000, 5},
		{500000, 6},
		{1000000, 8},
	}
	for _, tt := range tests {
		code, err := BitrateCode(tt.bitrate)
		if err != nil || code != tt.code {
			t.Errorf("BitrateCode(%d) = (%d, %v), want %d", tt.bitrate, code, err, tt.code)
		}
	}
	if _, err := BitrateCode(300000); err == nil {
		t.Error("Unsupported bitrate should fail")
	}
}

// ============================================================
// Encode Tests
// ============================================================

func TestEncodeFrame(t *testing.T) {
	f := dronecan.Frame{ID: 0x1001552A, Data: []byte{0xDE, 0xAD, 0xC0}}
	line, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if string(line) != "T1001552A3DEADC0\r" {
		t.Errorf("Got %q", line)
	}
}

func TestEncodeFrame_Invalid(t *testing.T) {
	if _, err := EncodeFrame(dronecan.Frame{ID: 1}); err == nil {
		t.Error("Empty frame should fail")
	}
	if _, err := EncodeFrame(dronecan.Frame{ID: 1 << 29, Data: []byte{0}}); err == nil {
		t.Error("Oversize ID should fail")
	}
}

// ============================================================
// Decode Tests
// ============================================================

func TestDecodeFrameLine(t *testing.T) {
	frame, err := decodeLine(t, "T1001552A3DEADC0\r")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame == nil {
		t.Fatal("No frame decoded")
	}
	if frame.ID != 0x1001552A || !bytes.Equal(frame.Data, []byte{0xDE, 0xAD, 0xC0}) {
		t.Errorf("Frame wrong: %+v", frame)
	}
}

func TestDecodeStandardFrameLine(t *testing.T) {
	frame, err := decodeLine(t, "t1238AABBCCDDEEFF1122\r")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if frame == nil || frame.ID != 0x123 || len(frame.Data) != 8 {
		t.Errorf("Frame wrong: %+v", frame)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	f := dronecan.Frame{
		ID:   dronecan.ServiceFrameID(16, 11, true, 42, 126),
		Data: []byte{0x00, 0x20, 0xC5},
	}
	line, err := EncodeFrame(f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	got, err := decodeLine(t, string(line))
	if err != nil || got == nil {
		t.Fatalf("Decode: %+v, %v", got, err)
	}
	if got.ID != f.ID || !bytes.Equal(got.Data, f.Data) {
		t.Errorf("Round trip mismatch: %+v vs %+v", got, f)
	}
}

func TestDecode_SkipsNonFrameLines(t *testing.T) {
	for _, line := range []string{"\r", "z\r", "Z\r", "F00\r", "V1010\r"} {
		frame, err := decodeLine(t, line)
		if frame != nil || err != nil {
			t.Errorf("Line %q should be skipped: %+v, %v", line, frame, err)
		}
	}
}

func TestDecode_BellError(t *testing.T) {
	d := NewDecoder()
	d.DecodeByte('T')
	if _, err := d.DecodeByte(0x07); err == nil {
		t.Fatal("Bell should report an error")
	}
	// The partial line is discarded; a following frame decodes cleanly.
	frame, err := decodeLine(t, "T000000AA1FF\r")
	if err != nil || frame == nil {
		t.Errorf("Decoder should recover after bell: %+v, %v", frame, err)
	}
}

func TestDecode_MalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"short frame line", "T123\r"},
		{"bad hex in ID", "TXX01552A10\r"},
		{"dlc over 8", "T1001552A9112233445566778899\r"},
		{"data shorter than dlc", "T1001552A3DEAD\r"},
		{"data longer than dlc", "T1001552A1DEAD\r"},
		{"bad hex in data", "T1001552A1ZZ\r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := decodeLine(t, tt.line)
			if err == nil {
				t.Errorf("Line %q should fail", tt.line)
			}
			if frame != nil {
				t.Errorf("Line %q should not produce a frame", tt.line)
			}
		})
	}
}

func TestDecode_OverlongLine(t *testing.T) {
	d := NewDecoder()
	for i := 0; i < 100; i++ {
		if _, err := d.DecodeByte('A'); err != nil {
			t.Fatalf("Accumulation should not error: %v", err)
		}
	}
	if _, err := d.DecodeByte('\r'); err == nil {
		t.Error("Overlong line should fail at terminator")
	}
	// Next line decodes fine.
	frame, err := decodeLine(t, "T000000AA1FF\r")
	if err != nil || frame == nil {
		t.Errorf("Decoder should recover after overflow: %+v, %v", frame, err)
	}
}

// ============================================================
// Conn Tests
// ============================================================

// pipeRWC is an in-memory serial port double: reads come from the inbound
// buffer, writes collect in the outbound buffer.
type pipeRWC struct {
	inbound  bytes.Buffer
	outbound bytes.Buffer
	closed   bool
}

func (p *pipeRWC) Read(b []byte) (int, error) {
	if p.inbound.Len() == 0 {
		return 0, errors.New("no data")
	}
	return p.inbound.Read(b)
}

func (p *pipeRWC) Write(b []byte) (int, error) {
	return p.outbound.Write(b)
}

func (p *pipeRWC) Close() error {
	p.closed = true
	return nil
}

func TestOpen_SetupSequence(t *testing.T) {
	p := &pipeRWC{}
	if _, err := Open(p, 1000000); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := p.outbound.String(); got != "C\rS8\rO\r" {
		t.Errorf("Setup sequence: got %q", got)
	}
}

func TestOpen_BadBitrate(t *testing.T) {
	if _, err := Open(&pipeRWC{}, 12345); err == nil {
		t.Error("Unsupported bitrate should fail")
	}
}

func TestConn_ReadFrame(t *testing.T) {
	p := &pipeRWC{}
	c, err := Open(p, 1000000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// An ack followed by two frames, delivered in one read.
	p.inbound.WriteString("z\rT000000AA1FF\rT000000BB2AABB\r")

	f1, err := c.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame 1: %v", err)
	}
	if f1.ID != 0xAA || !bytes.Equal(f1.Data, []byte{0xFF}) {
		t.Errorf("Frame 1: %+v", f1)
	}

	f2, err := c.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame 2: %v", err)
	}
	if f2.ID != 0xBB || !bytes.Equal(f2.Data, []byte{0xAA, 0xBB}) {
		t.Errorf("Frame 2: %+v", f2)
	}

	// Buffer drained: the next read hits the transport error.
	if _, err := c.ReadFrame(); err == nil {
		t.Error("Exhausted transport should error")
	}
}

func TestConn_WriteFrame(t *testing.T) {
	p := &pipeRWC{}
	c, _ := Open(p, 1000000)
	p.outbound.Reset()

	if err := c.WriteFrame(dronecan.Frame{ID: 0xAA, Data: []byte{0xFF}}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if got := p.outbound.String(); got != "T000000AA1FF\r" {
		t.Errorf("Wire line: got %q", got)
	}
}

func TestConn_Close(t *testing.T) {
	p := &pipeRWC{}
	c, _ := Open(p, 1000000)
	p.outbound.Reset()

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !p.closed {
		t.Error("Underlying stream should be closed")
	}
	if got := p.outbound.String(); got != "C\r" {
		t.Errorf("Close should send channel close, got %q", got)
	}
}
