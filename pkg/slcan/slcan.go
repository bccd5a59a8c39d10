// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

// Package slcan implements the Lawicel SLCAN ASCII framing used by common
// USB-CAN adapters. Frames are exchanged as single text lines terminated
// with carriage return; DroneCAN traffic always uses extended identifiers.
package slcan

import (
	"fmt"
	"io"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
)

// Protocol characters
const (
	cmdOpen        = 'O'
	cmdClose       = 'C'
	cmdBitrate     = 'S'
	cmdTxExtended  = 'T'
	cmdTxStandard  = 't'
	lineTerminator = '\r'
	bellError      = 0x07
)

const maxLineLength = 32 // 'T' + 8 ID digits + DLC + 16 data digits + CR

// BitrateCode maps a CAN bitrate in bits/sec to its SLCAN setup code.
func BitrateCode(bitrate int) (int, error) {
	switch bitrate {
	case 10000:
		return 0, nil
	case 20000:
		return 1, nil
	case 50000:
		return 2, nil
	case 100000:
		return 3, nil
	case 125000:
		return 4, nil
	case 250000:
		return 5, nil
	case 500000:
		return 6, nil
	case 800000:
		return 7, nil
	case 1000000:
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported CAN bitrate: %d", bitrate)
	}
}

// EncodeFrame renders a frame as an SLCAN transmit line. DroneCAN IDs are
// 29-bit, so the extended form is always used.
func EncodeFrame(f dronecan.Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	line := make([]byte, 0, maxLineLength)
	line = append(line, cmdTxExtended)
	line = appendHex(line, f.ID, 8)
	line = append(line, hexDigit(uint32(len(f.Data))))
	for _, b := range f.Data {
		line = appendHex(line, uint32(b), 2)
	}
	line = append(line, lineTerminator)
	return line, nil
}

// Decoder accumulates serial bytes into SLCAN lines and parses frame
// lines. Command acknowledgements and unknown lines are skipped.
type Decoder struct {
	line     []byte
	overflow bool
}

// NewDecoder creates a new SLCAN line decoder.
func NewDecoder() *Decoder {
	return &Decoder{line: make([]byte, 0, maxLineLength)}
}

// Reset discards any partially accumulated line.
func (d *Decoder) Reset() {
	d.line = d.line[:0]
	d.overflow = false
}

// DecodeByte processes one serial byte. Returns a completed frame, or nil
// if the line is incomplete or carries no frame. Returns an error for the
// adapter's bell (error) response and for malformed frame lines.
func (d *Decoder) DecodeByte(b byte) (*dronecan.Frame, error) {
	if b == bellError {
		d.Reset()
		return nil, fmt.Errorf("adapter reported command error")
	}

	if b != lineTerminator {
		if len(d.line) >= maxLineLength {
			d.overflow = true
			return nil, nil
		}
		d.line = append(d.line, b)
		return nil, nil
	}

	line := d.line
	overflow := d.overflow
	d.Reset()

	if overflow {
		return nil, fmt.Errorf("line exceeds %d bytes", maxLineLength)
	}
	if len(line) == 0 {
		return nil, nil
	}

	switch line[0] {
	case cmdTxExtended:
		return parseFrameLine(line[1:], 8)
	case cmdTxStandard:
		return parseFrameLine(line[1:], 3)
	default:
		// Acks ('z', 'Z'), status lines and anything else are not frames.
		return nil, nil
	}
}

func parseFrameLine(line []byte, idDigits int) (*dronecan.Frame, error) {
	if len(line) < idDigits+1 {
		return nil, fmt.Errorf("frame line too short: %d bytes", len(line))
	}

	id, err := parseHex(line[:idDigits])
	if err != nil {
		return nil, fmt.Errorf("invalid frame ID: %w", err)
	}

	dlc, err := parseHex(line[idDigits : idDigits+1])
	if err != nil || dlc > dronecan.MaxFrameData {
		return nil, fmt.Errorf("invalid DLC in frame line")
	}

	hexData := line[idDigits+1:]
	if len(hexData) != int(dlc)*2 {
		return nil, fmt.Errorf("frame data length mismatch: DLC %d, %d hex digits", dlc, len(hexData))
	}

	data := make([]byte, dlc)
	for i := range data {
		v, err := parseHex(hexData[i*2 : i*2+2])
		if err != nil {
			return nil, fmt.Errorf("invalid frame data: %w", err)
		}
		data[i] = byte(v)
	}

	return &dronecan.Frame{ID: id, Data: data}, nil
}

func appendHex(dst []byte, v uint32, digits int) []byte {
	for i := digits - 1; i >= 0; i-- {
		dst = append(dst, hexDigit(v>>(4*i)&0xF))
	}
	return dst
}

func hexDigit(v uint32) byte {
	v &= 0xF
	if v < 10 {
		return '0' + byte(v)
	}
	return 'A' + byte(v-10)
}

func parseHex(digits []byte) (uint32, error) {
	var v uint32
	for _, c := range digits {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= uint32(c - '0')
		case c >= 'A' && c <= 'F':
			v |= uint32(c-'A') + 10
		case c >= 'a' && c <= 'f':
			v |= uint32(c-'a') + 10
		default:
			return 0, fmt.Errorf("invalid hex digit %q", c)
		}
	}
	return v, nil
}

// Conn adapts an SLCAN byte stream to the dronecan.FrameIO interface.
type Conn struct {
	rwc     io.ReadWriteCloser
	decoder *Decoder
	readBuf []byte
	pending []byte
}

// Open configures the adapter for the given CAN bitrate and opens the
// channel.
func Open(rwc io.ReadWriteCloser, bitrate int) (*Conn, error) {
	code, err := BitrateCode(bitrate)
	if err != nil {
		return nil, err
	}

	setup := []byte{cmdClose, lineTerminator, cmdBitrate, byte('0' + code), lineTerminator, cmdOpen, lineTerminator}
	if _, err := rwc.Write(setup); err != nil {
		return nil, fmt.Errorf("failed to open SLCAN channel: %w", err)
	}

	return &Conn{
		rwc:     rwc,
		decoder: NewDecoder(),
		readBuf: make([]byte, 256),
	}, nil
}

// ReadFrame blocks until a complete frame line arrives. Bytes belonging to
// command responses are consumed and skipped.
func (c *Conn) ReadFrame() (dronecan.Frame, error) {
	for {
		for len(c.pending) > 0 {
			b := c.pending[0]
			c.pending = c.pending[1:]
			frame, err := c.decoder.DecodeByte(b)
			if err != nil {
				return dronecan.Frame{}, err
			}
			if frame != nil {
				return *frame, nil
			}
		}

		n, err := c.rwc.Read(c.readBuf)
		if err != nil {
			return dronecan.Frame{}, err
		}
		c.pending = c.readBuf[:n]
	}
}

// WriteFrame sends one frame as a transmit line.
func (c *Conn) WriteFrame(f dronecan.Frame) error {
	line, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	if _, err := c.rwc.Write(line); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close closes the SLCAN channel and the underlying stream.
func (c *Conn) Close() error {
	// Best effort: the adapter may already be gone.
	c.rwc.Write([]byte{cmdClose, lineTerminator})
	return c.rwc.Close()
}
