// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import "fmt"

// Frame is a single classic CAN frame carrying a DroneCAN transfer slice.
// The ID is always a 29-bit extended identifier; the last data byte is the
// tail byte.
type Frame struct {
	ID   uint32
	Data []byte
}

// Tail returns the frame's tail byte. Panics on empty data.
func (f Frame) Tail() Tail {
	return Tail(f.Data[len(f.Data)-1])
}

// Payload returns the frame data without the tail byte.
func (f Frame) Payload() []byte {
	return f.Data[:len(f.Data)-1]
}

// Tail is the last data byte of every frame: start/end flags, toggle bit
// and the 5-bit transfer ID.
type Tail byte

func (t Tail) Start() bool       { return t&TailStartOfTransfer != 0 }
func (t Tail) End() bool         { return t&TailEndOfTransfer != 0 }
func (t Tail) Toggle() bool      { return t&TailToggle != 0 }
func (t Tail) TransferID() uint8 { return uint8(t) & TransferIDMax }

// MakeTail builds a tail byte from its fields.
func MakeTail(start, end, toggle bool, transferID uint8) byte {
	b := transferID & TransferIDMax
	if start {
		b |= TailStartOfTransfer
	}
	if end {
		b |= TailEndOfTransfer
	}
	if toggle {
		b |= TailToggle
	}
	return b
}

// FrameHeader holds the fields packed into a 29-bit DroneCAN CAN ID.
// For message frames Dest and IsRequest are meaningless; for service
// frames DataTypeID is the 8-bit service type ID.
type FrameHeader struct {
	Priority   uint8
	IsService  bool
	DataTypeID uint16
	IsRequest  bool
	Source     uint8
	Dest       uint8
}

// ParseFrameID unpacks a 29-bit CAN identifier.
func ParseFrameID(id uint32) FrameHeader {
	h := FrameHeader{
		Priority:  uint8(id>>24) & 0x1F,
		IsService: id&0x80 != 0,
		Source:    uint8(id) & 0x7F,
	}
	if h.IsService {
		h.DataTypeID = uint16(id>>16) & 0xFF
		h.IsRequest = id&0x8000 != 0
		h.Dest = uint8(id>>8) & 0x7F
	} else {
		h.DataTypeID = uint16(id >> 8)
	}
	return h
}

// MessageFrameID packs a broadcast message CAN identifier.
func MessageFrameID(priority uint8, typeID uint16, source uint8) uint32 {
	return uint32(priority&0x1F)<<24 | uint32(typeID)<<8 | uint32(source&0x7F)
}

// ServiceFrameID packs a service CAN identifier.
func ServiceFrameID(priority uint8, serviceID uint16, request bool, dest, source uint8) uint32 {
	id := uint32(priority&0x1F)<<24 | uint32(serviceID&0xFF)<<16 |
		uint32(dest&0x7F)<<8 | 0x80 | uint32(source&0x7F)
	if request {
		id |= 0x8000
	}
	return id
}

// Validate checks basic frame well-formedness.
func (f Frame) Validate() error {
	if len(f.Data) == 0 {
		return fmt.Errorf("frame has no data (missing tail byte)")
	}
	if len(f.Data) > MaxFrameData {
		return fmt.Errorf("frame data too long: %d bytes (max %d)", len(f.Data), MaxFrameData)
	}
	if f.ID >= 1<<29 {
		return fmt.Errorf("frame ID 0x%X exceeds 29 bits", f.ID)
	}
	return nil
}
