// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueTag identifies the active field of the param.Value union.
type ValueTag uint8

// Value union tags, in DSDL declaration order
const (
	ValueEmpty   ValueTag = 0
	ValueInteger ValueTag = 1
	ValueReal    ValueTag = 2
	ValueBoolean ValueTag = 3
	ValueString  ValueTag = 4
)

// Value is the param.Value union. Only the field selected by Tag is
// meaningful.
type Value struct {
	Tag     ValueTag
	Integer int64
	Real    float32
	Boolean bool
	String  []byte
}

// EmptyValue returns the empty union variant, used for read requests.
func EmptyValue() Value {
	return Value{Tag: ValueEmpty}
}

// IntegerValue returns an integer_value variant.
func IntegerValue(v int64) Value {
	return Value{Tag: ValueInteger, Integer: v}
}

// RealValue returns a real_value variant.
func RealValue(v float32) Value {
	return Value{Tag: ValueReal, Real: v}
}

// GetSetRequest is a param.GetSet service request. An empty Value reads the
// parameter at Index; a non-empty Value assigns it. Name is unused by the
// Manta50 firmware and left empty.
type GetSetRequest struct {
	Index uint16 // 13-bit parameter index
	Value Value
	Name  []byte
}

// Encode serializes the request to DSDL wire format. The 13-bit index and
// 3-bit union tag pack into the first two bytes (big-endian bit order);
// the union payload and name follow byte-aligned.
func (r GetSetRequest) Encode() ([]byte, error) {
	if r.Index >= 1<<13 {
		return nil, fmt.Errorf("parameter index %d exceeds 13 bits", r.Index)
	}

	buf := make([]byte, 2, 2+9+len(r.Name))
	buf[0] = byte(r.Index >> 5)
	buf[1] = byte(r.Index&0x1F)<<3 | byte(r.Value.Tag&0x07)

	switch r.Value.Tag {
	case ValueEmpty:
	case ValueInteger:
		var v [8]byte
		binary.LittleEndian.PutUint64(v[:], uint64(r.Value.Integer))
		buf = append(buf, v[:]...)
	case ValueReal:
		var v [4]byte
		binary.LittleEndian.PutUint32(v[:], math.Float32bits(r.Value.Real))
		buf = append(buf, v[:]...)
	case ValueBoolean:
		if r.Value.Boolean {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case ValueString:
		if len(r.Value.String) > 128 {
			return nil, fmt.Errorf("string value too long: %d bytes (max 128)", len(r.Value.String))
		}
		buf = append(buf, byte(len(r.Value.String)))
		buf = append(buf, r.Value.String...)
	default:
		return nil, fmt.Errorf("invalid value tag %d", r.Value.Tag)
	}

	// Name is the tail array: raw bytes, no length prefix.
	buf = append(buf, r.Name...)
	return buf, nil
}

// DecodeGetSetRequest parses wire bytes back into a request. Used by tests
// and by bench tooling that replays captured traffic.
func DecodeGetSetRequest(data []byte) (GetSetRequest, error) {
	if len(data) < 2 {
		return GetSetRequest{}, fmt.Errorf("request too short: %d bytes", len(data))
	}

	r := GetSetRequest{
		Index: uint16(data[0])<<5 | uint16(data[1])>>3,
		Value: Value{Tag: ValueTag(data[1] & 0x07)},
	}
	rest := data[2:]

	switch r.Value.Tag {
	case ValueEmpty:
	case ValueInteger:
		if len(rest) < 8 {
			return GetSetRequest{}, fmt.Errorf("integer value truncated: %d bytes", len(rest))
		}
		r.Value.Integer = int64(binary.LittleEndian.Uint64(rest[:8]))
		rest = rest[8:]
	case ValueReal:
		if len(rest) < 4 {
			return GetSetRequest{}, fmt.Errorf("real value truncated: %d bytes", len(rest))
		}
		r.Value.Real = math.Float32frombits(binary.LittleEndian.Uint32(rest[:4]))
		rest = rest[4:]
	case ValueBoolean:
		if len(rest) < 1 {
			return GetSetRequest{}, fmt.Errorf("boolean value truncated")
		}
		r.Value.Boolean = rest[0] != 0
		rest = rest[1:]
	case ValueString:
		if len(rest) < 1 {
			return GetSetRequest{}, fmt.Errorf("string value missing length")
		}
		n := int(rest[0])
		if len(rest) < 1+n {
			return GetSetRequest{}, fmt.Errorf("string value truncated: want %d bytes, have %d", n, len(rest)-1)
		}
		r.Value.String = append([]byte(nil), rest[1:1+n]...)
		rest = rest[1+n:]
	default:
		return GetSetRequest{}, fmt.Errorf("invalid value tag %d", r.Value.Tag)
	}

	if len(rest) > 0 {
		r.Name = append([]byte(nil), rest...)
	}
	return r, nil
}
