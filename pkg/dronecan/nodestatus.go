// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import (
	"encoding/binary"
	"fmt"
)

// NodeStatus is a decoded uavcan.protocol.NodeStatus broadcast.
type NodeStatus struct {
	UptimeSec  uint32
	Health     NodeHealth
	Mode       NodeMode
	SubMode    uint8
	VendorCode uint16
}

// ParseNodeStatus decodes a NodeStatus payload: 32-bit uptime, then one
// byte packing health (2 bits), mode (3 bits) and sub-mode (3 bits), then
// the 16-bit vendor specific status code.
func ParseNodeStatus(payload []byte) (NodeStatus, error) {
	if len(payload) < 7 {
		return NodeStatus{}, fmt.Errorf("node status payload too short: %d bytes (want 7)", len(payload))
	}

	flags := payload[4]
	return NodeStatus{
		UptimeSec:  binary.LittleEndian.Uint32(payload[0:4]),
		Health:     NodeHealth(flags >> 6),
		Mode:       NodeMode(flags >> 3 & 0x07),
		SubMode:    flags & 0x07,
		VendorCode: binary.LittleEndian.Uint16(payload[5:7]),
	}, nil
}

// EncodeNodeStatus serializes a NodeStatus payload.
func EncodeNodeStatus(s NodeStatus) []byte {
	buf := make([]byte, 7)
	binary.LittleEndian.PutUint32(buf[0:4], s.UptimeSec)
	buf[4] = byte(s.Health)<<6 | byte(s.Mode&0x07)<<3 | s.SubMode&0x07
	binary.LittleEndian.PutUint16(buf[5:7], s.VendorCode)
	return buf
}
