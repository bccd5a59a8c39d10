// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

// Package dronecan implements the subset of the DroneCAN (UAVCAN v0)
// protocol needed to configure Manta50 ESCs: frame ID encoding, transfer
// assembly/splitting with transfer CRC, and the NodeStatus, debug.LogMessage
// and param.GetSet data types.
package dronecan

// Frame limits
const (
	MaxFrameData     = 8 // classic CAN
	MaxFramePayload  = 7 // data minus tail byte
	MaxTransferBytes = 384
)

// CAN ID field layout (29-bit extended identifiers)
const (
	MaxNodeID       = 127
	BroadcastNodeID = 0

	DefaultPriority = 16 // middle of the 0..31 range, lower is more urgent
)

// Tail byte bits
const (
	TailStartOfTransfer = 0x80
	TailEndOfTransfer   = 0x40
	TailToggle          = 0x20
	TransferIDMax       = 0x1F
)

// Broadcast message data type IDs
const (
	TypeNodeStatus uint16 = 341
	TypeLogMessage uint16 = 16383
)

// Service type IDs
const (
	ServiceParamGetSet uint16 = 11
)

// Data type signatures, used to seed the transfer CRC of multi-frame
// transfers. Values come from the DSDL definitions.
const (
	SignatureNodeStatus  uint64 = 0x0f0868d0c1a7c6f1
	SignatureLogMessage  uint64 = 0xd654a48e0c049d75
	SignatureParamGetSet uint64 = 0xa7b622f939d1a4d5
)

// CRC-16-CCITT configuration (transfer CRC)
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// LogLevel represents the severity of a debug.LogMessage
type LogLevel uint8

// Log severity values
const (
	LogDebug   LogLevel = 0
	LogInfo    LogLevel = 1
	LogWarning LogLevel = 2
	LogError   LogLevel = 3
)

// String returns the DSDL name of the log level
func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "DEBUG"
	case LogInfo:
		return "INFO"
	case LogWarning:
		return "WARNING"
	case LogError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// NodeHealth represents the health field of NodeStatus
type NodeHealth uint8

// Node health values
const (
	HealthOK       NodeHealth = 0
	HealthWarning  NodeHealth = 1
	HealthError    NodeHealth = 2
	HealthCritical NodeHealth = 3
)

// String returns the DSDL name of the health value
func (h NodeHealth) String() string {
	switch h {
	case HealthOK:
		return "OK"
	case HealthWarning:
		return "WARNING"
	case HealthError:
		return "ERROR"
	case HealthCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NodeMode represents the mode field of NodeStatus
type NodeMode uint8

// Node mode values
const (
	ModeOperational    NodeMode = 0
	ModeInitialization NodeMode = 1
	ModeMaintenance    NodeMode = 2
	ModeSoftwareUpdate NodeMode = 3
	ModeOffline        NodeMode = 7
)

// String returns the DSDL name of the mode value
func (m NodeMode) String() string {
	switch m {
	case ModeOperational:
		return "OPERATIONAL"
	case ModeInitialization:
		return "INITIALIZATION"
	case ModeMaintenance:
		return "MAINTENANCE"
	case ModeSoftwareUpdate:
		return "SOFTWARE_UPDATE"
	case ModeOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}
