// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import "fmt"

// LogMessage is a decoded uavcan.protocol.debug.LogMessage broadcast.
type LogMessage struct {
	Level  LogLevel
	Source string
	Text   string
}

// ParseLogMessage decodes a LogMessage payload. The first byte packs the
// 3-bit level and the 5-bit source length; the text is the tail array.
func ParseLogMessage(payload []byte) (LogMessage, error) {
	if len(payload) < 1 {
		return LogMessage{}, fmt.Errorf("log message payload empty")
	}

	level := LogLevel(payload[0] >> 5)
	srcLen := int(payload[0] & 0x1F)
	if len(payload) < 1+srcLen {
		return LogMessage{}, fmt.Errorf("log message source truncated: want %d bytes, have %d", srcLen, len(payload)-1)
	}

	return LogMessage{
		Level:  level,
		Source: string(payload[1 : 1+srcLen]),
		Text:   string(payload[1+srcLen:]),
	}, nil
}

// EncodeLogMessage serializes a LogMessage payload. Used by tests and by
// the loopback bench transport.
func EncodeLogMessage(m LogMessage) ([]byte, error) {
	if len(m.Source) > 31 {
		return nil, fmt.Errorf("log message source too long: %d bytes (max 31)", len(m.Source))
	}
	if len(m.Text) > 90 {
		return nil, fmt.Errorf("log message text too long: %d bytes (max 90)", len(m.Text))
	}

	buf := make([]byte, 0, 1+len(m.Source)+len(m.Text))
	buf = append(buf, byte(m.Level)<<5|byte(len(m.Source)))
	buf = append(buf, m.Source...)
	buf = append(buf, m.Text...)
	return buf, nil
}
