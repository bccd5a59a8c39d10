// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import (
	"fmt"
	"time"
)

// Statistics tracks frame and transfer counters and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames    uint64
	Transfers      uint64
	CRCErrors      uint64
	DecodeErrors   uint64
	LogMessages    uint64
	StatusMessages uint64

	// Rates (calculated)
	FrameRate    float64 // frames/sec
	TransferRate float64 // transfers/sec
	ErrorRate    float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates counters for one accepted frame and its outcome
func (s *Statistics) Update(transfer *Transfer, err error) {
	s.TotalFrames++

	if err != nil {
		if len(err.Error()) >= 12 && err.Error()[:12] == "transfer CRC" {
			s.CRCErrors++
		} else {
			s.DecodeErrors++
		}
		return
	}

	if transfer == nil {
		return // mid-transfer frame or unregistered type
	}

	s.Transfers++
	if !transfer.Header.IsService {
		switch transfer.Header.DataTypeID {
		case TypeLogMessage:
			s.LogMessages++
		case TypeNodeStatus:
			s.StatusMessages++
		}
	}
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates frame, transfer and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.TransferRate = float64(s.Transfers) / elapsed
		s.ErrorRate = float64(s.CRCErrors+s.DecodeErrors) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var transferPercent float64
	if s.TotalFrames > 0 {
		transferPercent = float64(s.Transfers) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Transfers:       %8d (%.1f%%)\n", s.Transfers, transferPercent)

	if s.CRCErrors > 0 {
		result += fmt.Sprintf("CRC Errors:      %8d\n", s.CRCErrors)
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d\n", s.DecodeErrors)
	}
	if s.LogMessages > 0 {
		result += fmt.Sprintf("Log Messages:    %8d\n", s.LogMessages)
	}
	if s.StatusMessages > 0 {
		result += fmt.Sprintf("Node Statuses:   %8d\n", s.StatusMessages)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	*s = Statistics{StartTime: now, LastUpdateTime: now}
}
