// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package manta

import (
	"regexp"
	"strconv"
)

// EnumDecoder rewrites the numeric state and error codes the firmware
// embeds in diagnostic log text into their symbolic names. Codes outside a
// table's range, and text matching no marker, pass through unchanged.
type EnumDecoder struct {
	tables []enumTable
}

type enumTable struct {
	marker  string
	names   []string
	pattern *regexp.Regexp
}

// Controller state names (InstaSPIN CTRL_State).
var ctrlStateNames = []string{
	"Error",
	"Idle",
	"OffLine",
	"OnLine",
}

// Estimator state names (InstaSPIN EST_State).
var estStateNames = []string{
	"Error",
	"Idle",
	"RoverL",
	"Rs",
	"RampUp",
	"IdRated",
	"RatedFlux_OL",
	"RatedFlux",
	"RampDown",
	"LockRotor",
	"Ls",
	"Rr",
	"MotorIdentified",
	"OnLine",
}

// User error code names (InstaSPIN USER_ErrorCode).
var userErrorNames = []string{
	"NoError",
	"iqFullScaleCurrent_A_High",
	"iqFullScaleCurrent_A_Low",
	"iqFullScaleVoltage_V_High",
	"iqFullScaleVoltage_V_Low",
	"iqFullScaleFreq_Hz_High",
	"iqFullScaleFreq_Hz_Low",
	"numPwmTicksPerIsrTick_High",
	"numPwmTicksPerIsrTick_Low",
	"numIsrTicksPerCtrlTick_High",
	"numIsrTicksPerCtrlTick_Low",
	"numCtrlTicksPerCurrentTick_High",
	"numCtrlTicksPerCurrentTick_Low",
	"numCtrlTicksPerSpeedTick_High",
	"numCtrlTicksPerSpeedTick_Low",
	"maxVsMag_pu_High",
	"maxVsMag_pu_Low",
	"motor_ratedFlux_VpHz_High",
	"motor_ratedFlux_VpHz_Low",
	"motor_Rr_Ohm_High",
	"motor_Rr_Ohm_Low",
	"motor_Rs_Ohm_High",
	"motor_Rs_Ohm_Low",
}

// NewEnumDecoder creates a decoder for the three Manta50 marker families.
func NewEnumDecoder() *EnumDecoder {
	return &EnumDecoder{tables: []enumTable{
		newEnumTable("CtrlState", ctrlStateNames),
		newEnumTable("EstState", estStateNames),
		newEnumTable("UserErrorCode", userErrorNames),
	}}
}

func newEnumTable(marker string, names []string) enumTable {
	return enumTable{
		marker:  marker,
		names:   names,
		pattern: regexp.MustCompile(marker + `: (\d+)`),
	}
}

// Decode rewrites every "<Marker>: <digits>" occurrence in text whose code
// is within the marker's table. Markers are handled independently, in
// order of appearance.
func (d *EnumDecoder) Decode(text string) string {
	for _, t := range d.tables {
		text = t.pattern.ReplaceAllStringFunc(text, func(match string) string {
			digits := match[len(t.marker)+2:]
			code, err := strconv.Atoi(digits)
			if err != nil || code < 0 || code >= len(t.names) {
				return match
			}
			return t.marker + ": " + t.names[code]
		})
	}
	return text
}
