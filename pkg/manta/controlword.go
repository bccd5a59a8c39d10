// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package manta

import "strings"

// ControlWord is the motor controller flag register exposed through the
// MOTOR_CTRL parameter. Each bit gates one controller behavior.
type ControlWord uint8

const (
	CtrlEnableSys ControlWord = 1 << iota
	CtrlRunIdentify
	CtrlFieldWeakening
	CtrlForceAngle
	CtrlRsRecalc
	CtrlPowerWarp
	CtrlUserParams
)

var ctrlFlagNames = []struct {
	flag ControlWord
	name string
}{
	{CtrlEnableSys, "EnableSys"},
	{CtrlRunIdentify, "RunIdentify"},
	{CtrlFieldWeakening, "FieldWeakening"},
	{CtrlForceAngle, "ForceAngle"},
	{CtrlRsRecalc, "RsRecalc"},
	{CtrlPowerWarp, "PowerWarp"},
	{CtrlUserParams, "UserParams"},
}

// FlagCount is the number of defined control word bits.
const FlagCount = 7

// Has reports whether flag is set.
func (w ControlWord) Has(flag ControlWord) bool { return w&flag != 0 }

// With returns a copy of w with flag set or cleared.
func (w ControlWord) With(flag ControlWord, on bool) ControlWord {
	if on {
		return w | flag
	}
	return w &^ flag
}

// FlagName returns the name of the control word bit at position i.
func FlagName(i int) string {
	return ctrlFlagNames[i].name
}

// FlagAt returns the control word bit at position i.
func FlagAt(i int) ControlWord {
	return ctrlFlagNames[i].flag
}

// String lists the set flags, or "none".
func (w ControlWord) String() string {
	var names []string
	for _, f := range ctrlFlagNames {
		if w.Has(f.flag) {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}
