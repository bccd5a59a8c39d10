// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package manta

// CAN bitrate selections accepted by the CanSpeed parameter. The firmware
// stores a divider code; the labels name the resulting bus speed.
var bitrateLabels = []struct {
	Label string
	Code  int64
}{
	{"1MHz->12", 12},
	{"500KHz->11", 11},
	{"250KHz->10", 10},
	{"200KHz->9", 9},
	{"125KHz->8", 8},
	{"100KHz->7", 7},
	{"80KHz->6", 6},
	{"50KHz->5", 5},
}

// BitrateLabels returns the selectable bitrate labels, fastest first.
func BitrateLabels() []string {
	out := make([]string, len(bitrateLabels))
	for i, b := range bitrateLabels {
		out[i] = b.Label
	}
	return out
}

// BitrateCodeForLabel maps a bitrate label to its divider code.
func BitrateCodeForLabel(label string) (int64, bool) {
	for _, b := range bitrateLabels {
		if b.Label == label {
			return b.Code, true
		}
	}
	return 0, false
}

// BitrateLabelForCode maps a divider code back to its label. Unknown codes
// return false; callers display the raw value instead.
func BitrateLabelForCode(code int64) (string, bool) {
	for _, b := range bitrateLabels {
		if b.Code == code {
			return b.Label, true
		}
	}
	return "", false
}
