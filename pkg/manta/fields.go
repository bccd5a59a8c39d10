// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package manta

import "strconv"

// Snapshot is the typed view of the store that the panel renders: integer
// parameters parsed, the control word expanded to flags, the CAN speed
// code mapped to its bitrate label. Real-valued parameters stay textual,
// exactly as the firmware reported them.
type Snapshot struct {
	NodeID     int64
	EscIndex   int64
	Arming     bool
	TelemRate  int64
	CanSpeed   string
	MaxSpeed   string
	CtrlWord   ControlWord
	MidPoint   int64
	Accel      string
	MotorPoles int64
	Kp         string
	Ki         string

	present map[string]bool
}

// Has reports whether the named parameter was collected.
func (s *Snapshot) Has(name string) bool {
	return s.present[name]
}

// Reflect builds a snapshot from whatever the store holds so far. Missing
// or unparseable parameters keep their zero value and report absent; a
// partial fetch renders a partial panel.
func Reflect(store *Store) *Snapshot {
	s := &Snapshot{present: make(map[string]bool)}

	s.NodeID = s.intField(store, ParamNodeID)
	s.EscIndex = s.intField(store, ParamEscIndex)
	s.Arming = s.intField(store, ParamArming) != 0
	s.TelemRate = s.intField(store, ParamTelemRate)
	s.CtrlWord = ControlWord(s.intField(store, ParamCtrlWord))
	s.MidPoint = s.intField(store, ParamMidPoint)
	s.MotorPoles = s.intField(store, ParamMotorPoles)

	s.MaxSpeed = s.textField(store, ParamMaxSpeed)
	s.Accel = s.textField(store, ParamAccel)
	s.Kp = s.textField(store, ParamKp)
	s.Ki = s.textField(store, ParamKi)

	if code, ok := store.Get(ParamCanSpeed); ok {
		s.present[ParamCanSpeed] = true
		s.CanSpeed = code.Value
		if n, err := strconv.ParseInt(code.Value, 10, 64); err == nil {
			if label, ok := BitrateLabelForCode(n); ok {
				s.CanSpeed = label
			}
		}
	}
	return s
}

func (s *Snapshot) intField(store *Store, name string) int64 {
	v, ok := store.Get(name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0
	}
	s.present[name] = true
	return n
}

func (s *Snapshot) textField(store *Store, name string) string {
	v, ok := store.Get(name)
	if !ok {
		return ""
	}
	s.present[name] = true
	return v.Value
}
