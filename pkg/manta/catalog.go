// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

// Package manta implements the Manta50 ESC configuration model: the
// parameter catalog, the indexed fetch state machine, response correlation
// and decoding, and the diagnostic enum decoder.
//
// The firmware answers param.GetSet requests out of band, as informational
// debug.LogMessage broadcasts of the form "<name> <value>". The fetch
// logic lives here; the bus plumbing is pkg/dronecan.
package manta

import "fmt"

// ValueKind distinguishes integer from real-valued parameters.
type ValueKind int

// Value kinds
const (
	Integer ValueKind = iota
	Real
)

// Descriptor describes one configuration parameter: its firmware name,
// its stable request index and its value kind.
type Descriptor struct {
	Name  string
	Index int
	Kind  ValueKind
}

// Catalog is the fixed, ordered parameter set of a device. Immutable after
// construction; indices run contiguously from 0.
type Catalog struct {
	byIndex []Descriptor
	byName  map[string]Descriptor
}

// Parameter names as emitted by the Manta50 firmware (first token of each
// informational log line).
const (
	ParamNodeID     = "NodeID"
	ParamEscIndex   = "EscIndex"
	ParamArming     = "Arming"
	ParamTelemRate  = "TelemRate"
	ParamCanSpeed   = "CanSpeed"
	ParamMaxSpeed   = "MaxSpeed"
	ParamCtrlWord   = "CtrlWord"
	ParamMidPoint   = "MidPoint"
	ParamAccel      = "Accel"
	ParamMotorPoles = "MotorPoles"
	ParamKp         = "Kp"
	ParamKi         = "Ki"
)

// DefaultCatalog returns the Manta50 parameter catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Descriptor{
		{ParamNodeID, 0, Integer},
		{ParamEscIndex, 1, Integer},
		{ParamArming, 2, Integer},
		{ParamTelemRate, 3, Integer},
		{ParamCanSpeed, 4, Integer},
		{ParamMaxSpeed, 5, Real},
		{ParamCtrlWord, 6, Integer},
		{ParamMidPoint, 7, Integer},
		{ParamAccel, 8, Real},
		{ParamMotorPoles, 9, Integer},
		{ParamKp, 10, Real},
		{ParamKi, 11, Real},
	})
	if err != nil {
		panic(fmt.Sprintf("manta: default catalog invalid: %v", err))
	}
	return c
}

// NewCatalog validates and builds a catalog. Descriptors must carry unique
// names and contiguous indices 0..N-1, in any order.
func NewCatalog(descriptors []Descriptor) (*Catalog, error) {
	c := &Catalog{
		byIndex: make([]Descriptor, len(descriptors)),
		byName:  make(map[string]Descriptor, len(descriptors)),
	}
	seen := make([]bool, len(descriptors))

	for _, d := range descriptors {
		if d.Index < 0 || d.Index >= len(descriptors) {
			return nil, fmt.Errorf("parameter %q has index %d outside 0..%d", d.Name, d.Index, len(descriptors)-1)
		}
		if seen[d.Index] {
			return nil, fmt.Errorf("duplicate parameter index %d", d.Index)
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter name %q", d.Name)
		}
		seen[d.Index] = true
		c.byIndex[d.Index] = d
		c.byName[d.Name] = d
	}
	return c, nil
}

// Descriptor looks up a parameter by name. A miss means the field is not
// supported by this catalog, never an error.
func (c *Catalog) Descriptor(name string) (Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// ByIndex looks up a parameter by catalog index.
func (c *Catalog) ByIndex(index int) (Descriptor, bool) {
	if index < 0 || index >= len(c.byIndex) {
		return Descriptor{}, false
	}
	return c.byIndex[index], true
}

// Count returns the number of parameters.
func (c *Catalog) Count() int {
	return len(c.byIndex)
}

// IsIntegerIndex reports whether the parameter at index is integer-kind.
// Out-of-range indices report false.
func (c *Catalog) IsIntegerIndex(index int) bool {
	d, ok := c.ByIndex(index)
	return ok && d.Kind == Integer
}

// Names returns the parameter names in index order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.byIndex))
	for i, d := range c.byIndex {
		names[i] = d.Name
	}
	return names
}
