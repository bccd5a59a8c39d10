// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package manta

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/calder-avionics/mantactl/pkg/dronecan"
)

// FetchInterval is the pacing between parameter requests. The firmware
// answers each request as a broadcast log line; pacing one request per
// interval keeps the positional correlation unambiguous.
const FetchInterval = time.Second

// WriteDelay is how long a set command is held after the last edit before
// it is sent, so a value being typed is not written mid-keystroke.
const WriteDelay = 750 * time.Millisecond

// ErrUnknownParameter is returned for a set against a name the catalog
// does not define.
var ErrUnknownParameter = errors.New("unknown parameter")

// Transport sends param.GetSet requests to a node. *dronecan.Bus
// implements it; tests supply a recorder.
type Transport interface {
	RequestGetSet(dest uint8, req dronecan.GetSetRequest, done func(error)) error
}

// Controller drives parameter fetches and writes against one target node
// and folds the device's informational log lines back into the store.
// Not safe for concurrent use; the panel event loop serializes access.
type Controller struct {
	transport Transport
	catalog   *Catalog
	store     *Store
	session   FetchSession
	enums     *EnumDecoder

	completeSeen bool
}

// Outcome is what one log message produced: a display line for the
// diagnostic view, a stored parameter, or nothing.
type Outcome struct {
	Level   dronecan.LogLevel
	Source  string
	LogLine string // decoded diagnostic text, empty for consumed messages

	Stored bool
	Name   string
	Value  string

	Complete bool // set once per session, when the last slot fills
}

// NewController creates a controller over the transport. A nil catalog
// selects the default Manta50 catalog.
func NewController(t Transport, c *Catalog) *Controller {
	if c == nil {
		c = DefaultCatalog()
	}
	return &Controller{
		transport: t,
		catalog:   c,
		store:     NewStore(),
		enums:     NewEnumDecoder(),
	}
}

// Catalog returns the parameter catalog.
func (c *Controller) Catalog() *Catalog {
	return c.catalog
}

// Store returns the collected parameter values.
func (c *Controller) Store() *Store {
	return c.store
}

// StartFetch begins a fetch of every parameter from the target node. Any
// session in progress is superseded and its collected values discarded.
func (c *Controller) StartFetch(target uint8) {
	c.store.Reset()
	c.completeSeen = false
	c.session.Start(target, c.catalog.Count())
}

// AbortFetch stops the current session without discarding values already
// collected.
func (c *Controller) AbortFetch() {
	c.session.Abort()
}

// Fetching reports whether a session still has requests to send.
func (c *Controller) Fetching() bool {
	return c.session.Active()
}

// Target returns the node the current or last session addressed.
func (c *Controller) Target() uint8 {
	return c.session.Target()
}

// Tick sends the next parameter request if a session is active. Called
// once per FetchInterval. A send failure leaves the cursor advanced; the
// slot stays empty and the session keeps going.
func (c *Controller) Tick() error {
	index, ok := c.session.Advance()
	if !ok {
		return nil
	}
	req := dronecan.GetSetRequest{Index: uint16(index), Value: dronecan.EmptyValue()}
	if err := c.transport.RequestGetSet(c.session.Target(), req, nil); err != nil {
		return fmt.Errorf("failed to request parameter %d: %w", index, err)
	}
	return nil
}

// SetInteger writes an integer parameter to the target node.
func (c *Controller) SetInteger(target uint8, name string, value int64) error {
	d, ok := c.catalog.Descriptor(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	if d.Kind != Integer {
		return fmt.Errorf("parameter %q is not integer-valued", name)
	}
	return c.write(target, d, dronecan.IntegerValue(value))
}

// SetReal writes a real-valued parameter to the target node.
func (c *Controller) SetReal(target uint8, name string, value float32) error {
	d, ok := c.catalog.Descriptor(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	if d.Kind != Real {
		return fmt.Errorf("parameter %q is not real-valued", name)
	}
	return c.write(target, d, dronecan.RealValue(value))
}

// SetFromText parses text according to the parameter's kind and writes it.
// Integer parameters accept decimal text and truncate toward zero, so
// "7.9" writes 7.
func (c *Controller) SetFromText(target uint8, name string, text string) error {
	d, ok := c.catalog.Descriptor(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", text, name, err)
	}
	if d.Kind == Integer {
		return c.write(target, d, dronecan.IntegerValue(int64(f)))
	}
	return c.write(target, d, dronecan.RealValue(float32(f)))
}

func (c *Controller) write(target uint8, d Descriptor, v dronecan.Value) error {
	// Point the correlation cursor at the written slot so the log line
	// the firmware echoes back lands on the right parameter.
	c.session.NoteWrite(d.Index)
	req := dronecan.GetSetRequest{Index: uint16(d.Index), Value: v}
	if err := c.transport.RequestGetSet(target, req, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.Name, err)
	}
	return nil
}

// HandleLogMessage folds one debug.LogMessage from the target into the
// controller. Informational messages are parameter echoes: everything
// after the first token is the value, correlated against the most
// recently requested index. Everything else is diagnostic text,
// returned enum-decoded for display. Malformed echoes are dropped.
func (c *Controller) HandleLogMessage(m dronecan.LogMessage) Outcome {
	if m.Level != dronecan.LogInfo {
		return Outcome{
			Level:   m.Level,
			Source:  m.Source,
			LogLine: c.enums.Decode(m.Text),
		}
	}

	fields := strings.Fields(m.Text)
	if len(fields) < 2 {
		return Outcome{Level: m.Level, Source: m.Source}
	}
	index := c.session.LastSent()
	d, ok := c.catalog.ByIndex(index)
	if !ok {
		return Outcome{Level: m.Level, Source: m.Source}
	}

	value := strings.Join(fields[1:], " ")
	if d.Kind == Integer {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Outcome{Level: m.Level, Source: m.Source}
		}
		value = strconv.FormatInt(int64(f), 10)
	}
	// Correlation is purely positional: the echo's own name token is not
	// consulted, and the store key comes from the catalog. A delayed echo
	// lands under the name of whatever index was requested last.
	c.store.Put(d.Name, d.Index, value)

	out := Outcome{
		Level:  m.Level,
		Source: m.Source,
		Stored: true,
		Name:   d.Name,
		Value:  value,
	}
	if !c.completeSeen && c.store.Complete(c.catalog) {
		c.completeSeen = true
		out.Complete = true
	}
	return out
}
