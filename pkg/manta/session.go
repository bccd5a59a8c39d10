// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package manta

// FetchSession is the cursor state machine that walks the catalog one
// request per tick. Reaching the end only means all requests were sent;
// responses arrive asynchronously and their collection is tracked by the
// Store, not here.
type FetchSession struct {
	target   uint8
	next     int
	count    int
	active   bool
	lastSent int
}

// Start begins a new session against the target node, superseding any
// session in progress. The caller is responsible for resetting the store.
func (s *FetchSession) Start(target uint8, count int) {
	s.target = target
	s.next = 0
	s.count = count
	s.active = true
	s.lastSent = -1
}

// Abort stops the session without sending further requests.
func (s *FetchSession) Abort() {
	s.active = false
}

// Active reports whether requests remain to be sent.
func (s *FetchSession) Active() bool {
	return s.active
}

// Target returns the node the session is addressed to.
func (s *FetchSession) Target() uint8 {
	return s.target
}

// Advance returns the next index to request and moves the cursor. When the
// cursor passes the last index the session goes idle and ok is false.
func (s *FetchSession) Advance() (index int, ok bool) {
	if !s.active {
		return 0, false
	}
	if s.next >= s.count {
		s.active = false
		return 0, false
	}
	index = s.next
	s.next++
	s.lastSent = index
	return index, true
}

// LastSent returns the most recently requested index, or -1 if nothing has
// been sent. Responses are correlated positionally against this value.
func (s *FetchSession) LastSent() int {
	return s.lastSent
}

// NoteWrite points the correlation cursor at index, as if it had just been
// requested. Set commands use this so the device's echoed log line is
// attributed to the written parameter.
func (s *FetchSession) NoteWrite(index int) {
	s.lastSent = index
}
