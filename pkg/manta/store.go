// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package manta

import "sort"

// StoredValue is one decoded parameter: the catalog index it was
// correlated against and its decoded textual value.
type StoredValue struct {
	Index int
	Value string
}

// Store holds the parameters collected by a fetch session, keyed by the
// name the device reported. Reset at the start of every session; a repeat
// name overwrites the earlier entry.
type Store struct {
	values map[string]StoredValue
}

// NewStore creates an empty parameter store.
func NewStore() *Store {
	return &Store{values: make(map[string]StoredValue)}
}

// Reset discards all collected values.
func (s *Store) Reset() {
	s.values = make(map[string]StoredValue)
}

// Put records a decoded value, overwriting any prior entry for the name.
func (s *Store) Put(name string, index int, value string) {
	s.values[name] = StoredValue{Index: index, Value: value}
}

// Get returns the stored value for a name.
func (s *Store) Get(name string) (StoredValue, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Len returns the number of collected values.
func (s *Store) Len() int {
	return len(s.values)
}

// Complete reports whether every catalog slot has been filled.
func (s *Store) Complete(c *Catalog) bool {
	return len(s.values) == c.Count()
}

// Entry pairs a name with its stored value, for iteration in index order.
type Entry struct {
	Name string
	StoredValue
}

// Entries returns all collected values ordered by correlated index.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.values))
	for name, v := range s.values {
		out = append(out, Entry{Name: name, StoredValue: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
