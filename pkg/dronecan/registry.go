// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

import (
	"sort"
	"time"
)

// NodeInfo is one registry entry. Name may be empty until the node
// identifies itself.
type NodeInfo struct {
	ID       uint8
	Name     string
	Status   NodeStatus
	LastSeen time.Time
}

// Registry tracks nodes heard on the bus via their NodeStatus broadcasts.
// Entries are only ever added or refreshed, never removed; consumers poll
// Nodes for a snapshot.
type Registry struct {
	nodes map[uint8]*NodeInfo
}

// NewRegistry creates an empty node registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[uint8]*NodeInfo)}
}

// ObserveStatus records a NodeStatus heard from the given source node.
// Returns true if the node was not seen before.
func (r *Registry) ObserveStatus(source uint8, status NodeStatus) bool {
	info, seen := r.nodes[source]
	if !seen {
		info = &NodeInfo{ID: source}
		r.nodes[source] = info
	}
	info.Status = status
	info.LastSeen = time.Now()
	return !seen
}

// SetName records a display name for a node, if known from other traffic.
func (r *Registry) SetName(source uint8, name string) {
	if info, ok := r.nodes[source]; ok {
		info.Name = name
	}
}

// Nodes returns a snapshot of all known nodes ordered by node ID.
func (r *Registry) Nodes() []NodeInfo {
	out := make([]NodeInfo, 0, len(r.nodes))
	for _, info := range r.nodes {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of known nodes.
func (r *Registry) Count() int {
	return len(r.nodes)
}
