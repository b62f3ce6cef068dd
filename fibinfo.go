// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import "sync/atomic"

// Scope of a route, narrower scopes have larger values.
type Scope uint8

const (
	ScopeUniverse Scope = 0
	ScopeSite     Scope = 200
	ScopeLink     Scope = 253
	ScopeHost     Scope = 254
	ScopeNowhere  Scope = 255
)

func (s Scope) String() string {
	switch s {
	case ScopeUniverse:
		return "universe"
	case ScopeSite:
		return "site"
	case ScopeLink:
		return "link"
	case ScopeHost:
		return "host"
	case ScopeNowhere:
		return "nowhere"
	}
	return "unknown"
}

// FibInfo is the nexthop information shared by one or more routes.
// It is created and owned outside the trie; the trie stores a
// reference and consults only Scope, the dead flag and the output
// interface during lookup filtering.
//
// FibInfo is reference counted so that external owners can tell when
// the last route using it has been deleted. The trie retains a
// reference on insert and releases it on delete and on replace.
type FibInfo struct {
	refcnt atomic.Int32

	// Scope and OIF are immutable after creation.
	Scope Scope
	OIF   int32 // output interface index, 0 matches any

	dead     atomic.Bool
	linkDown atomic.Bool
}

// NewFibInfo returns a FibInfo with one reference held by the caller.
func NewFibInfo(scope Scope, oif int32) *FibInfo {
	fi := &FibInfo{Scope: scope, OIF: oif}
	fi.refcnt.Store(1)
	return fi
}

// Retain increments the reference count and returns fi for chaining.
func (fi *FibInfo) Retain() *FibInfo {
	if fi != nil {
		fi.refcnt.Add(1)
	}
	return fi
}

// Release drops one reference. The final release only marks the info
// unreferenced, reclamation is left to the garbage collector.
func (fi *FibInfo) Release() {
	if fi != nil {
		fi.refcnt.Add(-1)
	}
}

// Refs returns the current reference count.
func (fi *FibInfo) Refs() int32 {
	if fi == nil {
		return 0
	}
	return fi.refcnt.Load()
}

// Dead reports whether the nexthop has been administratively killed.
// Dead routes are skipped by Lookup and reaped by [Table.Flush].
func (fi *FibInfo) Dead() bool {
	return fi != nil && fi.dead.Load()
}

// SetDead marks the nexthop dead. Safe for concurrent use.
func (fi *FibInfo) SetDead() {
	fi.dead.Store(true)
}

// LinkDown reports whether the outgoing link is down.
func (fi *FibInfo) LinkDown() bool {
	return fi != nil && fi.linkDown.Load()
}

// SetLinkDown sets or clears the link-down state.
func (fi *FibInfo) SetLinkDown(down bool) {
	fi.linkDown.Store(down)
}
