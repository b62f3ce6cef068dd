// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

// Package golden implements a simple and slow route table as a golden
// reference for the trie: a flat slice of routes, longest-prefix match
// by linear scan.
package golden

import (
	"fmt"
	"net/netip"
	"slices"
)

// Route is one golden table entry.
type Route struct {
	Pfx      netip.Prefix
	TOS      uint8
	Priority uint32
}

func (r Route) String() string {
	return fmt.Sprintf("(%s tos=%d prio=%d)", r.Pfx, r.TOS, r.Priority)
}

// Table is the reference route table.
type Table []Route

// Insert adds r, de-duping on (prefix, tos, priority).
func (t *Table) Insert(r Route) {
	r.Pfx = r.Pfx.Masked()
	for _, item := range *t {
		if item.Pfx == r.Pfx && item.TOS == r.TOS && item.Priority == r.Priority {
			return
		}
	}
	*t = append(*t, r)
}

// Delete removes the route with the same (prefix, tos, priority).
func (t *Table) Delete(r Route) (exists bool) {
	r.Pfx = r.Pfx.Masked()
	for i, item := range *t {
		if item.Pfx == r.Pfx && item.TOS == r.TOS && item.Priority == r.Priority {
			*t = slices.Delete(*t, i, i+1)
			return true
		}
	}
	return false
}

// Lookup returns the best route for addr: longest prefix wins, ties
// broken by matching TOS before TOS zero, then by lowest priority.
func (t Table) Lookup(addr netip.Addr, tos uint8) (best Route, ok bool) {
	bestTOS := false
	for _, item := range t {
		if !item.Pfx.Contains(addr) {
			continue
		}
		if item.TOS != 0 && item.TOS != tos {
			continue
		}
		exactTOS := item.TOS == tos && tos != 0

		switch {
		case !ok,
			item.Pfx.Bits() > best.Pfx.Bits():
			// first or longer match
		case item.Pfx.Bits() < best.Pfx.Bits():
			continue
		case exactTOS && !bestTOS:
			// same length, better TOS
		case !exactTOS && bestTOS:
			continue
		case item.Priority < best.Priority:
			// same length and TOS class, lower priority
		default:
			continue
		}

		best = item
		ok = true
		bestTOS = exactTOS
	}
	return best, ok
}

// AllSorted returns the routes sorted by address, then most specific
// prefix first, then priority. This is the iteration order of the
// trie.
func (t Table) AllSorted() []Route {
	out := slices.Clone([]Route(t))
	slices.SortFunc(out, func(a, b Route) int {
		if c := a.Pfx.Addr().Compare(b.Pfx.Addr()); c != 0 {
			return c
		}
		if c := b.Pfx.Bits() - a.Pfx.Bits(); c != 0 {
			return c
		}
		return int(int64(a.Priority) - int64(b.Priority))
	})
	return out
}
