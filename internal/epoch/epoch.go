// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

// Package epoch implements a small grace-period domain for
// single-writer, many-reader data structures.
//
// Readers take a Guard around each traversal. A writer that has
// unlinked memory calls Synchronize, which returns only when every
// guard taken before the call has been released. Memory unlinked
// before a Synchronize can be reused safely afterwards, no reader can
// still hold a pointer into it.
package epoch

import (
	"runtime"
	"sync/atomic"
)

// Domain tracks readers in two generations. Readers register in the
// current generation; Synchronize flips the generation and waits for
// the previous one to drain.
type Domain struct {
	gen atomic.Uint64

	// reader counters per generation parity, padded apart so the two
	// hot words do not share a cache line.
	readers [2]counter
}

type counter struct {
	n atomic.Int64
	_ [56]byte
}

// Guard marks one reader inside the domain.
type Guard struct {
	d    *Domain
	slot uint64
}

// Enter registers the caller as a reader and returns its guard.
// Enter never blocks.
func (d *Domain) Enter() Guard {
	for {
		gen := d.gen.Load()
		d.readers[gen&1].n.Add(1)

		// the generation may have flipped between the load and the
		// increment; in that window Synchronize could already have
		// drained our slot, so re-check and move over if needed
		if d.gen.Load() == gen {
			return Guard{d: d, slot: gen & 1}
		}
		d.readers[gen&1].n.Add(-1)
	}
}

// Leave releases the guard. Calling Leave twice is a bug.
func (g Guard) Leave() {
	g.d.readers[g.slot].n.Add(-1)
}

// Synchronize waits until every reader that entered before the call
// has left. Only the single writer may call it. Two generation flips
// are needed: a reader racing with the first flip may have registered
// in the old parity just before it was reused.
func (d *Domain) Synchronize() {
	for range 2 {
		old := d.gen.Add(1) - 1

		for d.readers[old&1].n.Load() > 0 {
			runtime.Gosched()
		}
	}
}
