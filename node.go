// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import (
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

const (
	keyLen = 32 // bits in a key

	// maxAllocBits caps the branching factor of a single node; a
	// wider node would need a child array beyond any sensible size.
	// Hitting the cap is treated like an allocation failure: the
	// resize step is skipped and the trie stays valid but unbalanced.
	maxAllocBits = 24
)

// node is the key vector shared by leaves and internal nodes.
//
// To understand the key handling consider a node n and its parent tp.
// The bits of n.key above tp.pos+tp.bits are common to the whole
// subtrie under tp. The bits from tp.pos to tp.pos+tp.bits-1 are n's
// index in tp's child array. The bits from n.pos+n.bits to tp.pos-1
// are skipped: they do not discriminate between n's children, but
// they are identical for every key below n, which is why a lookup
// must verify them once it reaches a leaf (prefixMismatch).
//
// A leaf has bits == 0 and owns an ordered alias list for exactly one
// key. An internal node has bits > 0 and owns 2^bits child slots.
//
// key, pos and bits are immutable once the node is published. The
// suffix length and the child and parent pointers are written by the
// single writer and read by concurrent lock-free readers, so they are
// atomics. The child counters and the occupancy bitset are writer
// private.
type node struct {
	key  uint32
	pos  uint8
	bits uint8

	// slen caches the maximum suffix length reachable at or below
	// this node; lookups use it to prune backtracking.
	slen atomic.Uint32

	parent atomic.Pointer[node]

	// leaf payload, bits == 0
	aliases atomic.Pointer[aliasList]

	// internal payload, bits > 0
	children []atomic.Pointer[node]

	// writer-side bookkeeping: emptyChildren counts nil slots,
	// fullChildren counts children that are internal nodes with no
	// skipped bits. occupied mirrors the non-nil slots for the scans
	// in updateSuffix, halve and collapse.
	emptyChildren uint32
	fullChildren  uint32
	occupied      *bitset.BitSet
}

func (n *node) isLeaf() bool  { return n.bits == 0 }
func (n *node) isTnode() bool { return n.bits != 0 }

// isTrie reports whether n is the artificial root vector that covers
// the whole key space.
func isTrie(n *node) bool { return n.pos >= keyLen }

// childLength returns the number of child slots, zero for a leaf.
func childLength(n *node) int {
	return (1 << n.bits) &^ 1
}

// getIndex extracts the child index of key relative to n. An index
// of 1<<n.bits or larger means key disagrees with n.key in the
// skipped bits above n's index region.
func getIndex(key uint32, n *node) uint64 {
	return uint64(key^n.key) >> (n.pos & 63)
}

// prefixMismatch reports, as a non-zero value, any bit that differs
// between key and n.key at or above n.key's lowest set bit. For the
// all-zeros key it reports zero, the alias suffix check then decides.
func prefixMismatch(key uint32, n *node) uint32 {
	p := n.key
	return (key ^ p) & (p | -p)
}

func (n *node) child(i int) *node {
	return n.children[i].Load()
}

func (n *node) parentNode() *node {
	return n.parent.Load()
}

func (n *node) setParent(tp *node) {
	if n != nil {
		n.parent.Store(tp)
	}
}

func (n *node) suffixLen() uint8 {
	return uint8(n.slen.Load())
}

func (n *node) setSuffixLen(slen uint8) {
	n.slen.Store(uint32(slen))
}

func (n *node) loadAliases() aliasList {
	if p := n.aliases.Load(); p != nil {
		return *p
	}
	return nil
}

func (n *node) storeAliases(l aliasList) {
	n.aliases.Store(&l)
}

// tnodeFull reports whether n is an internal child of tn with no
// skipped bits, so it can be split exactly on tn's next lower bit.
func tnodeFull(tn, n *node) bool {
	return n != nil && n.isTnode() && uint(n.pos)+uint(n.bits) == uint(tn.pos)
}

// putChild writes child slot i of tn. This is the single choke point
// for slot writes: it keeps the empty and full counters and the
// occupancy bitset in sync, propagates a grown suffix length into tn
// and publishes the slot with one atomic store.
func (tn *node) putChild(i int, n *node) {
	chi := tn.child(i)

	if n == nil && chi != nil {
		tn.emptyChildren++
	}
	if n != nil && chi == nil {
		tn.emptyChildren--
	}

	wasFull := tnodeFull(tn, chi)
	isFull := tnodeFull(tn, n)

	if wasFull && !isFull {
		tn.fullChildren--
	} else if !wasFull && isFull {
		tn.fullChildren++
	}

	if n != nil && tn.suffixLen() < n.suffixLen() {
		tn.setSuffixLen(n.suffixLen())
	}

	if n == nil {
		tn.occupied.Clear(uint(i))
	} else {
		tn.occupied.Set(uint(i))
	}

	tn.children[i].Store(n)
}

// updateSuffix recomputes tn's cached suffix length from its
// children and returns the new value. Only child slot 0 can reach
// pos+bits, every other slot is bounded by its index's trailing
// zeros, so the scan stops early once the bound is hit.
func (tn *node) updateSuffix() uint8 {
	slen := tn.pos
	slenMax := min(tn.pos+tn.bits-1, tn.suffixLen())

	for i, ok := tn.occupied.NextSet(0); ok; i, ok = tn.occupied.NextSet(i + 1) {
		n := tn.child(int(i))
		if n == nil {
			continue
		}
		if cs := n.suffixLen(); cs > slen {
			slen = cs
			if slen >= slenMax {
				break
			}
		}
	}

	tn.setSuffixLen(slen)
	return slen
}

// pushSuffix grows the cached suffix length on the path from tn to
// the root. Pushing only ever increases ancestor values and stops at
// the first ancestor that is already large enough.
func pushSuffix(tn *node, slen uint8) {
	for tn.suffixLen() < slen {
		tn.setSuffixLen(slen)
		tn = tn.parentNode()
	}
}

// pullSuffix shrinks stale cached suffix lengths on the path from tn
// upward after a removal. An ancestor is rescanned only while its
// cached value both exceeds its own position and the pulled value,
// bounded by the trie depth.
func pullSuffix(tn *node, slen uint8) {
	nodeSlen := tn.suffixLen()

	for nodeSlen > tn.pos && nodeSlen > slen {
		slen = tn.updateSuffix()
		if nodeSlen == slen {
			break
		}

		tn = tn.parentNode()
		nodeSlen = tn.suffixLen()
	}
}
