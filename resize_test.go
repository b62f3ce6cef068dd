// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import (
	"sync/atomic"
	"testing"
)

func fillSlots(tn *node, slots ...int) {
	for _, i := range slots {
		key := tn.key | uint32(i)<<tn.pos
		tn.putChild(i, newTestLeaf(key, 0))
	}
}

func TestShouldInflate(t *testing.T) {
	t.Parallel()

	parent := newTestTnode(0, 16, 1)
	root := &node{pos: keyLen, children: make([]atomic.Pointer[node], 1)}

	t.Run("full node inflates", func(t *testing.T) {
		tn := newTestTnode(0, 8, 2)
		fillSlots(tn, 0, 1, 2, 3)
		if !tn.shouldInflate(parent) {
			t.Error("fully occupied bits=2 node should inflate")
		}
	})

	t.Run("half full does not", func(t *testing.T) {
		tn := newTestTnode(0, 8, 2)
		fillSlots(tn, 0, 3)
		if tn.shouldInflate(parent) {
			t.Error("half occupied bits=2 node must not inflate")
		}
	})

	t.Run("root threshold is lower", func(t *testing.T) {
		tn := newTestTnode(0, 8, 2)
		fillSlots(tn, 0, 1, 3)
		if tn.shouldInflate(parent) {
			t.Error("3 of 4 must not inflate under an inner parent")
		}
		if !tn.shouldInflate(root) {
			t.Error("3 of 4 should inflate directly under the root")
		}
	})

	t.Run("full children count twice", func(t *testing.T) {
		tn := newTestTnode(0, 8, 2)
		fillSlots(tn, 1, 2)
		// a full child splits into both halves of the doubled node
		full := newTestTnode(0, 4, 4)
		tn.putChild(0, full)
		if !tn.shouldInflate(parent) {
			t.Error("2 leaves + 1 full child should reach the inflate threshold")
		}
	})

	t.Run("pos 0 cannot split further", func(t *testing.T) {
		tn := newTestTnode(0, 0, 2)
		fillSlots(tn, 0, 1, 2, 3)
		if tn.shouldInflate(parent) {
			t.Error("node at pos 0 must never inflate")
		}
	})
}

func TestShouldHalveCollapse(t *testing.T) {
	t.Parallel()

	parent := newTestTnode(0, 16, 1)

	t.Run("sparse wide node halves", func(t *testing.T) {
		tn := newTestTnode(0, 8, 4)
		fillSlots(tn, 0, 5, 9)
		if !tn.shouldHalve(parent) {
			t.Error("3 of 16 should halve")
		}
	})

	t.Run("quarter full does not halve", func(t *testing.T) {
		tn := newTestTnode(0, 8, 4)
		fillSlots(tn, 0, 3, 7, 11)
		if tn.shouldHalve(parent) {
			t.Error("4 of 16 sits on the threshold, must not halve")
		}
	})

	t.Run("one bit node never halves", func(t *testing.T) {
		tn := newTestTnode(0, 8, 1)
		fillSlots(tn, 0, 1)
		if tn.shouldHalve(parent) {
			t.Error("bits=1 node must never halve")
		}
	})

	t.Run("collapse below two children", func(t *testing.T) {
		tn := newTestTnode(0, 8, 2)
		fillSlots(tn, 2)
		if !tn.shouldCollapse() {
			t.Error("single child node should collapse")
		}
		tn.putChild(1, newTestLeaf(0x100, 0))
		if tn.shouldCollapse() {
			t.Error("two child node must not collapse")
		}
	})
}

// TestResizeSkipped checks that the allocation cap denies oversized
// nodes, the failure mode the resize engine absorbs.
func TestResizeSkipped(t *testing.T) {
	t.Parallel()

	tr := newTrie()
	if tn := tr.newTnode(0, 4, maxAllocBits+1); tn != nil {
		t.Fatal("tnode over the allocation cap was allocated")
	}

	if got := tr.pool.getTnode(maxAllocBits + 1); got != nil {
		t.Fatal("pool handed out an over-cap node")
	}
	if got := tr.pool.getTnode(0); got != nil {
		t.Fatal("pool handed out a zero-bits internal node")
	}
}
