// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import "testing"

// checkTrie validates the structural invariants of the whole trie:
// parent pointers, child counters, the occupancy bitset, cached suffix
// lengths, alias list ordering and the balance fixpoint (no internal
// node left with pending halve or collapse work). Called after every
// mutation in the tests that use it.
func checkTrie(t *testing.T, tb *Table) {
	t.Helper()

	root := tb.t.root
	n := root.child(0)
	if n == nil {
		if tb.size != 0 {
			t.Fatalf("empty trie but size = %d", tb.size)
		}
		return
	}

	if n.parentNode() != root {
		t.Fatalf("trie child has parent %p, want root", n.parentNode())
	}

	routes := checkNode(t, n)
	if routes != tb.size {
		t.Fatalf("trie holds %d aliases, table size = %d", routes, tb.size)
	}
}

func checkNode(t *testing.T, n *node) (routes int) {
	t.Helper()

	if n.isLeaf() {
		return checkLeaf(t, n)
	}

	if n.bits == 0 || uint(n.pos)+uint(n.bits) > keyLen {
		t.Fatalf("node %08x has invalid pos/bits %d/%d", n.key, n.pos, n.bits)
	}

	var empty, full uint32
	maxSlen := n.pos

	for i := 0; i < childLength(n); i++ {
		c := n.child(i)

		if c == nil {
			empty++
			if n.occupied.Test(uint(i)) {
				t.Fatalf("node %08x: empty slot %d marked occupied", n.key, i)
			}
			continue
		}
		if !n.occupied.Test(uint(i)) {
			t.Fatalf("node %08x: slot %d not marked occupied", n.key, i)
		}

		if c.parentNode() != n {
			t.Fatalf("node %08x slot %d: child has wrong parent", n.key, i)
		}
		if got := getIndex(c.key, n); got != uint64(i) {
			t.Fatalf("node %08x slot %d: child key %08x indexes to %d", n.key, i, c.key, got)
		}
		if uint(c.pos)+uint(c.bits) > uint(n.pos) {
			t.Fatalf("node %08x slot %d: child window %d/%d overlaps parent pos %d",
				n.key, i, c.pos, c.bits, n.pos)
		}

		if tnodeFull(n, c) {
			full++
		}
		if cs := c.suffixLen(); cs > maxSlen {
			maxSlen = cs
		}

		routes += checkNode(t, c)
	}

	if n.emptyChildren != empty {
		t.Fatalf("node %08x: emptyChildren = %d, counted %d", n.key, n.emptyChildren, empty)
	}
	if n.fullChildren != full {
		t.Fatalf("node %08x: fullChildren = %d, counted %d", n.key, n.fullChildren, full)
	}
	if got := n.suffixLen(); got != maxSlen {
		t.Fatalf("node %08x: slen = %d, children say %d", n.key, got, maxSlen)
	}

	// balance fixpoint: no pending shrink work after any mutation
	tp := n.parentNode()
	if n.shouldHalve(tp) {
		t.Fatalf("node %08x bits=%d left in halvable state", n.key, n.bits)
	}
	if n.shouldCollapse() {
		t.Fatalf("node %08x bits=%d left in collapsible state", n.key, n.bits)
	}

	return routes
}

func checkLeaf(t *testing.T, n *node) (routes int) {
	t.Helper()

	list := n.loadAliases()
	if len(list) == 0 {
		t.Fatalf("leaf %08x has no aliases", n.key)
	}

	for i, fa := range list {
		if fa.slen > keyLen {
			t.Fatalf("leaf %08x: alias slen %d out of range", n.key, fa.slen)
		}
		if key := n.key; fa.slen < keyLen && key<<(keyLen-fa.slen) != 0 {
			// host bits below the prefix must be zero in the leaf key
			t.Fatalf("leaf %08x: key has bits below /%d", n.key, fa.plen())
		}

		if i == 0 {
			continue
		}
		prev := list[i-1]
		ordered := prev.slen < fa.slen ||
			(prev.slen == fa.slen && prev.tableID > fa.tableID) ||
			(prev.slen == fa.slen && prev.tableID == fa.tableID && prev.tos > fa.tos) ||
			(prev.slen == fa.slen && prev.tableID == fa.tableID && prev.tos == fa.tos &&
				prev.priority <= fa.priority)
		if !ordered {
			t.Fatalf("leaf %08x: aliases %d and %d out of order", n.key, i-1, i)
		}
	}

	if got, want := n.suffixLen(), list[len(list)-1].slen; got != want {
		t.Fatalf("leaf %08x: slen = %d, tail alias has %d", n.key, got, want)
	}

	return len(list)
}
