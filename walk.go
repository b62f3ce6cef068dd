// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

// leafWalkFirst returns the first leaf at or after key, in key order.
// The walk is keyed, not stateful: it carries no stack and can resume
// at any point of a trie that was rebuilt in between, which is what
// makes the iterators safe against a concurrent writer.
func (t *trie) leafWalkFirst(key uint32) *node {
	pn := t.root
	n := pn
	cindex := uint64(0)

	// try to find the key itself first
	for {
		pn = n
		if key > pn.key {
			cindex = getIndex(key, pn)
		} else {
			cindex = 0
		}

		// an index beyond the child capacity means the key diverges
		// from this subtree in the skipped bits
		if cindex>>(pn.bits&63) != 0 {
			break
		}

		n = pn.child(int(cindex))
		cindex++
		if n == nil {
			break
		}

		if n.isLeaf() && n.key >= key {
			return n
		}
		if !n.isTnode() {
			break
		}
	}

	// scan forward for the next leaf with a greater key; cindex was
	// already bumped past the failed slot, so every key reached from
	// here on is greater and needs no comparison
	for !isTrie(pn) {
		if cindex >= uint64(1)<<pn.bits {
			pkey := pn.key

			pn = pn.parentNode()
			cindex = getIndex(pkey, pn) + 1
			continue
		}

		n = pn.child(int(cindex))
		cindex++
		if n == nil {
			continue
		}

		if n.isLeaf() {
			return n
		}

		// restart the scan inside the subtree
		pn = n
		cindex = 0
	}

	return nil
}

// walkLeaves calls yield for every leaf in ascending key order with an
// immutable snapshot of its alias list, stopping early when yield
// returns false. Each step takes its own epoch guard and the
// continuation is the last key plus one, so yield may mutate the trie
// through the writer side: a rebuild between steps costs at most one
// re-descent, never a skipped or repeated surviving leaf.
func (t *trie) walkLeaves(yield func(key uint32, list aliasList) bool) {
	key := uint32(0)
	for {
		g := t.dom.Enter()
		l := t.leafWalkFirst(key)
		if l == nil {
			g.Leave()
			return
		}
		lkey := l.key
		list := l.loadAliases()
		g.Leave()

		// the snapshot outlives the guard, alias lists are
		// immutable once published
		if !yield(lkey, list) {
			return
		}

		key = lkey + 1
		if key == 0 {
			// 255.255.255.255 was the last possible leaf
			return
		}
	}
}
