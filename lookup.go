// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

// lookupFilter carries the semantic-match filters applied to the
// alias list of a candidate leaf.
type lookupFilter struct {
	tos             uint8
	scope           Scope
	oif             int32 // 0 matches any interface
	ignoreLinkState bool
}

// lookupKey finds the longest-prefix match for key.
//
// Phase one descends along key: at every level the child index is
// computed from the xor with the node key; an index at or beyond the
// child capacity means a mismatch in the skipped bits. Whenever a
// node's suffix length exceeds its position something below it may
// still be a shorter viable match, so (node, index) is recorded as
// the backtrack bookmark, overwriting the previous one.
//
// Phase two verifies candidates: a leaf must agree with key outside
// the already-matched region (prefixMismatch) and carry an alias
// whose suffix covers the difference. On failure the lookup resumes
// at the bookmark, strips the lowest set bit from the sibling index
// and descends the zero-index chain of the next untried sibling.
//
// The walk is read-only and lock-free; the caller holds an epoch
// guard. Depth bounds it to 32 levels down plus 32 levels back up.
func (t *trie) lookupKey(key uint32, f lookupFilter) (*alias, *node, error) {
	pn := t.root
	cindex := uint64(0)

	n := pn.child(0)
	if n == nil {
		return nil, nil, ErrNotFound
	}

	t.stats.gets.Add(1)

	// backtrack pops to the bookmark, strips the lowest set bit from
	// the untried sibling set and steps into the next candidate.
	// Reports false when the trie is exhausted at the root.
	backtrack := func() bool {
		for {
			for cindex == 0 {
				if isTrie(pn) {
					return false
				}
				t.stats.backtracks.Add(1)

				pkey := pn.key
				pn = pn.parentNode()
				cindex = getIndex(pkey, pn)
			}

			// strip the least significant bit from the index
			cindex &= cindex - 1

			if next := pn.child(int(cindex)); next != nil {
				n = next
				return true
			}
			t.stats.nullNodeHits.Add(1)
		}
	}

	// phase 1: travel to the longest potential match
	for {
		index := getIndex(key, n)

		if index >= uint64(1)<<n.bits {
			// mismatch in the skipped bits, sort it out below
			break
		}

		if n.isLeaf() {
			// exact key, the prefix comparison is already done
			if fa, err := t.matchLeaf(n, key, f); fa != nil || err != nil {
				return fa, n, err
			}
			if !backtrack() {
				return nil, nil, ErrNotFound
			}
			break
		}

		// record the bookmark only if there are bits to chop later
		if uint(n.suffixLen()) > uint(n.pos) {
			pn = n
			cindex = index
		}

		next := n.child(int(index))
		if next == nil {
			t.stats.nullNodeHits.Add(1)
			if !backtrack() {
				return nil, nil, ErrNotFound
			}
			break
		}
		n = next
	}

	// phase 2: check candidates along the zero-index chains,
	// backtracking on every dead end
	for {
		if prefixMismatch(key, n) != 0 || n.suffixLen() == n.pos {
			if !backtrack() {
				return nil, nil, ErrNotFound
			}
			continue
		}

		if n.isLeaf() {
			if fa, err := t.matchLeaf(n, key, f); fa != nil || err != nil {
				return fa, n, err
			}
			if !backtrack() {
				return nil, nil, ErrNotFound
			}
			continue
		}

		next := n.child(0)
		if next == nil {
			t.stats.nullNodeHits.Add(1)
			if !backtrack() {
				return nil, nil, ErrNotFound
			}
			continue
		}
		n = next
	}
}

// matchLeaf scans the ordered alias list of leaf n. List order
// guarantees the first alias passing all filters is also the best
// one: most specific prefix first, then lowest priority. A non-nil
// error without alias reports an administrative route kind.
func (t *trie) matchLeaf(n *node, key uint32, f lookupFilter) (*alias, error) {
	// the difference must be confined to the alias suffix
	index := uint64(key ^ n.key)

	for _, fa := range n.loadAliases() {
		if index >= uint64(1)<<fa.slen {
			continue
		}
		if fa.tos != 0 && fa.tos != f.tos {
			continue
		}
		if fa.info != nil && fa.info.Scope < f.scope {
			continue
		}

		// an administrative kind rejects even when its nexthop is
		// dead, the nexthop state only gates forwarding entries
		if err := fa.kind.err(); err != nil {
			t.stats.semanticMatchPassed.Add(1)
			return nil, err
		}
		if fa.info != nil {
			if fa.info.Dead() {
				continue
			}
			if fa.info.LinkDown() && !f.ignoreLinkState {
				continue
			}
			if f.oif != 0 && fa.info.OIF != 0 && fa.info.OIF != f.oif {
				continue
			}
		}

		t.stats.semanticMatchPassed.Add(1)
		return fa, nil
	}

	t.stats.semanticMatchMiss.Add(1)
	return nil, nil
}
