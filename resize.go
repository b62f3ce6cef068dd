// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

// Thresholds for the adaptive branching factor, in percent. A node
// is doubled when the ratio of non-empty children to all children in
// the doubled node would reach the inflate threshold, and halved when
// occupancy falls below the halve threshold. The root is kept denser
// than inner nodes, it pays off to keep it large and stable.
//
// All comparisons are integer fixed point (percent times child
// count), floating point would make rebalancing platform dependent.
const (
	halveThreshold       = 25
	inflateThreshold     = 50
	halveThresholdRoot   = 15
	inflateThresholdRoot = 30

	// maxResizeWork bounds the number of inflate or halve steps one
	// mutation may trigger on a single node, capping writer latency.
	// A skipped step is retried by the next mutation.
	maxResizeWork = 10
)

// shouldInflate applies the fill-factor test from the dynamic-trie
// paper: full children count twice since they split into both halves
// of the doubled node. Division free: 100*(used+full)/(2*len) >= thr
// becomes 50*(used+full) >= thr*len.
func (tn *node) shouldInflate(tp *node) bool {
	used := uint64(childLength(tn))
	threshold := used

	if isTrie(tp) {
		threshold *= inflateThresholdRoot
	} else {
		threshold *= inflateThreshold
	}
	used -= uint64(tn.emptyChildren)
	used += uint64(tn.fullChildren)

	// a node at pos 0 has nothing left to split on
	return used > 1 && tn.pos > 0 && 50*used >= threshold
}

func (tn *node) shouldHalve(tp *node) bool {
	used := uint64(childLength(tn))
	threshold := used

	if isTrie(tp) {
		threshold *= halveThresholdRoot
	} else {
		threshold *= halveThreshold
	}
	used -= uint64(tn.emptyChildren)

	return used > 1 && tn.bits > 1 && 100*used < threshold
}

func (tn *node) shouldCollapse() bool {
	used := childLength(tn) - int(tn.emptyChildren)

	// one child or none, splice the node out
	return used < 2
}

// replace links tn in place of oldtnode with a single pointer swap,
// fixes up the child parent pointers, retires the dead cluster and
// finally resizes the full children of tn, their parent position
// changed by one bit. Returns tn's parent.
func (t *trie) replace(oldtnode, tn *node, dead []*node) *node {
	tp := oldtnode.parentNode()

	tn.setParent(tp)
	t.putChildRoot(tp, tn.key, tn)

	updateChildren(tn)

	for _, d := range dead {
		t.retire(d)
	}

	for i := childLength(tn); i > 0; {
		i--
		if inode := tn.child(i); tnodeFull(tn, inode) {
			tn = t.resize(inode)
		}
	}

	return tp
}

// updateChildren walks the children of a freshly built tn: newly
// built children (already parented to tn) are recursed into, since
// they in turn adopted re-homed old nodes; everything else is
// re-parented to tn.
func updateChildren(tn *node) {
	for i := childLength(tn); i > 0; {
		i--
		inode := tn.child(i)
		if inode == nil {
			continue
		}

		if inode.parentNode() == tn {
			updateChildren(inode)
		} else {
			inode.setParent(tn)
		}
	}
}

// inflate doubles tn's branching factor. Full children are split
// exactly on the new bit into two half-size nodes at 2i and 2i+1;
// everything else is re-homed at its new index with the skipped bits
// untouched. The new structure is built completely before the single
// swap in replace, a concurrent reader sees either shape, never a
// mix. Returns the parent, or nil if the wider node cannot be
// allocated.
func (t *trie) inflate(oldtnode *node) *node {
	log.Tracef("inflate %08x/%d bits=%d", oldtnode.key, oldtnode.pos, oldtnode.bits)

	tn := t.newTnode(oldtnode.key, oldtnode.pos-1, oldtnode.bits+1)
	if tn == nil {
		return nil
	}

	dead := []*node{oldtnode}

	// the bit that moves from the skipped region into the index, it
	// differs between the two halves of a split child
	m := uint32(1) << tn.pos

	for i := childLength(oldtnode); i > 0; {
		i--
		inode := oldtnode.child(i)

		if inode == nil {
			continue
		}

		// a leaf or an internal node with skipped bits
		if !tnodeFull(oldtnode, inode) {
			tn.putChild(int(getIndex(inode.key, tn)), inode)
			continue
		}

		dead = append(dead, inode)

		// an internal node with two children dissolves directly
		if inode.bits == 1 {
			tn.putChild(2*i+1, inode.child(1))
			tn.putChild(2*i, inode.child(0))
			continue
		}

		// split inode into node0/node1, one bit further down; the
		// moved bit is synthesized into the two new keys. Half-size
		// allocations cannot hit the cap when the doubled one did not.
		node1 := t.newTnode(inode.key|m, inode.pos, inode.bits-1)
		node0 := t.newTnode(inode.key, inode.pos, inode.bits-1)

		for k, j := childLength(inode), childLength(inode)/2; j > 0; {
			k--
			j--
			node1.putChild(j, inode.child(k))
			node0.putChild(j, inode.child(j))
		}

		node1.setParent(tn)
		node0.setParent(tn)

		tn.putChild(2*i+1, node1)
		tn.putChild(2*i, node0)
	}

	return t.replace(oldtnode, tn, dead)
}

// halve is the inverse of inflate: sibling pairs are merged under a
// fresh one-bit node, a lone non-empty sibling is promoted directly.
// Returns the parent, or nil if the narrower node cannot be
// allocated.
func (t *trie) halve(oldtnode *node) *node {
	log.Tracef("halve %08x/%d bits=%d", oldtnode.key, oldtnode.pos, oldtnode.bits)

	tn := t.newTnode(oldtnode.key, oldtnode.pos+1, oldtnode.bits-1)
	if tn == nil {
		return nil
	}

	dead := []*node{oldtnode}

	for i := childLength(oldtnode); i > 0; {
		i -= 2
		node1 := oldtnode.child(i + 1)
		node0 := oldtnode.child(i)

		// at most one of the siblings present, promote it
		if node1 == nil || node0 == nil {
			c := node1
			if c == nil {
				c = node0
			}
			tn.putChild(i/2, c)
			continue
		}

		// two non-empty siblings, merge under a one-bit node
		inode := t.newTnode(node0.key, oldtnode.pos, 1)
		inode.putChild(1, node1)
		inode.putChild(0, node0)
		inode.setParent(tn)

		tn.putChild(i/2, inode)
	}

	return t.replace(oldtnode, tn, dead)
}

// collapse splices out a node with at most one child, pointing the
// parent slot at the survivor directly.
func (t *trie) collapse(oldtnode *node) *node {
	var n *node
	for i := childLength(oldtnode); n == nil && i > 0; {
		i--
		n = oldtnode.child(i)
	}

	tp := oldtnode.parentNode()
	t.putChildRoot(tp, oldtnode.key, n)
	n.setParent(tp)

	t.retire(oldtnode)

	return tp
}

// resize rebalances tn: inflate while the fill factor warrants it,
// otherwise halve while occupancy is too low, both bounded by
// maxResizeWork, then collapse if at most one child remains. The node
// may be replaced underneath us, so it is re-fetched through the
// parent slot after every step. Returns tn's current parent.
func (t *trie) resize(tn *node) *node {
	tp := tn.parentNode()
	cindex := int(getIndex(tn.key, tp))
	maxWork := maxResizeWork

	for tn.shouldInflate(tp) && maxWork > 0 {
		tp2 := t.inflate(tn)
		if tp2 == nil {
			t.stats.resizeSkipped.Add(1)
			break
		}

		maxWork--
		tp = tp2
		tn = tp.child(cindex)
	}

	// re-fetch in case inflate bailed out
	tp = tn.parentNode()

	// if at least one inflate ran, leave halving to a later mutation
	if maxWork != maxResizeWork {
		return tp
	}

	for tn.shouldHalve(tp) && maxWork > 0 {
		tp2 := t.halve(tn)
		if tp2 == nil {
			t.stats.resizeSkipped.Add(1)
			break
		}

		maxWork--
		tp = tp2
		tn = tp.child(cindex)
	}

	if tn.shouldCollapse() {
		return t.collapse(tn)
	}

	return tn.parentNode()
}
