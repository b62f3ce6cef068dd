// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import (
	"math/bits"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/netfab/fibtrie/internal/epoch"
)

var log = logrus.WithField("component", "fibtrie")

// syncMemDefault is the amount of retired node memory that may pile
// up before the writer waits for a grace period and recycles it.
// Same default as the kernel's fib_sync_mem sysctl.
const syncMemDefault = 512 * 1024

// trie is one LPC-trie instance. All mutating methods require the
// external single-writer serialization provided by Table; the lookup
// and walk methods are safe for concurrent lock-free use.
type trie struct {
	// root is the artificial key vector covering the whole key
	// space: pos == keyLen with a single child slot.
	root *node

	pool *nodePool
	dom  epoch.Domain

	// deferred free list of unlinked nodes, flushed through the
	// epoch domain once deferredBytes crosses syncMem.
	deferred      []*node
	deferredBytes int
	syncMem       int

	stats useStats
}

// useStats are the lookup and resize counters, updated atomically
// since readers bump them concurrently.
type useStats struct {
	gets                atomic.Uint64
	backtracks          atomic.Uint64
	semanticMatchPassed atomic.Uint64
	semanticMatchMiss   atomic.Uint64
	nullNodeHits        atomic.Uint64
	resizeSkipped       atomic.Uint64
}

func newTrie() *trie {
	root := &node{
		pos:      keyLen,
		children: make([]atomic.Pointer[node], 1),
	}
	root.setSuffixLen(keyLen)

	return &trie{
		root:    root,
		pool:    newNodePool(),
		syncMem: syncMemDefault,
	}
}

// retire puts an unlinked node on the deferred free list. Readers in
// flight may still traverse it, so it goes back to the pool only
// after a grace period. The flush is batched by retired bytes to
// amortize the synchronization cost.
func (t *trie) retire(n *node) {
	t.deferred = append(t.deferred, n)
	t.deferredBytes += nodeSize(n)

	if t.deferredBytes >= t.syncMem {
		t.flushDeferred()
	}
}

// flushDeferred waits for all in-flight readers and recycles the
// deferred nodes. Called by the writer only.
func (t *trie) flushDeferred() {
	if len(t.deferred) == 0 {
		return
	}

	t.dom.Synchronize()

	for _, n := range t.deferred {
		t.pool.put(n)
	}
	t.deferred = t.deferred[:0]
	t.deferredBytes = 0
}

// newTnode allocates an internal node for the given key slice. It
// returns nil when bits exceeds the allocation cap, the caller skips
// the resize step in that case.
func (t *trie) newTnode(key uint32, pos, bits uint8) *node {
	shift := uint(pos) + uint(bits)
	if bits == 0 || shift > keyLen {
		panic("fibtrie: tnode with invalid pos/bits")
	}

	tn := t.pool.getTnode(bits)
	if tn == nil {
		return nil
	}

	if shift < keyLen {
		tn.key = key >> shift << shift
	} else {
		tn.key = 0
	}
	tn.pos = pos
	tn.bits = bits
	tn.setSuffixLen(pos)
	tn.emptyChildren = 1 << bits
	tn.fullChildren = 0

	return tn
}

// newLeaf allocates a leaf for key holding fa as its only alias.
func (t *trie) newLeaf(key uint32, fa *alias) *node {
	l := t.pool.getLeaf()
	l.key = key
	l.pos = 0
	l.bits = 0
	l.setSuffixLen(fa.slen)
	l.storeAliases(aliasList{fa})
	return l
}

// putChildRoot writes the child slot for key under tp, which may be
// the artificial root vector.
func (t *trie) putChildRoot(tp *node, key uint32, n *node) {
	if isTrie(tp) {
		tp.children[0].Store(n)
		return
	}
	tp.putChild(int(getIndex(key, tp)), n)
}

// findNode walks down to the leaf with exactly the given key.
// It returns the leaf or nil, and the parent under which the key
// belongs, the insertion point for a missing leaf.
func (t *trie) findNode(key uint32) (l, tp *node) {
	n := t.root
	index := uint64(0)

	for {
		tp = n
		n = tp.child(int(index))
		if n == nil {
			return nil, tp
		}

		// one combined check: an index at or beyond the child
		// capacity means key disagrees with n in the skipped bits
		index = getIndex(key, n)
		if index >= uint64(1)<<n.bits {
			return nil, tp
		}

		if n.isLeaf() {
			return n, tp
		}
	}
}

// insertNode adds a new leaf for key under tp. If tp's slot for key
// is already taken by a subtree with a diverging key, a one-bit
// internal node is synthesized at the first differing bit, holding
// the old subtree and the new leaf; the skipped bits between the new
// node and its parent stay implicit. Afterwards the path to the root
// is rebalanced bottom-up.
func (t *trie) insertNode(tp *node, fa *alias, key uint32) {
	l := t.newLeaf(key, fa)

	var index uint64
	if !isTrie(tp) {
		index = getIndex(key, tp)
	}
	n := tp.child(int(index))

	if n != nil {
		// diverging subtree in the slot, split on the highest
		// differing bit
		pos := uint8(31 - bits.LeadingZeros32(key^n.key))
		tn := t.newTnode(key, pos, 1)

		tn.setParent(tp)
		tn.putChild(int(getIndex(key, tn))^1, n)

		t.putChildRoot(tp, key, tn)
		n.setParent(tn)

		// the parent now has a free slot for the new leaf
		tp = tn
	}

	pushSuffix(tp, fa.slen)
	l.setParent(tp)
	t.putChildRoot(tp, key, l)
	t.rebalance(tp)
}

// insertAlias links fa into the trie at key. If l is nil a new leaf
// is created under tp. Otherwise fa is spliced into l's ordered list
// before index at, or at the (slen, tableID) tail position when at is
// negative.
func (t *trie) insertAlias(tp, l *node, fa *alias, at int, key uint32) {
	if l == nil {
		t.insertNode(tp, fa, key)
		return
	}

	l.storeAliases(l.loadAliases().insertAt(fa, at))

	// a new most generic alias grows the leaf's suffix length
	if l.suffixLen() < fa.slen {
		l.setSuffixLen(fa.slen)
		pushSuffix(tp, fa.slen)
	}
}

// removeAlias unlinks the alias at index i from leaf l. An emptied
// leaf is detached and the path rebalanced; otherwise the leaf's
// suffix length is recomputed from the remaining tail and pulled
// upward if it shrank.
func (t *trie) removeAlias(tp, l *node, i int) {
	list := l.loadAliases()
	nl := list.deleteAt(i)

	if len(nl) == 0 {
		if tp.suffixLen() == l.suffixLen() {
			pullSuffix(tp, tp.pos)
		}
		t.putChildRoot(tp, l.key, nil)
		t.retire(l)
		t.rebalance(tp)
		return
	}

	l.storeAliases(nl)

	// the list is ordered by ascending slen, the tail is the max
	if slen := nl[len(nl)-1].slen; l.suffixLen() != slen {
		l.setSuffixLen(slen)
		pullSuffix(tp, slen)
	}
}

// rebalance walks from tn back to the root, resizing every node on
// the way. resize returns the current parent since the node itself
// may have been replaced.
func (t *trie) rebalance(tn *node) {
	for !isTrie(tn) {
		tn = t.resize(tn)
	}
}

// flushLeaves walks the trie in reverse order, dropping every alias
// for which drop returns true, and returns the number dropped. On the
// way back up it refreshes stale suffix lengths and resizes completed
// nodes, so the balance fixpoint holds again when it returns. Emptied
// leaves are detached and retired.
func (t *trie) flushLeaves(drop func(*alias) bool) int {
	pn := t.root
	cindex := uint64(1)
	found := 0

	for {
		if cindex == 0 {
			pkey := pn.key

			if isTrie(pn) {
				break
			}

			// refresh the suffix to account for pulled leaves
			if pn.suffixLen() > pn.pos {
				pn.updateSuffix()
			}

			pn = t.resize(pn)
			cindex = getIndex(pkey, pn)
			continue
		}
		cindex--

		n := pn.child(int(cindex))
		if n == nil {
			continue
		}

		if n.isTnode() {
			pn = n
			cindex = uint64(1) << n.bits
			continue
		}

		list := n.loadAliases()
		keep := list[:0:0]
		slen := uint8(0)
		for _, fa := range list {
			if !drop(fa) {
				keep = append(keep, fa)
				slen = fa.slen
				continue
			}
			fa.info.Release()
			found++
		}

		if len(keep) == len(list) {
			continue
		}

		if len(keep) == 0 {
			n.storeAliases(nil)
			t.putChildRoot(pn, n.key, nil)
			t.retire(n)
			continue
		}

		n.storeAliases(keep)
		n.setSuffixLen(slen)
	}

	return found
}

// clear detaches and retires the whole trie, walking in reverse
// order like the flush walker.
func (t *trie) clear() {
	pn := t.root
	cindex := uint64(1)

	for {
		if cindex == 0 {
			pkey := pn.key

			if isTrie(pn) {
				break
			}

			n := pn
			pn = pn.parentNode()

			t.putChildRoot(pn, n.key, nil)
			t.retire(n)

			cindex = getIndex(pkey, pn)
			continue
		}
		cindex--

		n := pn.child(int(cindex))
		if n == nil {
			continue
		}

		if n.isTnode() {
			pn = n
			cindex = uint64(1) << n.bits
			continue
		}

		for _, fa := range n.loadAliases() {
			fa.info.Release()
		}
		n.storeAliases(nil)

		t.putChildRoot(pn, n.key, nil)
		t.retire(n)
	}

	t.flushDeferred()
}

// empty reports whether the trie holds no routes.
func (t *trie) empty() bool {
	return t.root.child(0) == nil
}
