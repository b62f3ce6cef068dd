// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import (
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

// nodePool groups sized sync.Pools for trie nodes: one pool for
// leaves and one per branching factor for internal nodes, so a
// recycled node always comes back with a child array of the right
// size. It also tracks allocation statistics.
//
// Nodes must only be returned to the pool after a grace period, see
// trie.retire.
type nodePool struct {
	leaf  sync.Pool
	tnode [maxAllocBits + 1]sync.Pool

	// TODO: drop the counters once the reclamation path has soaked.
	totalAllocated atomic.Int64
	currentLive    atomic.Int64
}

func newNodePool() *nodePool {
	p := &nodePool{}

	p.leaf.New = func() any {
		p.totalAllocated.Add(1)
		return new(node)
	}

	for bits := 1; bits <= maxAllocBits; bits++ {
		bits := bits
		p.tnode[bits].New = func() any {
			p.totalAllocated.Add(1)
			return &node{
				children: make([]atomic.Pointer[node], 1<<bits),
				occupied: bitset.New(uint(1) << bits),
			}
		}
	}

	return p
}

// getLeaf returns a cleared leaf node.
func (p *nodePool) getLeaf() *node {
	p.currentLive.Add(1)
	return p.leaf.Get().(*node)
}

// getTnode returns a cleared internal node with 1<<bits child slots,
// or nil if bits exceeds the allocation cap.
func (p *nodePool) getTnode(bits uint8) *node {
	if bits == 0 || bits > maxAllocBits {
		return nil
	}
	p.currentLive.Add(1)
	return p.tnode[bits].Get().(*node)
}

// put recycles n. The caller guarantees that no reader can still
// observe n (epoch synchronized after unlink).
func (p *nodePool) put(n *node) {
	p.currentLive.Add(-1)

	n.key = 0
	n.pos = 0
	n.slen.Store(0)
	n.parent.Store(nil)

	if n.bits == 0 {
		n.aliases.Store(nil)
		p.leaf.Put(n)
		return
	}

	for i := range n.children {
		n.children[i].Store(nil)
	}
	n.occupied.ClearAll()
	n.emptyChildren = 0
	n.fullChildren = 0

	p.tnode[n.bits].Put(n)
}

// stats returns the live and total allocation counters.
func (p *nodePool) stats() (live, total int64) {
	return p.currentLive.Load(), p.totalAllocated.Load()
}

// nodeSize approximates the heap footprint of n in bytes, used for
// the deferred-free accounting threshold.
func nodeSize(n *node) int {
	const header = 64
	if n.isLeaf() {
		return header
	}
	return header + 8<<n.bits
}
