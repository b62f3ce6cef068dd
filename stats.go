// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

// TrieStats is a structural snapshot of the trie: node and prefix
// counts, depth and the distribution of branching factors. Collected
// by walking the live structure, so concurrent mutation makes the
// numbers approximate.
type TrieStats struct {
	Leaves       int
	Tnodes       int
	Prefixes     int
	NullPointers int
	MaxDepth     int
	TotDepth     int

	// NodeSizes counts internal nodes per branching factor in bits.
	NodeSizes [maxAllocBits + 1]int
}

// UseStats is a snapshot of the lookup and resize counters.
type UseStats struct {
	Gets                uint64
	Backtracks          uint64
	SemanticMatchPassed uint64
	SemanticMatchMiss   uint64
	NullNodeHits        uint64
	ResizeSkipped       uint64
}

// Stats collects a structural snapshot. Lock-free.
func (tb *Table) Stats() TrieStats {
	g := tb.t.dom.Enter()
	defer g.Leave()

	var s TrieStats
	if n := tb.t.root.child(0); n != nil {
		collectStats(n, 1, &s)
	}
	return s
}

func collectStats(n *node, depth int, s *TrieStats) {
	if n.isLeaf() {
		s.Leaves++
		s.Prefixes += len(n.loadAliases())
		s.TotDepth += depth
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		return
	}

	s.Tnodes++
	if int(n.bits) < len(s.NodeSizes) {
		s.NodeSizes[n.bits]++
	}

	for i := 0; i < childLength(n); i++ {
		c := n.child(i)
		if c == nil {
			// counted from the slots, the writer-side counter is
			// not safe to read here
			s.NullPointers++
			continue
		}
		collectStats(c, depth+1, s)
	}
}

// UseStats returns a snapshot of the lookup and resize counters.
func (tb *Table) UseStats() UseStats {
	st := &tb.t.stats
	return UseStats{
		Gets:                st.gets.Load(),
		Backtracks:          st.backtracks.Load(),
		SemanticMatchPassed: st.semanticMatchPassed.Load(),
		SemanticMatchMiss:   st.semanticMatchMiss.Load(),
		NullNodeHits:        st.nullNodeHits.Load(),
		ResizeSkipped:       st.resizeSkipped.Load(),
	}
}

// AvgDepth returns the mean leaf depth, zero for an empty trie.
func (s TrieStats) AvgDepth() float64 {
	if s.Leaves == 0 {
		return 0
	}
	return float64(s.TotDepth) / float64(s.Leaves)
}
