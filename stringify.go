// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes a hierarchical dump of the trie to w, one line per
// node, in the classic /proc/net/fib_trie format: internal nodes with
// their remaining prefix window, branching factor and child counters,
// leaves with their address and one line per alias. Lock-free.
func (tb *Table) Fprint(w io.Writer) error {
	g := tb.t.dom.Enter()
	defer g.Leave()

	n := tb.t.root.child(0)
	if n == nil {
		return nil
	}
	return fprintNode(w, n, 0)
}

// String implements fmt.Stringer, see [Table.Fprint].
func (tb *Table) String() string {
	var sb strings.Builder
	_ = tb.Fprint(&sb)
	return sb.String()
}

func fprintNode(w io.Writer, n *node, depth int) error {
	indent := strings.Repeat("   ", depth)

	if n.isTnode() {
		// derive the counters from the published slots, the
		// writer-side ones are not safe to read here
		var full, empty int
		for i := 0; i < childLength(n); i++ {
			switch c := n.child(i); {
			case c == nil:
				empty++
			case tnodeFull(n, c):
				full++
			}
		}

		_, err := fmt.Fprintf(w, "%s+-- %s/%d %d %d %d\n",
			indent, addr4(n.key), keyLen-int(n.pos)-int(n.bits),
			n.bits, full, empty)
		if err != nil {
			return err
		}

		for i := 0; i < childLength(n); i++ {
			c := n.child(i)
			if c == nil {
				continue
			}
			if err := fprintNode(w, c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := fmt.Fprintf(w, "%s|-- %s\n", indent, addr4(n.key)); err != nil {
		return err
	}
	for _, fa := range n.loadAliases() {
		scope := ScopeNowhere
		if fa.info != nil {
			scope = fa.info.Scope
		}
		_, err := fmt.Fprintf(w, "%s   /%d %s %s\n",
			indent, fa.plen(), scope, fa.kind)
		if err != nil {
			return err
		}
	}
	return nil
}

func addr4(key uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d",
		byte(key>>24), byte(key>>16), byte(key>>8), byte(key))
}
