// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import (
	"encoding/binary"
	"iter"
	"net/netip"
	"sync"
)

// Table is an IPv4 routing table backed by one LPC trie.
//
// All mutating methods serialize on an internal lock, one writer at a
// time. Lookup and the iterators never take the lock and are safe for
// unbounded concurrent use against a mutating writer.
type Table struct {
	// ID is the routing table id, recorded on every alias.
	ID uint32

	mu         sync.Mutex
	t          *trie
	size       int
	numDefault int
}

// NewTable returns an empty routing table with the given id.
func NewTable(id uint32) *Table {
	return &Table{ID: id, t: newTrie()}
}

// Route is one routing table entry.
type Route struct {
	Prefix   netip.Prefix
	TOS      uint8
	Priority uint32
	Kind     RouteKind
	Info     *FibInfo
}

// InsertFlags select the route-add policy, modeled on the netlink
// NLM_F_* semantics: plain "add" is FlagCreate|FlagExclusive,
// "replace" is FlagCreate|FlagReplace, "change" is FlagReplace alone,
// "append" is FlagCreate|FlagAppend.
type InsertFlags uint8

const (
	// FlagCreate permits creating a route that does not exist yet.
	FlagCreate InsertFlags = 1 << iota

	// FlagExclusive fails with ErrExists when a route with the same
	// prefix, TOS and priority is already present.
	FlagExclusive

	// FlagReplace swaps the head of the matching alias group for the
	// new route instead of adding a sibling.
	FlagReplace

	// FlagAppend adds the new route behind the matching alias group
	// instead of in front of it.
	FlagAppend
)

// LookupOpts are the optional lookup filters. The zero value matches
// any route.
type LookupOpts struct {
	// TOS must equal the route's TOS unless the route has TOS zero,
	// which matches everything.
	TOS uint8

	// Scope is the minimum scope; routes with a wider scope (smaller
	// value) are skipped.
	Scope Scope

	// OIF restricts matches to routes bound to this output interface.
	// Zero matches any interface, as does a route with OIF zero.
	OIF int32

	// IgnoreLinkDown also matches routes whose link is down.
	IgnoreLinkDown bool
}

// DeleteOpts narrow down which alias of a prefix to delete. The zero
// value deletes the first alias of the prefix with TOS zero.
type DeleteOpts struct {
	TOS uint8

	// Priority of the route, zero matches any priority.
	Priority uint32

	// Kind of the route, KindUnspec matches any kind.
	Kind RouteKind

	// Scope is consulted only when MatchScope is set.
	Scope      Scope
	MatchScope bool
}

// keyOf converts a prefix to trie key and suffix length. Host bits
// beyond the prefix length are rejected, not masked, so that an entry
// read back from the table is bit-identical to what was inserted.
func keyOf(pfx netip.Prefix) (key uint32, slen uint8, err error) {
	if !pfx.IsValid() {
		return 0, 0, ErrInvalidPrefix
	}

	addr := pfx.Addr().Unmap()
	if !addr.Is4() {
		return 0, 0, ErrInvalidPrefix
	}

	a4 := addr.As4()
	key = binary.BigEndian.Uint32(a4[:])
	plen := pfx.Bits()

	if plen < keyLen && key<<(plen&63) != 0 {
		return 0, 0, ErrInvalidPrefix
	}

	return key, uint8(keyLen - plen), nil
}

// keyFromAddr converts a destination address to a trie key.
func keyFromAddr(addr netip.Addr) (uint32, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, ErrInvalidAddr
	}
	a4 := addr.As4()
	return binary.BigEndian.Uint32(a4[:]), nil
}

// prefixFromKey is the inverse of keyOf.
func prefixFromKey(key uint32, plen int) netip.Prefix {
	var a4 [4]byte
	binary.BigEndian.PutUint32(a4[:], key)
	return netip.PrefixFrom(netip.AddrFrom4(a4), plen)
}

// Insert adds r to the table under the given policy flags.
//
// The table retains a reference on r.Info for as long as the route is
// linked. Inserting a route whose (prefix, TOS, priority) collide with
// an existing alias group follows the flag semantics: FlagExclusive
// fails with ErrExists, FlagReplace swaps the group head, FlagAppend
// adds behind the group, and a plain FlagCreate adds in front of it.
// An exact duplicate (same kind and same Info) always fails with
// ErrExists, except under FlagReplace where replacing the group head
// with itself is a no-op. Without FlagCreate a route that would have
// to be newly created fails with ErrNotFound.
func (tb *Table) Insert(r Route, flags InsertFlags) error {
	key, slen, err := keyOf(r.Prefix)
	if err != nil {
		return err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	log.Debugf("insert table=%d %08x/%d", tb.ID, key, r.Prefix.Bits())

	l, tp := tb.t.findNode(key)

	var list aliasList
	at := -1
	if l != nil {
		list = l.loadAliases()
		at = list.find(slen, r.TOS, r.Priority, tb.ID)
	}

	// at, if not negative, is the index of the head of the alias
	// group with the same (slen, tos, priority), or of the entry the
	// new alias sorts in front of

	if at >= 0 && list[at].tos == r.TOS && list[at].priority == r.Priority {
		if flags&FlagExclusive != 0 {
			return ErrExists
		}

		// scan the group for an exact duplicate; j ends up just
		// behind the group, the append position
		first, match := at, -1
		j := at
		for ; j < len(list); j++ {
			fa := list[j]
			if fa.slen != slen || fa.tableID != tb.ID || fa.tos != r.TOS {
				break
			}
			if fa.priority != r.Priority {
				break
			}
			if fa.kind == r.Kind && fa.info == r.Info {
				match = j
				break
			}
		}

		if flags&FlagReplace != 0 {
			if match >= 0 {
				// replacing the head with itself is a no-op
				if match == first {
					return nil
				}
				return ErrExists
			}

			old := list[first]
			nfa := &alias{
				slen:     old.slen,
				tos:      old.tos,
				kind:     r.Kind,
				tableID:  tb.ID,
				priority: r.Priority,
				info:     r.Info.Retain(),
			}
			l.storeAliases(list.replaceAt(first, nfa))
			old.info.Release()
			return nil
		}

		if match >= 0 {
			return ErrExists
		}

		if flags&FlagAppend != 0 {
			at = j
		} else {
			at = first
		}
	}

	if flags&FlagCreate == 0 {
		return ErrNotFound
	}

	fa := &alias{
		slen:     slen,
		tos:      r.TOS,
		kind:     r.Kind,
		tableID:  tb.ID,
		priority: r.Priority,
		info:     r.Info.Retain(),
	}
	tb.t.insertAlias(tp, l, fa, at, key)

	tb.size++
	if slen == keyLen {
		tb.numDefault++
	}
	return nil
}

// Delete removes the first alias of pfx matching opts. It returns
// ErrNotFound when no such alias exists.
func (tb *Table) Delete(pfx netip.Prefix, opts DeleteOpts) error {
	key, slen, err := keyOf(pfx)
	if err != nil {
		return err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	log.Debugf("delete table=%d %08x/%d", tb.ID, key, pfx.Bits())

	l, tp := tb.t.findNode(key)
	if l == nil {
		return ErrNotFound
	}

	list := l.loadAliases()
	at := list.find(slen, opts.TOS, 0, tb.ID)
	if at < 0 {
		return ErrNotFound
	}

	victim := -1
	for i := at; i < len(list); i++ {
		fa := list[i]
		if fa.slen != slen || fa.tableID != tb.ID || fa.tos != opts.TOS {
			break
		}
		if opts.Kind != KindUnspec && fa.kind != opts.Kind {
			continue
		}
		if opts.MatchScope && fa.info != nil && fa.info.Scope != opts.Scope {
			continue
		}
		if opts.Priority != 0 && fa.priority != opts.Priority {
			continue
		}
		victim = i
		break
	}
	if victim < 0 {
		return ErrNotFound
	}

	fa := list[victim]
	tb.t.removeAlias(tp, l, victim)
	fa.info.Release()

	tb.size--
	if slen == keyLen {
		tb.numDefault--
	}
	return nil
}

// Lookup returns the best route for dst: longest prefix first, ties
// broken by list order (lowest priority first). A match on an
// administrative route reports its error (ErrBlackhole and friends), a
// complete miss reports ErrNotFound. Lock-free.
func (tb *Table) Lookup(dst netip.Addr, opts LookupOpts) (Route, error) {
	key, err := keyFromAddr(dst)
	if err != nil {
		return Route{}, err
	}

	g := tb.t.dom.Enter()
	defer g.Leave()

	fa, l, err := tb.t.lookupKey(key, lookupFilter{
		tos:             opts.TOS,
		scope:           opts.Scope,
		oif:             opts.OIF,
		ignoreLinkState: opts.IgnoreLinkDown,
	})
	if err != nil {
		return Route{}, err
	}

	return Route{
		Prefix:   prefixFromKey(l.key, fa.plen()),
		TOS:      fa.tos,
		Priority: fa.priority,
		Kind:     fa.kind,
		Info:     fa.info,
	}, nil
}

// Flush removes every route whose nexthop info has been marked dead
// and returns the number of routes removed.
func (tb *Table) Flush() int {
	return tb.flush(func(fa *alias) bool {
		return fa.info.Dead()
	})
}

// FlushAll removes dead routes like Flush and additionally every
// administrative route (blackhole, unreachable, prohibit, throw),
// the teardown variant.
func (tb *Table) FlushAll() int {
	return tb.flush(func(fa *alias) bool {
		return fa.info.Dead() || fa.kind.err() != nil
	})
}

func (tb *Table) flush(drop func(*alias) bool) int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	found := tb.t.flushLeaves(func(fa *alias) bool {
		if !drop(fa) {
			return false
		}
		tb.size--
		if fa.slen == keyLen {
			tb.numDefault--
		}
		return true
	})

	log.Debugf("flush table=%d found=%d", tb.ID, found)
	return found
}

// Len returns the number of routes in the table.
func (tb *Table) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.size
}

// NumDefault returns the number of default routes (/0 prefixes).
func (tb *Table) NumDefault() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.numDefault
}

// Clear removes all routes and recycles the whole trie.
func (tb *Table) Clear() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.t.clear()
	tb.size = 0
	tb.numDefault = 0
}

// All returns an iterator over all routes in ascending address order;
// routes on the same address come in their list order, most specific
// prefix first.
//
// The iterator is lock-free and keyed by address rather than trie
// position, so it stays valid across concurrent mutation: a route
// inserted or deleted behind the iteration point simply is or is not
// seen, routes at visited addresses are never revisited. Mutating the
// table from inside the loop body is allowed.
func (tb *Table) All() iter.Seq[Route] {
	return func(yield func(Route) bool) {
		tb.t.walkLeaves(func(key uint32, list aliasList) bool {
			for _, fa := range list {
				r := Route{
					Prefix:   prefixFromKey(key, fa.plen()),
					TOS:      fa.tos,
					Priority: fa.priority,
					Kind:     fa.kind,
					Info:     fa.info,
				}
				if !yield(r) {
					return false
				}
			}
			return true
		})
	}
}
