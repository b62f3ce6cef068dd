// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

// RouteKind mirrors the classic routing-table route types.
type RouteKind uint8

const (
	KindUnspec RouteKind = iota
	KindUnicast
	KindLocal
	KindBroadcast
	KindAnycast
	KindMulticast
	KindBlackhole
	KindUnreachable
	KindProhibit
	KindThrow
)

// err returns the lookup error associated with administrative route
// kinds, or nil for forwarding kinds.
func (k RouteKind) err() error {
	switch k {
	case KindBlackhole:
		return ErrBlackhole
	case KindUnreachable:
		return ErrUnreachable
	case KindProhibit:
		return ErrProhibited
	case KindThrow:
		// throw means "continue in the next table", with a single
		// table in play that is a miss
		return ErrNotFound
	}
	return nil
}

func (k RouteKind) String() string {
	switch k {
	case KindUnspec:
		return "unspec"
	case KindUnicast:
		return "unicast"
	case KindLocal:
		return "local"
	case KindBroadcast:
		return "broadcast"
	case KindAnycast:
		return "anycast"
	case KindMulticast:
		return "multicast"
	case KindBlackhole:
		return "blackhole"
	case KindUnreachable:
		return "unreachable"
	case KindProhibit:
		return "prohibit"
	case KindThrow:
		return "throw"
	}
	return "unknown"
}

// alias is one route entry sharing a leaf's key. The suffix length
// slen is 32 minus the prefix length, so the most specific routes
// have the smallest slen.
//
// An alias is immutable after it has been linked into a leaf's list.
type alias struct {
	slen     uint8
	tos      uint8
	kind     RouteKind
	tableID  uint32
	priority uint32
	info     *FibInfo
}

// plen returns the prefix length encoded by the suffix length.
func (fa *alias) plen() int { return keyLen - int(fa.slen) }

// aliasList is the ordered route list of one leaf. The list is
// treated as immutable, writers replace it wholesale via an atomic
// pointer swap so readers always iterate a consistent snapshot.
//
// Order: ascending slen (most specific prefix first), then descending
// table id, then descending TOS, then ascending priority. Lookup
// depends on this order, the first alias passing all filters is also
// the best one.
type aliasList []*alias

// find returns the index of the first alias with the given suffix
// length and table id whose TOS is not larger than tos and whose
// priority is not smaller than prio, or -1 if the list holds no such
// entry. This is both the collision probe for insert and the start of
// the candidate group for delete.
func (l aliasList) find(slen, tos uint8, prio uint32, tableID uint32) int {
	for i, fa := range l {
		if fa.slen < slen {
			continue
		}
		if fa.slen != slen {
			break
		}
		if fa.tableID > tableID {
			continue
		}
		if fa.tableID != tableID {
			break
		}
		if fa.tos > tos {
			continue
		}
		if fa.priority >= prio || fa.tos < tos {
			return i
		}
	}
	return -1
}

// insertAt returns a copy of l with fa spliced in before index at.
// If at is negative the position is computed from the (slen, tableID)
// tail rule: behind every alias that is not more specific and whose
// table id is not smaller.
func (l aliasList) insertAt(fa *alias, at int) aliasList {
	if at < 0 {
		at = len(l)
		for i, last := range l {
			if fa.slen < last.slen {
				at = i
				break
			}
			if fa.slen == last.slen && fa.tableID > last.tableID {
				at = i
				break
			}
		}
	}

	nl := make(aliasList, 0, len(l)+1)
	nl = append(nl, l[:at]...)
	nl = append(nl, fa)
	nl = append(nl, l[at:]...)
	return nl
}

// deleteAt returns a copy of l without the alias at index i.
func (l aliasList) deleteAt(i int) aliasList {
	nl := make(aliasList, 0, len(l)-1)
	nl = append(nl, l[:i]...)
	nl = append(nl, l[i+1:]...)
	return nl
}

// replaceAt returns a copy of l with the alias at index i swapped for fa.
func (l aliasList) replaceAt(i int, fa *alias) aliasList {
	nl := make(aliasList, len(l))
	copy(nl, l)
	nl[i] = fa
	return nl
}
