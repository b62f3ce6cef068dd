// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/netfab/fibtrie/internal/golden"
)

// FuzzTableOps drives random insert/delete sequences against the
// golden model, with the full invariant check after every operation
// and a lookup cross check at the end. Each 6-byte chunk of input is
// one operation: op byte, prefix length, 4 key bytes.
func FuzzTableOps(f *testing.F) {
	f.Add([]byte{0x01, 8, 10, 0, 0, 0})
	f.Add([]byte{
		0x01, 8, 10, 0, 0, 0,
		0x01, 16, 10, 1, 0, 0,
		0x00, 8, 10, 0, 0, 0,
	})
	f.Add([]byte{
		0x01, 0, 0, 0, 0, 0,
		0x01, 32, 192, 168, 1, 1,
		0x03, 24, 192, 168, 1, 0,
		0x00, 0, 0, 0, 0, 0,
	})

	f.Fuzz(func(t *testing.T, data []byte) {
		tb := NewTable(254)
		info := NewFibInfo(ScopeUniverse, 0)
		var gold golden.Table

		for len(data) >= 6 {
			op, plen := data[0], int(data[1])%33
			key := binary.BigEndian.Uint32(data[2:6])
			data = data[6:]

			if plen < 32 {
				key = key >> (32 - plen) << (32 - plen)
			}
			pfx := prefixFromKey(key, plen)
			prio := uint32(op >> 1 & 3)
			r := golden.Route{Pfx: pfx, Priority: prio}

			if op&1 != 0 {
				err := tb.Insert(Route{Prefix: pfx, Priority: prio,
					Kind: KindUnicast, Info: info}, FlagCreate|FlagExclusive)
				switch {
				case err == ErrExists:
					// the golden model must agree it is a duplicate
					before := len(gold)
					gold.Insert(r)
					if len(gold) != before {
						t.Fatalf("insert %v: trie says exists, golden does not", r)
					}
				case err != nil:
					t.Fatalf("insert %v: %v", r, err)
				default:
					gold.Insert(r)
				}
			} else {
				err := tb.Delete(pfx, DeleteOpts{Priority: prio})
				exists := gold.Delete(r)
				if exists && err != nil {
					t.Fatalf("delete %v: %v, golden had it", r, err)
				}
				if !exists && err == nil && prio != 0 {
					t.Fatalf("delete %v: trie had it, golden did not", r)
				}
				if !exists && err == nil && prio == 0 {
					// priority 0 deletes any alias of the prefix, drop
					// the one the trie picked from the model too
					for _, g := range gold.AllSorted() {
						if g.Pfx == pfx {
							gold.Delete(g)
							break
						}
					}
				}
			}

			checkTrie(t, tb)
			if tb.Len() != len(gold) {
				t.Fatalf("Len = %d, golden has %d", tb.Len(), len(gold))
			}
		}

		// cross check lookups on all route addresses and neighbors
		for _, g := range gold.AllSorted() {
			for _, addr := range []uint32{
				keyOfPrefix(g.Pfx),
				keyOfPrefix(g.Pfx) + 1,
				keyOfPrefix(g.Pfx) - 1,
			} {
				a := prefixFromKey(addr, 32).Addr()
				want, ok := gold.Lookup(a, 0)
				got, err := tb.Lookup(a, LookupOpts{})

				switch {
				case !ok && err != ErrNotFound:
					t.Fatalf("lookup %s = (%v, %v), golden says miss", a, got.Prefix, err)
				case ok && err != nil:
					t.Fatalf("lookup %s: %v, golden says %v", a, err, want)
				case ok && (got.Prefix != want.Pfx || got.Priority != want.Priority):
					t.Fatalf("lookup %s = (%s prio=%d), golden says %v",
						a, got.Prefix, got.Priority, want)
				}
			}
		}
	})
}

func keyOfPrefix(pfx netip.Prefix) uint32 {
	a4 := pfx.Addr().As4()
	return binary.BigEndian.Uint32(a4[:])
}
