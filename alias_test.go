// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import "testing"

func TestAliasListFind(t *testing.T) {
	t.Parallel()

	// ordered: slen asc, tableID desc, tos desc, priority asc
	list := aliasList{
		{slen: 8, tos: 4, priority: 10, tableID: 254},
		{slen: 8, tos: 0, priority: 10, tableID: 254},
		{slen: 8, tos: 0, priority: 20, tableID: 254},
		{slen: 16, tos: 0, priority: 5, tableID: 255},
		{slen: 16, tos: 0, priority: 5, tableID: 254},
	}

	tests := []struct {
		name    string
		slen    uint8
		tos     uint8
		prio    uint32
		tableID uint32
		want    int
	}{
		{"exact head", 8, 4, 10, 254, 0},
		{"skips higher tos", 8, 0, 10, 254, 1},
		{"prio past group", 8, 0, 30, 254, -1},
		{"prio mid group", 8, 0, 15, 254, 2},
		{"other table", 16, 0, 5, 255, 3},
		{"second table", 16, 0, 5, 254, 4},
		{"missing slen", 12, 0, 0, 254, -1},
		{"smaller tos returned", 8, 200, 10, 254, 0},
	}

	for _, tc := range tests {
		if got := list.find(tc.slen, tc.tos, tc.prio, tc.tableID); got != tc.want {
			t.Errorf("%s: find(%d,%d,%d,%d) = %d, want %d",
				tc.name, tc.slen, tc.tos, tc.prio, tc.tableID, got, tc.want)
		}
	}
}

func TestAliasListInsertTailRule(t *testing.T) {
	t.Parallel()

	var list aliasList

	// inserted with at < 0, the (slen, tableID) tail rule applies
	for _, fa := range []*alias{
		{slen: 16, tableID: 254, priority: 1},
		{slen: 8, tableID: 254, priority: 1},
		{slen: 8, tableID: 255, priority: 1},
		{slen: 0, tableID: 254, priority: 1},
		{slen: 8, tableID: 254, priority: 2},
	} {
		list = list.insertAt(fa, -1)
	}

	want := []struct {
		slen    uint8
		tableID uint32
		prio    uint32
	}{
		{0, 254, 1},
		{8, 255, 1},
		{8, 254, 1},
		{8, 254, 2},
		{16, 254, 1},
	}

	if len(list) != len(want) {
		t.Fatalf("list has %d entries, want %d", len(list), len(want))
	}
	for i, w := range want {
		fa := list[i]
		if fa.slen != w.slen || fa.tableID != w.tableID || fa.priority != w.prio {
			t.Errorf("position %d: got (slen=%d tb=%d prio=%d), want (%d %d %d)",
				i, fa.slen, fa.tableID, fa.priority, w.slen, w.tableID, w.prio)
		}
	}
}

func TestAliasListCopyOnWrite(t *testing.T) {
	t.Parallel()

	orig := aliasList{
		{slen: 8, priority: 1},
		{slen: 16, priority: 1},
	}

	ins := orig.insertAt(&alias{slen: 12, priority: 1}, 1)
	del := orig.deleteAt(0)
	rep := orig.replaceAt(1, &alias{slen: 16, priority: 9})

	// the source list must be untouched by all three
	if len(orig) != 2 || orig[0].slen != 8 || orig[1].slen != 16 || orig[1].priority != 1 {
		t.Fatal("source list was modified")
	}
	if len(ins) != 3 || ins[1].slen != 12 {
		t.Fatalf("insertAt result wrong: %d entries", len(ins))
	}
	if len(del) != 1 || del[0].slen != 16 {
		t.Fatalf("deleteAt result wrong: %d entries", len(del))
	}
	if len(rep) != 2 || rep[1].priority != 9 {
		t.Fatalf("replaceAt result wrong")
	}
}
