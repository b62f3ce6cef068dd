// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

// Package fibtrie provides an IPv4 Forwarding Information Base (FIB)
// built on a level- and path-compressed binary trie (LPC-trie).
//
// The trie stores routes keyed by 32-bit prefixes and answers
// longest-prefix-match lookups in at most 32 levels of descent plus
// 32 levels of backtracking. Internal nodes adapt their branching
// factor to the route distribution: dense regions are widened
// (inflate), sparse regions are narrowed (halve) or spliced out
// (collapse), keeping the average depth low without precomputation.
//
// Concurrency model: any number of goroutines may call Lookup
// concurrently and lock-free, while a single writer at a time mutates
// the table. Every structural change builds its replacement off to
// the side and publishes it with one atomic pointer swap, so an
// in-flight reader sees either the old or the new shape, never a torn
// one. Superseded nodes are recycled through sized pools only after an
// epoch grace period has drained all readers that could still observe
// them.
//
// The public surface is the [Table]: ordered multi-route entries per
// prefix (aliases keyed by TOS, priority and route kind), insert
// policies matching the usual create/exclusive/replace/append
// semantics, filtered deletes, dumps and structure statistics.
package fibtrie
