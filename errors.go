// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import "errors"

var (
	// ErrNotFound is returned by lookups that match no route and by
	// deletes that name a route not present in the table.
	ErrNotFound = errors.New("fibtrie: route not found")

	// ErrExists is returned by Insert without FlagReplace when an
	// alias with the same prefix, TOS and priority already exists.
	ErrExists = errors.New("fibtrie: route already exists")

	// ErrInvalidPrefix is returned for prefixes that are not IPv4,
	// have a length outside 0..32, or carry host bits beyond the
	// stated prefix length.
	ErrInvalidPrefix = errors.New("fibtrie: invalid prefix")

	// ErrInvalidAddr is returned by Lookup for addresses that are not
	// IPv4 or IPv4-mapped IPv6.
	ErrInvalidAddr = errors.New("fibtrie: invalid address")

	// Route kind errors, reported by Lookup when the longest match is
	// an administrative route rather than a forwarding entry.
	ErrBlackhole   = errors.New("fibtrie: blackhole route")
	ErrUnreachable = errors.New("fibtrie: unreachable route")
	ErrProhibited  = errors.New("fibtrie: prohibited route")
)
