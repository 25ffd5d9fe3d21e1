// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package query

import (
	"strings"
)

// compareMatchIDs orders match ids. Two unsigned decimal ids compare
// numerically, so "100" sorts above "20". Any other pair compares
// lexicographically, except that a numeric id always ranks above a
// non-numeric one. Returns -1, 0 or 1.
func compareMatchIDs(a, b string) int {
	an, bn := isUnsignedDecimal(a), isUnsignedDecimal(b)
	switch {
	case an && bn:
		return compareDecimal(a, b)
	case an:
		return 1
	case bn:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

func isUnsignedDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// compareDecimal compares digit strings of any length without parsing, so
// ids longer than uint64 still order correctly.
func compareDecimal(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// less reports whether x sorts before y: match id descending, duration
// descending, clip id ascending.
func less(x, y *entry) bool {
	if c := compareMatchIDs(x.matchID, y.matchID); c != 0 {
		return c > 0
	}
	if x.duration != y.duration {
		return x.duration > y.duration
	}
	return x.record.ClipID < y.record.ClipID
}
