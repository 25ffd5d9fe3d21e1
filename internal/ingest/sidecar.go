// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package ingest

import (
	"strconv"
	"strings"
)

// Sidecar is the parsed content of a pending .txt file:
//
//	line 1: comma-separated hero ids
//	line 2: comma-separated tags
//	line 3: description
//
// Missing lines are empty. Further lines are ignored.
type Sidecar struct {
	Heroes      []int
	Tags        []string
	Description string
}

// ParseSidecar parses sidecar data. CRLF line endings are accepted and
// empty list entries are dropped.
func ParseSidecar(data []byte) (*Sidecar, error) {
	lines := strings.Split(string(data), "\n")
	line := func(i int) string {
		if i >= len(lines) {
			return ""
		}
		return strings.TrimRight(lines[i], "\r")
	}

	sc := &Sidecar{
		Tags:        splitList(line(1)),
		Description: strings.TrimSpace(line(2)),
	}
	for _, tok := range splitList(line(0)) {
		id, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &ValidationError{Field: "hero", Value: tok, Reason: "hero ids must be integers"}
		}
		sc.Heroes = append(sc.Heroes, id)
	}
	return sc, nil
}

func splitList(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
