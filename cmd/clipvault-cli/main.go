// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Command clipvault-cli runs one-shot catalog operations against a clip
// store that no server is using.
//
//	clipvault-cli ingest ./clip.mp4 --match 7100000001 --heroes 5,10 --tags roshan
//	clipvault-cli pending
//	clipvault-cli sweep
//	clipvault-cli clips --tag "team fight"
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/clipvault/internal/app"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, app.Options{}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
