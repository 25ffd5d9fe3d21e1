// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault
package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tomtom215/clipvault/internal/ingest"
)

func newPendingCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Ingest every new sidecar in the pending folder",
		Long: `Pending walks ingest.pending_dir once. Each <name>.txt sidecar is
paired with a video of the same stem; the parent directory names the match.
Sidecars ingested earlier are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			var report *ingest.ScanReport
			err := c.withThumbnails(ctx, func(ctx context.Context) error {
				var err error
				report, err = c.app.Scanner.Scan(ctx)
				return err
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func newSweepCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Backfill match start times for clips that lack one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			stats, err := c.app.Sweeper.Sweep(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}
