// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/clipvault/internal/ingest"
)

type ingestOutput struct {
	ClipID        string `json:"clip_id"`
	MatchID       string `json:"match_id"`
	Duration      int64  `json:"duration_seconds"`
	StartTime     int64  `json:"start_time,omitempty"`
	VideoPath     string `json:"video"`
	ThumbnailPath string `json:"thumbnail"`
	ThumbnailErr  string `json:"thumbnail_error,omitempty"`
}

func newIngestCmd(c *cli) *cobra.Command {
	var req ingest.Request

	cmd := &cobra.Command{
		Use:   "ingest <video>",
		Short: "Ingest one video into the catalog",
		Long: `Ingest copies the video into the media root, probes its duration,
queues a thumbnail and stores the clip record.

Examples:
  clipvault-cli ingest ./clip.mp4 --match 7100000001 --heroes 5,10 --tags roshan
  clipvault-cli ingest ./clip.mp4 --match 7100000001 --tags "team fight" -d "wipe at rosh"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			req.SourcePath = args[0]
			var result *ingest.Result
			err := c.withThumbnails(ctx, func(ctx context.Context) error {
				var err error
				result, err = c.app.Pipeline.Ingest(ctx, req)
				return err
			})
			if err != nil {
				return fmt.Errorf("ingest %s: %w", req.SourcePath, err)
			}

			out := ingestOutput{
				ClipID:        result.Clip.ID,
				MatchID:       result.Clip.MatchID,
				Duration:      result.Clip.Duration,
				StartTime:     result.Clip.StartTime,
				VideoPath:     result.VideoPath,
				ThumbnailPath: result.ThumbnailPath,
			}
			if result.ThumbnailErr != nil {
				out.ThumbnailErr = result.ThumbnailErr.Error()
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&req.MatchID, "match", "m", "", "match id (required)")
	cmd.Flags().IntSliceVar(&req.Heroes, "heroes", nil, "comma-separated hero ids")
	cmd.Flags().StringSliceVarP(&req.Tags, "tags", "t", nil, "comma-separated tags")
	cmd.Flags().StringVarP(&req.Description, "description", "d", "", "free-text description")
	_ = cmd.MarkFlagRequired("match")
	return cmd
}
