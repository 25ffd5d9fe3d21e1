// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/clipvault/internal/query"
)

var errConflictingFilters = errors.New("--hero, --tag and --id are mutually exclusive")

func newClipsCmd(c *cli) *cobra.Command {
	var (
		hero    int
		tag     string
		id      string
		headers bool
	)

	cmd := &cobra.Command{
		Use:   "clips",
		Short: "Print catalog records as JSON",
		Long: `Clips prints the catalog ordered by match id, newest first.

Examples:
  clipvault-cli clips --headers
  clipvault-cli clips --hero 5
  clipvault-cli clips --tag "team fight"
  clipvault-cli clips --id 0f343b0931126a20f133d67c2b018a3b`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := 0
			for _, name := range []string{"hero", "tag", "id"} {
				if cmd.Flags().Changed(name) {
					set++
				}
			}
			if set > 1 {
				return errConflictingFilters
			}

			ctx := cmd.Context()
			var (
				records []query.Record
				err     error
			)
			switch {
			case cmd.Flags().Changed("hero"):
				if !c.app.Registry.HasHero(hero) {
					return fmt.Errorf("unknown hero %d", hero)
				}
				records, err = c.app.Catalog.ByHero(ctx, hero)
			case cmd.Flags().Changed("tag"):
				records, err = c.app.Catalog.ByTag(ctx, tag)
			case cmd.Flags().Changed("id"):
				records, err = c.app.Catalog.ByID(ctx, id)
			default:
				records, err = c.app.Catalog.All(ctx, headers)
			}
			if err != nil {
				return err
			}
			if records == nil {
				records = []query.Record{}
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().IntVar(&hero, "hero", 0, "only clips featuring this hero id")
	cmd.Flags().StringVar(&tag, "tag", "", "only clips with this tag")
	cmd.Flags().StringVar(&id, "id", "", "a single clip")
	cmd.Flags().BoolVar(&headers, "headers", false, "interleave month headers (full listing only)")
	return cmd
}
