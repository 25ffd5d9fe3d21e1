// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/clipvault/internal/app"
	"github.com/tomtom215/clipvault/internal/config"
	"github.com/tomtom215/clipvault/internal/logging"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath   string
	logLevel     string
	drainTimeout time.Duration

	// opts is passed to app.New; tests replace the ffmpeg tools.
	opts app.Options
	app  *app.App
}

// run executes one command line and always releases the store, even when
// the command fails.
func run(ctx context.Context, args []string, stdout io.Writer, opts app.Options) error {
	c := &cli{opts: opts}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.close())
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "clipvault-cli",
		Short: "One-shot operations on a Clipvault catalog",
		Long: `clipvault-cli ingests clips, scans the pending folder, backfills
match start times and queries the catalog without running the server.

Configuration is read the same way the server reads it (config.yaml and
environment variables). Do not point it at a store directory that a
running server has open.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return c.open()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config.yaml (default: CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override LOG_LEVEL")
	root.PersistentFlags().DurationVar(&c.drainTimeout, "drain-timeout", 2*time.Minute, "how long to wait for queued thumbnails")

	root.AddCommand(
		newIngestCmd(c),
		newPendingCmd(c),
		newSweepCmd(c),
		newClipsCmd(c),
	)
	return root
}

func (c *cli) open() error {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
		Caller: cfg.Logging.Caller,
	})

	c.app, err = app.New(cfg, c.opts)
	return err
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// withThumbnails runs fn with the thumbnail dispatcher started and waits for
// the jobs it queued before returning.
func (c *cli) withThumbnails(ctx context.Context, fn func(context.Context) error) error {
	if err := c.app.Thumbnails.Start(ctx); err != nil {
		return fmt.Errorf("start thumbnails: %w", err)
	}
	defer func() {
		if err := c.app.Thumbnails.Stop(); err != nil {
			logging.Warn().Err(err).Msg("Thumbnail dispatcher stop failed")
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}

	drainCtx, cancel := context.WithTimeout(ctx, c.drainTimeout)
	defer cancel()
	if err := c.app.Thumbnails.Drain(drainCtx); err != nil {
		logging.Warn().Err(err).Msg("Thumbnails still pending at exit")
	}
	return nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
