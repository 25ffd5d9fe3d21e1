// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// stageFile copies src to dst without ever replacing an existing dst. The
// copy is written to a hidden temp file next to dst and hard-linked into
// place, so readers never see a partial video.
func stageFile(ctx context.Context, src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrStagingConflict, dst)
	}

	in, err := os.Open(src) //nolint:gosec // src passed validation
	if err != nil {
		return fmt.Errorf("%w: open source: %w", ErrStagingFailed, err)
	}
	defer in.Close()

	tmp := filepath.Join(filepath.Dir(dst), "."+uuid.NewString()+".part")
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) //nolint:gosec // path built from a uuid
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrStagingFailed, err)
	}
	defer os.Remove(tmp)

	if _, err := io.Copy(out, &ctxReader{ctx: ctx, r: in}); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: copy: %w", ErrStagingFailed, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: sync: %w", ErrStagingFailed, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrStagingFailed, err)
	}

	if err := os.Link(tmp, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrStagingConflict, dst)
		}
		return fmt.Errorf("%w: link: %w", ErrStagingFailed, err)
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
