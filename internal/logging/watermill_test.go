// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package logging

import (
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

func TestWatermillAdapter(t *testing.T) {
	buf := captureLogs(t, "debug")

	a := NewWatermillAdapter("thumbs")
	a.Info("router started", watermill.LogFields{"handlers": 1})
	a.With(watermill.LogFields{"topic": "clip.thumbnail"}).
		Error("handler failed", errors.New("ffmpeg exited"), nil)

	output := buf.String()
	for _, want := range []string{
		`"component":"thumbs"`,
		`"handlers":1`,
		`"topic":"clip.thumbnail"`,
		`"error":"ffmpeg exited"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %s", want, output)
		}
	}
}

func TestWatermillAdapter_TraceSuppressed(t *testing.T) {
	buf := captureLogs(t, "debug")

	NewWatermillAdapter("thumbs").Trace("noisy", nil)

	if strings.Contains(buf.String(), "noisy") {
		t.Errorf("trace written at debug level: %s", buf.String())
	}
}
