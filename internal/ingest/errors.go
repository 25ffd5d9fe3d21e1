// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package ingest

import (
	"errors"
	"fmt"

	"github.com/tomtom215/clipvault/internal/media"
	"github.com/tomtom215/clipvault/internal/store"
)

// Pipeline stages, in execution order. They double as metric labels.
const (
	StageValidate  = "validate"
	StageAssignID  = "assign_id"
	StageStage     = "stage"
	StageProbe     = "probe"
	StageResolve   = "resolve"
	StagePersist   = "persist"
	StageThumbnail = "thumbnail"
)

var (
	// ErrValidation marks a request rejected before any side effect.
	ErrValidation = errors.New("invalid ingest request")

	// ErrStagingConflict is returned when the staged video already exists.
	ErrStagingConflict = errors.New("staged video already exists")

	// ErrStagingFailed is returned when the source cannot be copied.
	ErrStagingFailed = errors.New("staging failed")

	// ErrProbeFailure is returned when the staged video has no usable
	// duration. It matches media.ErrProbe as well.
	ErrProbeFailure = fmt.Errorf("probe failure: %w", media.ErrProbe)

	// ErrStoreUnavailable is returned when the clip cannot be persisted or
	// no id can be assigned. It matches store.ErrUnavailable as well.
	ErrStoreUnavailable = fmt.Errorf("store unavailable: %w", store.ErrUnavailable)
)

// ValidationError names the value that failed validation.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StageError records which pipeline stage failed and for which clip. ClipID
// is empty when the failure happened before an id was assigned.
type StageError struct {
	Stage  string
	ClipID string
	Err    error
}

func (e *StageError) Error() string {
	if e.ClipID == "" {
		return fmt.Sprintf("ingest %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("ingest %s (clip %s): %v", e.Stage, e.ClipID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage of the first StageError in err's chain, or
// the empty string.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
