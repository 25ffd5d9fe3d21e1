// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillAdapter implements watermill.LoggerAdapter on top of zerolog.
type WatermillAdapter struct {
	logger zerolog.Logger
}

// NewWatermillAdapter wraps the global logger, tagged with component.
func NewWatermillAdapter(component string) *WatermillAdapter {
	return &WatermillAdapter{logger: WithComponent(component)}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

// With returns an adapter that adds fields to every entry.
func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{
		logger: a.logger.With().Fields(map[string]interface{}(fields)).Logger(),
	}
}

var _ watermill.LoggerAdapter = (*WatermillAdapter)(nil)
