// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/clipvault/internal/logging"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError is the error half of the envelope.
type APIError struct {
	// Code is machine readable, e.g. NOT_FOUND.
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta carries tracing and list metadata.
type APIMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	// Count is set for list responses.
	Count *int `json:"count,omitempty"`
}

const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ResponseWriter writes APIResponse envelopes for one request.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a response writer for r.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r, startTime: time.Now()}
}

func (rw *ResponseWriter) meta() *APIMeta {
	return &APIMeta{
		RequestID:  logging.RequestIDFromContext(rw.r.Context()),
		Timestamp:  time.Now(),
		DurationMs: time.Since(rw.startTime).Milliseconds(),
	}
}

// Success writes 200 with data.
func (rw *ResponseWriter) Success(data any) {
	rw.writeJSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: rw.meta()})
}

// List writes 200 with data and its element count in meta.
func (rw *ResponseWriter) List(data any, count int) {
	meta := rw.meta()
	meta.Count = &count
	rw.writeJSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

// Accepted writes 202 for requests handed to a background worker.
func (rw *ResponseWriter) Accepted(data any) {
	rw.writeJSON(http.StatusAccepted, APIResponse{Success: true, Data: data, Meta: rw.meta()})
}

// Error writes an error envelope with the given status.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	meta := rw.meta()
	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			RequestID: meta.RequestID,
		},
		Meta: meta,
	})
}

func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

func (rw *ResponseWriter) TooManyRequests(message string) {
	rw.Error(http.StatusTooManyRequests, ErrCodeTooManyRequests, message)
}

func (rw *ResponseWriter) ServiceUnavailable(message string) {
	rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// InternalError logs err and writes a generic 500.
func (rw *ResponseWriter) InternalError(err error) {
	logging.Ctx(rw.r.Context()).Error().Err(err).Str("path", rw.r.URL.Path).Msg("Request failed")
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred")
}

func (rw *ResponseWriter) writeJSON(statusCode int, body APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
