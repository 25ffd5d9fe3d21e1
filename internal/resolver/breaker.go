// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

package resolver

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/clipvault/internal/logging"
	"github.com/tomtom215/clipvault/internal/metrics"
)

// breaker wraps gobreaker and keeps the circuit breaker metrics current.
//
// The breaker runs on wall-clock time; tests drive it by request counts and
// never wait for the open timeout.
type breaker struct {
	cb   *gobreaker.CircuitBreaker[int64]
	name string
}

// newBreaker opens after a 60% failure rate over at least 10 requests in a
// one minute window, and probes again after two minutes with up to three
// half-open requests. A missing match is an answer, not an outage, so it
// does not count as a failure.
func newBreaker(name string) *breaker {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMatchNotFound)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &breaker{cb: cb, name: name}
}

// execute runs fn through the breaker. Rejections are returned as
// gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests.
func (b *breaker) execute(fn func() (int64, error)) (int64, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil || errors.Is(err, ErrMatchNotFound):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		counts := b.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(counts.ConsecutiveFailures))
	}
	return result, err
}

func (b *breaker) state() gobreaker.State {
	return b.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
