/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cache

import (
	"context"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/telemetry"
)

// Source wraps a board.Source and caches its calling point lookups.
// Departures always go upstream.
type Source struct {
	inner board.Source
	cache *Cache
}

// NewSource returns inner with calling point lookups served from c when possible.
func NewSource(inner board.Source, c *Cache) *Source {
	return &Source{inner: inner, cache: c}
}

// Departures passes straight through to the wrapped source.
func (s *Source) Departures(ctx context.Context, station string, limit int) ([]board.Service, error) {
	return s.inner.Departures(ctx, station, limit)
}

// CallingPoints serves from the cache when possible and stores fresh results.
func (s *Source) CallingPoints(ctx context.Context, serviceID string) ([]string, error) {
	if !s.cache.IsAvailable() {
		telemetry.CacheLookupsTotal.WithLabelValues("bypass").Inc()
		return s.inner.CallingPoints(ctx, serviceID)
	}

	if names, ok := s.cache.GetCallingPoints(ctx, serviceID); ok {
		telemetry.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return names, nil
	}
	telemetry.CacheLookupsTotal.WithLabelValues("miss").Inc()

	names, err := s.inner.CallingPoints(ctx, serviceID)
	if err != nil {
		// Errors, including a missing calling point list, are never cached.
		return nil, err
	}
	if err := s.cache.SetCallingPoints(ctx, serviceID, names); err != nil {
		s.cache.logger.Debug().Err(err).Str("service_id", serviceID).Msg("failed to cache calling points")
	}
	return names, nil
}
