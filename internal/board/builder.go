/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/friendsincode/departure_board/internal/format"
	"github.com/friendsincode/departure_board/internal/telemetry"
	"github.com/friendsincode/departure_board/internal/ticker"
)

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	Station       string
	ServicesLimit int
	Layout        Layout

	// DetailConcurrency bounds parallel calling point lookups.
	DetailConcurrency int
}

// Builder performs the fetch and format half of a refresh cycle.
// It never touches the displayed board.
type Builder struct {
	source Source
	cfg    BuilderConfig
	logger zerolog.Logger
	now    func() time.Time
	newID  func() ticker.RowID
}

// NewBuilder creates a snapshot builder.
func NewBuilder(source Source, cfg BuilderConfig, logger zerolog.Logger) *Builder {
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 1
	}
	return &Builder{
		source: source,
		cfg:    cfg,
		logger: logger.With().Str("component", "board").Logger(),
		now:    time.Now,
		newID:  func() ticker.RowID { return ticker.RowID(uuid.NewString()) },
	}
}

// Build fetches the departures and formats one row per service.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "board", "Build")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"station": b.cfg.Station,
		"limit":   b.cfg.ServicesLimit,
	})

	services, err := b.source.Departures(ctx, b.cfg.Station, b.cfg.ServicesLimit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("fetch departures for %s: %w", b.cfg.Station, err)
	}
	if len(services) == 0 {
		return nil, ErrNoDepartures
	}

	mapper := iter.Mapper[Service, DisplayRow]{MaxGoroutines: b.cfg.DetailConcurrency}
	rows := mapper.Map(services, func(svc *Service) DisplayRow {
		return b.buildRow(ctx, *svc)
	})

	return &Snapshot{Rows: rows, AsOf: b.now()}, nil
}

func (b *Builder) buildRow(ctx context.Context, svc Service) DisplayRow {
	l := b.cfg.Layout
	stopsFull := b.stopsFor(ctx, svc.ServiceID)

	return DisplayRow{
		ID:          b.newID(),
		Time:        format.Field(svc.ScheduledTime, l.TimeWidth, format.Unavailable),
		Destination: format.Field(svc.Destination, l.DestinationWidth, format.Unavailable),
		Platform:    format.Field(svc.Platform, l.PlatformWidth, format.ToBeDecided),
		Status:      format.Truncate(format.Status(svc.Cancelled, svc.ScheduledTime, svc.EstimatedTime), l.StatusWidth),
		Stops:       format.Truncate(stopsFull, l.StopsWidth),
		StopsFull:   stopsFull,
	}
}

// stopsFor returns the full stops text. Lookup failures only degrade the row.
func (b *Builder) stopsFor(ctx context.Context, serviceID string) string {
	if serviceID == "" {
		return format.Unavailable
	}
	names, err := b.source.CallingPoints(ctx, serviceID)
	if errors.Is(err, ErrNoCallingPoints) {
		b.logger.Debug().Str("service", serviceID).Msg("no subsequent calling points")
		return format.Unavailable
	}
	if err != nil {
		telemetry.CallingPointErrorsTotal.Inc()
		b.logger.Warn().Err(err).Str("service", serviceID).Msg("calling points unavailable")
		return format.Unavailable
	}
	return format.Stops(names)
}
