/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler drives the departure board: the clock, periodic and
// manual refreshes, and the stops tickers.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/telemetry"
	"github.com/friendsincode/departure_board/internal/ticker"
)

// ClockFormat is the layout of the clock text.
const ClockFormat = "15:04:05"

// Builder produces board snapshots.
type Builder interface {
	Build(ctx context.Context) (*board.Snapshot, error)
}

// Config holds the scheduler timings.
type Config struct {
	RefreshInterval  time.Duration
	TickerStartDelay time.Duration
	TickerSpeed      time.Duration
	StopsWidth       int

	// ClockInterval defaults to one second.
	ClockInterval time.Duration
}

// Service owns the displayed board. Run is the only goroutine that touches
// the board state or the sink; everything else posts to it.
type Service struct {
	builder Builder
	sink    board.Sink
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time

	manual chan struct{}
}

// New constructs the scheduler service.
func New(builder Builder, sink board.Sink, cfg Config, logger zerolog.Logger) *Service {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.TickerSpeed <= 0 {
		cfg.TickerSpeed = 200 * time.Millisecond
	}
	if cfg.ClockInterval <= 0 {
		cfg.ClockInterval = time.Second
	}
	return &Service{
		builder: builder,
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		now:     time.Now,
		manual:  make(chan struct{}, 1),
	}
}

// Refresh requests an out-of-cycle refresh. It never blocks; requests made
// while one is already pending are merged.
func (s *Service) Refresh() {
	select {
	case s.manual <- struct{}{}:
	default:
	}
}

type refreshResult struct {
	snap *board.Snapshot
	err  error
}

type tickRequest struct {
	id    ticker.RowID
	alive chan bool
}

// Run executes the board loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	var wg conc.WaitGroup
	defer wg.Wait()

	state := board.NewState(s.cfg.StopsWidth)
	results := make(chan refreshResult)
	ticks := make(chan tickRequest)
	inFlight := false

	startRefresh := func(reason string) {
		if inFlight {
			s.logger.Debug().Str("reason", reason).Msg("refresh already in flight, skipping")
			telemetry.RefreshTotal.WithLabelValues("skipped").Inc()
			return
		}
		inFlight = true
		s.logger.Debug().Str("reason", reason).Msg("refreshing board")
		wg.Go(func() {
			res := s.build(ctx)
			select {
			case results <- res:
			case <-ctx.Done():
			}
		})
	}

	clock := time.NewTicker(s.cfg.ClockInterval)
	defer clock.Stop()
	refresh := time.NewTicker(s.cfg.RefreshInterval)
	defer refresh.Stop()

	s.logger.Info().
		Dur("refresh_interval", s.cfg.RefreshInterval).
		Dur("ticker_speed", s.cfg.TickerSpeed).
		Msg("board loop started")

	s.sink.SetClockText(s.now().Format(ClockFormat))
	startRefresh("startup")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("board loop stopped")
			return ctx.Err()

		case <-clock.C:
			s.sink.SetClockText(s.now().Format(ClockFormat))

		case <-refresh.C:
			startRefresh("interval")

		case <-s.manual:
			startRefresh("manual")

		case res := <-results:
			inFlight = false
			if res.err != nil {
				s.logger.Error().Err(res.err).Msg("board refresh failed")
				telemetry.RefreshTotal.WithLabelValues("failure").Inc()
				s.sink.SetFooterText(board.FailureText(res.err))
				continue
			}

			animated := state.Apply(res.snap)
			s.sink.SetRows(state.Rows(), state.AsOf())
			s.sink.SetFooterText("")
			for _, id := range animated {
				wg.Go(func() { s.runTicker(ctx, id, ticks) })
			}

			telemetry.RefreshTotal.WithLabelValues("success").Inc()
			telemetry.BoardRows.Set(float64(len(res.snap.Rows)))
			telemetry.ActiveTickers.Set(float64(state.Tickers()))
			s.logger.Info().
				Int("rows", len(res.snap.Rows)).
				Int("tickers", len(animated)).
				Msg("board refreshed")

		case req := <-ticks:
			frame, ok := state.AdvanceTicker(req.id)
			if ok {
				s.sink.SetStops(req.id, frame)
				telemetry.TickerFramesTotal.Inc()
			}
			req.alive <- ok
		}
	}
}

func (s *Service) build(ctx context.Context) (res refreshResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = refreshResult{err: fmt.Errorf("refresh panicked: %v", r)}
		}
		telemetry.RefreshDuration.Observe(time.Since(start).Seconds())
	}()

	snap, err := s.builder.Build(ctx)
	return refreshResult{snap: snap, err: err}
}

// runTicker animates one row until the loop reports that its ticker is gone.
// The first frame is requested as soon as the start delay elapses.
func (s *Service) runTicker(ctx context.Context, id ticker.RowID, ticks chan<- tickRequest) {
	delay := time.NewTimer(s.cfg.TickerStartDelay)
	select {
	case <-delay.C:
	case <-ctx.Done():
		delay.Stop()
		return
	}

	alive := make(chan bool, 1)
	if !s.requestTick(ctx, id, ticks, alive) {
		return
	}

	interval := time.NewTicker(s.cfg.TickerSpeed)
	defer interval.Stop()

	for {
		select {
		case <-interval.C:
		case <-ctx.Done():
			return
		}
		if !s.requestTick(ctx, id, ticks, alive) {
			return
		}
	}
}

// requestTick asks the loop to advance one ticker and reports whether the
// ticker still exists.
func (s *Service) requestTick(ctx context.Context, id ticker.RowID, ticks chan<- tickRequest, alive chan bool) bool {
	select {
	case ticks <- tickRequest{id: id, alive: alive}:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-alive:
		return ok
	case <-ctx.Done():
		return false
	}
}
