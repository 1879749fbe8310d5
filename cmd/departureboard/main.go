/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/cache"
	"github.com/friendsincode/departure_board/internal/config"
	"github.com/friendsincode/departure_board/internal/darwin"
	"github.com/friendsincode/departure_board/internal/display"
	"github.com/friendsincode/departure_board/internal/events"
	"github.com/friendsincode/departure_board/internal/logbuffer"
	"github.com/friendsincode/departure_board/internal/logging"
	"github.com/friendsincode/departure_board/internal/scheduler"
	"github.com/friendsincode/departure_board/internal/server"
	"github.com/friendsincode/departure_board/internal/telemetry"
	"github.com/friendsincode/departure_board/internal/version"
)

var (
	logger    zerolog.Logger
	cfg       *config.Config
	logBuffer *logbuffer.Buffer
)

var rootCmd = &cobra.Command{
	Use:           "departureboard",
	Short:         "Live train departure board",
	Long:          "departureboard shows live departures from Crewe with scrolling calling points, in the terminal and over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live board",
	Long:  "Run the board loop, drawing to the terminal and serving the HTTP API until interrupted. SIGHUP forces a refresh.",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, snapshotCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBuffer = logbuffer.New(cfg.LogBufferSize)
	logger = logging.SetupWithWriter(cfg.Environment, os.Stderr, logbuffer.NewWriter(logBuffer, nil))
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}
	return nil
}

func layout() board.Layout {
	return board.Layout{
		TimeWidth:        cfg.TimeWidth,
		DestinationWidth: cfg.DestinationWidth,
		PlatformWidth:    cfg.PlatformWidth,
		StatusWidth:      cfg.StatusWidth,
		StopsWidth:       cfg.StopsWidth,
	}
}

// newBuilder wires the Darwin client, the optional calling point cache and
// the snapshot builder. The returned func releases the cache.
func newBuilder() (*board.Builder, func() error) {
	var source board.Source = darwin.New(darwin.Config{
		Endpoint: cfg.DarwinURL,
		Token:    cfg.APIKey,
		Timeout:  cfg.DarwinTimeout,
	}, logger)

	closeCache := func() error { return nil }
	if cfg.RedisAddr != "" {
		c := cache.New(cache.Config{
			RedisAddr:        cfg.RedisAddr,
			RedisPassword:    cfg.RedisPassword,
			RedisDB:          cfg.RedisDB,
			CallingPointsTTL: cfg.CallingPointsTTL,
			DisableOnError:   true,
		}, logger)
		source = cache.NewSource(source, c)
		closeCache = c.Close
	}

	builder := board.NewBuilder(source, board.BuilderConfig{
		Station:           cfg.StationCode,
		ServicesLimit:     cfg.ServicesLimit,
		Layout:            layout(),
		DetailConcurrency: cfg.DetailConcurrency,
	}, logger)
	return builder, closeCache
}

func theme() display.Theme {
	return display.Theme{
		Title:      cfg.TitleColor,
		Clock:      cfg.ClockColor,
		Text:       cfg.TextColor,
		Background: cfg.BackgroundColor,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("station", cfg.StationCode).Str("version", version.Version).Msg("departure board starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "departure-board",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	builder, closeCache := newBuilder()
	defer func() {
		if err := closeCache(); err != nil {
			logger.Error().Err(err).Msg("failed to close cache")
		}
	}()

	bus := events.NewBus()
	hub := display.NewHub(cfg.StationName, bus)
	sinks := display.Multi{hub}
	if cfg.Terminal {
		sinks = append(sinks, display.NewTerminal(os.Stdout, cfg.StationName, layout(), theme()))
	}

	svc := scheduler.New(builder, sinks, scheduler.Config{
		RefreshInterval:  cfg.RefreshInterval,
		TickerStartDelay: cfg.TickerStartDelay,
		TickerSpeed:      cfg.TickerSpeed,
		StopsWidth:       cfg.StopsWidth,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info().Msg("SIGHUP received, refreshing board")
				svc.Refresh()
			}
		}
	}()

	var httpServer *http.Server
	if cfg.HTTPPort > 0 {
		srv := server.New(server.Config{Bind: cfg.HTTPBind, Port: cfg.HTTPPort}, hub, bus, svc, logBuffer, logger)
		httpServer = srv.HTTPServer()
		go func() {
			logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server error")
				stop()
			}
		}()
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("board loop failed")
	}

	logger.Info().Msg("shutting down gracefully...")

	if httpServer != nil {
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(timeoutCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}

	logger.Info().Msg("departure board stopped")
	return nil
}
