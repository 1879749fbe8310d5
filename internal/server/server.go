/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the departure board over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/departure_board/internal/display"
	"github.com/friendsincode/departure_board/internal/events"
	"github.com/friendsincode/departure_board/internal/logbuffer"
	"github.com/friendsincode/departure_board/internal/telemetry"
)

// Refresher triggers an out-of-cycle board refresh.
type Refresher interface {
	Refresh()
}

// Config holds the listener settings.
type Config struct {
	Bind string
	Port int
}

// Server bundles the HTTP router and the board it serves.
type Server struct {
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	hub       *display.Hub
	bus       *events.Bus
	refresher Refresher
	logBuffer *logbuffer.Buffer
}

// New constructs the server and wires routes.
func New(cfg Config, hub *display.Hub, bus *events.Bus, refresher Refresher, logBuf *logbuffer.Buffer, logger zerolog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("departure-board-api"))
	router.Use(telemetry.MetricsMiddleware)

	srv := &Server{
		logger:    logger.With().Str("component", "http").Logger(),
		router:    router,
		hub:       hub,
		bus:       bus,
		refresher: refresher,
		logBuffer: logBuf,
	}
	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// Websocket clients stay connected; handlers manage their own deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'; base-uri 'self'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/board", s.handleBoard)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/logs", s.handleLogs)
	})

	s.router.Get("/ws/board", s.handleBoardSocket)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.View())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refresher.Refresh()
	s.logger.Info().Str("request_id", middleware.GetReqID(r.Context())).Msg("manual refresh requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh requested"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
