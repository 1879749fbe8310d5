/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/display"
	"github.com/friendsincode/departure_board/internal/events"
	"github.com/friendsincode/departure_board/internal/logbuffer"
)

type countingRefresher struct {
	n atomic.Int32
}

func (c *countingRefresher) Refresh() { c.n.Add(1) }

type fixture struct {
	srv       *httptest.Server
	hub       *display.Hub
	refresher *countingRefresher
	logs      *logbuffer.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := events.NewBus()
	hub := display.NewHub("Crewe", bus)
	refresher := &countingRefresher{}
	logs := logbuffer.New(50)

	s := New(Config{Bind: "127.0.0.1", Port: 0}, hub, bus, refresher, logs, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, hub: hub, refresher: refresher, logs: logs}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestBoardEndpoint(t *testing.T) {
	f := newFixture(t)
	f.hub.SetRows([]board.DisplayRow{
		{ID: "r1", Time: "14:05", Destination: "London E...", Platform: "5", Status: "On Time", Stops: "Stafford, ...", StopsFull: "Stafford, Milton Keynes Central"},
	}, time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC))
	f.hub.SetStops("r1", "tafford, M")
	f.hub.SetClockText("14:00:03")

	resp, err := http.Get(f.srv.URL + "/api/v1/board")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var view display.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Station != "Crewe" || view.Clock != "14:00:03" || len(view.Rows) != 1 {
		t.Fatalf("view = %+v", view)
	}
	if view.Rows[0].Stops != "tafford, M" {
		t.Fatalf("board should carry the current ticker frame, got %q", view.Rows[0].Stops)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.srv.URL+"/api/v1/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if f.refresher.n.Load() != 1 {
		t.Fatalf("refreshes = %d", f.refresher.n.Load())
	}

	resp, err = http.Get(f.srv.URL + "/api/v1/refresh")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET refresh status = %d", resp.StatusCode)
	}
}

func TestLogsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.logs.Add(logbuffer.LogEntry{Level: "info", Message: "board refreshed", Component: "scheduler"})
	f.logs.Add(logbuffer.LogEntry{Level: "error", Message: "board refresh failed", Component: "scheduler"})

	resp, err := http.Get(f.srv.URL + "/api/v1/logs?level=error")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Entries []logbuffer.LogEntry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].Message != "board refresh failed" {
		t.Fatalf("entries = %+v", body.Entries)
	}

	resp2, err := http.Get(f.srv.URL + "/api/v1/logs?limit=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp2.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestBoardSocketStreamsChanges(t *testing.T) {
	f := newFixture(t)
	f.hub.SetFooterText("No departures found or API error. Check your key!")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/board"
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	var first struct {
		Type    string `json:"type"`
		Payload struct {
			View display.View `json:"view"`
		} `json:"payload"`
	}
	readJSON(t, ctx, conn, &first)
	if first.Type != "board.view" || !strings.HasPrefix(first.Payload.View.Footer, "No departures") {
		t.Fatalf("first message = %+v", first)
	}

	f.hub.SetClockText("14:00:09")

	var next events.Event
	readJSON(t, ctx, conn, &next)
	if next.Type != events.EventClock || next.Payload["text"] != "14:00:09" {
		t.Fatalf("next message = %+v", next)
	}
}

func readJSON(t *testing.T, ctx context.Context, conn *ws.Conn, v any) {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
}
