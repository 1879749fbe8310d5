/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/events"
)

func sampleRows() []board.DisplayRow {
	return []board.DisplayRow{
		{ID: "r1", Time: "14:05", Destination: "London E...", Platform: "5", Status: "On Time", Stops: "Stafford, ...", StopsFull: "Stafford, Milton Keynes Central"},
		{ID: "r2", Time: "14:10", Destination: "Chester", Platform: "TBD", Status: "Delayed (14:20)", Stops: "Direct", StopsFull: "Direct"},
	}
}

func TestHubTracksView(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(events.BoardEvents...)
	hub := NewHub("Crewe", bus)
	asOf := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

	hub.SetClockText("14:00:01")
	hub.SetRows(sampleRows(), asOf)
	hub.SetStops("r1", "tafford, M")
	hub.SetStops("gone", "ignored")
	hub.SetFooterText("API call failed: timeout")

	v := hub.View()
	if v.Station != "Crewe" || v.Clock != "14:00:01" || v.Footer != "API call failed: timeout" {
		t.Fatalf("view = %+v", v)
	}
	if v.AsOf == nil || !v.AsOf.Equal(asOf) {
		t.Fatalf("as of = %v", v.AsOf)
	}
	if v.Rows[0].Stops != "tafford, M" || v.Rows[1].Stops != "Direct" {
		t.Fatalf("rows = %+v", v.Rows)
	}

	var got []events.EventType
	for len(sub) > 0 {
		got = append(got, (<-sub).Type)
	}
	want := []events.EventType{events.EventClock, events.EventRows, events.EventStops, events.EventFooter}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestHubViewIsACopy(t *testing.T) {
	hub := NewHub("Crewe", nil)
	hub.SetRows(sampleRows(), time.Now())

	v := hub.View()
	v.Rows[0].Stops = "mutated"
	if hub.View().Rows[0].Stops == "mutated" {
		t.Fatal("view rows should not alias hub state")
	}
}

func TestTerminalRender(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, "Crewe", board.Layout{TimeWidth: 8, DestinationWidth: 8, PlatformWidth: 8, StatusWidth: 25, StopsWidth: 10},
		Theme{Title: "orange", Clock: "orange", Text: "orange", Background: "black"})

	term.SetClockText("14:00:05")
	term.SetRows(sampleRows(), time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC))
	term.SetStops("r1", "tafford, M")
	term.SetFooterText("No departures found or API error. Check your key!")

	screen := term.Render()
	for _, want := range []string{
		"Departures from Crewe as of 14:00:00",
		"14:00:05",
		"Calling at",
		"London E...",
		"Delayed (14:20)",
		"tafford, M",
		"No departures found or API error. Check your key!",
	} {
		if !strings.Contains(screen, want) {
			t.Fatalf("screen missing %q:\n%s", want, screen)
		}
	}
	if strings.Contains(screen, "Stafford, ...") {
		t.Fatal("ticker frame should replace the truncated stops")
	}
	if !strings.HasPrefix(out.String(), clearScreen) {
		t.Fatal("each draw should start by clearing the screen")
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewHub("Crewe", nil), NewHub("Crewe", nil)
	m := Multi{a, b}

	m.SetRows(sampleRows(), time.Now())
	m.SetStops("r1", "frame")
	m.SetClockText("12:00:00")
	m.SetFooterText("")

	for _, h := range []*Hub{a, b} {
		v := h.View()
		if len(v.Rows) != 2 || v.Rows[0].Stops != "frame" || v.Clock != "12:00:00" {
			t.Fatalf("view = %+v", v)
		}
	}
}

func TestColorFor(t *testing.T) {
	if got := ColorFor("Orange"); got != "#FFA500" {
		t.Fatalf("orange = %q", got)
	}
	if got := ColorFor("#123456"); got != "#123456" {
		t.Fatalf("hex = %q", got)
	}
}
