/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package display contains the presentation sinks for the departure board.
package display

import (
	"sync"
	"time"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/events"
	"github.com/friendsincode/departure_board/internal/ticker"
)

// View is everything a board screen shows.
type View struct {
	Station string             `json:"station"`
	AsOf    *time.Time         `json:"as_of"`
	Clock   string             `json:"clock"`
	Footer  string             `json:"footer"`
	Rows    []board.DisplayRow `json:"rows"`
}

// Hub keeps the latest view for readers on other goroutines and announces
// every change on the event bus.
type Hub struct {
	station string
	bus     *events.Bus

	mu    sync.RWMutex
	view  View
	index map[ticker.RowID]int
}

// NewHub creates a hub for the named station. bus may be nil.
func NewHub(station string, bus *events.Bus) *Hub {
	return &Hub{
		station: station,
		bus:     bus,
		view:    View{Station: station, Rows: []board.DisplayRow{}},
		index:   make(map[ticker.RowID]int),
	}
}

// View returns a copy of the current view.
func (h *Hub) View() View {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v := h.view
	v.Rows = append([]board.DisplayRow(nil), h.view.Rows...)
	if h.view.AsOf != nil {
		asOf := *h.view.AsOf
		v.AsOf = &asOf
	}
	return v
}

// SetRows replaces the rows and records when the board was fetched.
func (h *Hub) SetRows(rows []board.DisplayRow, asOf time.Time) {
	h.mu.Lock()
	h.view.Rows = append([]board.DisplayRow(nil), rows...)
	h.view.AsOf = &asOf
	h.index = make(map[ticker.RowID]int, len(rows))
	for i, row := range rows {
		h.index[row.ID] = i
	}
	h.mu.Unlock()

	h.publish(events.EventRows, events.Payload{"rows": rows, "as_of": asOf})
}

// SetStops updates the calling points shown for one row.
func (h *Hub) SetStops(id ticker.RowID, text string) {
	h.mu.Lock()
	i, ok := h.index[id]
	if ok {
		h.view.Rows[i].Stops = text
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	h.publish(events.EventStops, events.Payload{"id": id, "stops": text})
}

// SetClockText updates the clock.
func (h *Hub) SetClockText(text string) {
	h.mu.Lock()
	h.view.Clock = text
	h.mu.Unlock()

	h.publish(events.EventClock, events.Payload{"text": text})
}

// SetFooterText sets the footer; empty clears it.
func (h *Hub) SetFooterText(text string) {
	h.mu.Lock()
	h.view.Footer = text
	h.mu.Unlock()

	h.publish(events.EventFooter, events.Payload{"text": text})
}

func (h *Hub) publish(t events.EventType, p events.Payload) {
	if h.bus != nil {
		h.bus.Publish(t, p)
	}
}

// Multi fans every call out to several sinks in order.
type Multi []board.Sink

// SetRows forwards the rows to every sink.
func (m Multi) SetRows(rows []board.DisplayRow, asOf time.Time) {
	for _, s := range m {
		s.SetRows(rows, asOf)
	}
}

// SetStops forwards a ticker frame to every sink.
func (m Multi) SetStops(id ticker.RowID, text string) {
	for _, s := range m {
		s.SetStops(id, text)
	}
}

// SetClockText forwards the clock to every sink.
func (m Multi) SetClockText(text string) {
	for _, s := range m {
		s.SetClockText(text)
	}
}

// SetFooterText forwards the footer to every sink.
func (m Multi) SetFooterText(text string) {
	for _, s := range m {
		s.SetFooterText(text)
	}
}
