/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package board

import (
	"time"

	"github.com/friendsincode/departure_board/internal/ticker"
)

// State is the board currently on display together with its tickers.
//
// State is not safe for concurrent use. The scheduler loop is the single
// writer; everything else sees the board through a Sink.
type State struct {
	rows    []DisplayRow
	index   map[ticker.RowID]int
	tickers *ticker.Engine
	asOf    time.Time
}

// NewState creates an empty board for a stops column of the given width.
func NewState(stopsWidth int) *State {
	return &State{
		index:   make(map[ticker.RowID]int),
		tickers: ticker.New(stopsWidth),
	}
}

// Apply replaces the board with snap. Old rows and tickers are dropped
// before anything new is registered. It returns the rows that need a ticker,
// in board order.
func (s *State) Apply(snap *Snapshot) []ticker.RowID {
	s.tickers.Reset()
	s.rows = make([]DisplayRow, len(snap.Rows))
	s.index = make(map[ticker.RowID]int, len(snap.Rows))
	s.asOf = snap.AsOf

	var animated []ticker.RowID
	for i, row := range snap.Rows {
		s.rows[i] = row
		s.index[row.ID] = i
		if s.tickers.Register(row.ID, row.StopsFull) {
			animated = append(animated, row.ID)
		}
	}
	return animated
}

// AdvanceTicker moves the ticker of id one step and stores the new frame in
// the row's stops field. ok is false when the ticker no longer exists.
func (s *State) AdvanceTicker(id ticker.RowID) (frame string, ok bool) {
	frame, ok = s.tickers.Tick(id)
	if !ok {
		return "", false
	}
	if i, found := s.index[id]; found {
		s.rows[i].Stops = frame
	}
	return frame, true
}

// Rows returns a copy of the rows on display.
func (s *State) Rows() []DisplayRow {
	out := make([]DisplayRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// AsOf returns when the displayed snapshot was built.
func (s *State) AsOf() time.Time {
	return s.asOf
}

// Tickers returns the number of animated rows.
func (s *State) Tickers() int {
	return s.tickers.Len()
}

// TickerPosition exposes the next ticker position of id.
func (s *State) TickerPosition(id ticker.RowID) (int, bool) {
	return s.tickers.Position(id)
}
