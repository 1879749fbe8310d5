/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ticker animates stops text that is wider than its column.
package ticker

import (
	"github.com/friendsincode/departure_board/internal/format"
)

// RowID identifies a board row for the lifetime of one snapshot.
type RowID string

// State is the animation state of one row.
type State struct {
	FullText string
	Position int
}

// Engine owns the ticker state of every animated row.
//
// Engine is not safe for concurrent use; the scheduler loop is its only caller.
type Engine struct {
	width  int
	states map[RowID]*State
}

// New creates an engine for a stops column of the given width.
func New(width int) *Engine {
	return &Engine{
		width:  width,
		states: make(map[RowID]*State),
	}
}

// Width returns the column width frames are cut to.
func (e *Engine) Width() int {
	return e.width
}

// Register starts tracking id when fullText overflows the column.
// It reports whether a state was created.
func (e *Engine) Register(id RowID, fullText string) bool {
	if format.Len(fullText) <= e.width {
		return false
	}
	e.states[id] = &State{FullText: fullText}
	return true
}

// Tick produces the next frame for id and advances its position by one.
// ok is false when id has no state, in which case nothing changes.
func (e *Engine) Tick(id RowID) (frame string, ok bool) {
	st, ok := e.states[id]
	if !ok {
		return "", false
	}
	if st.Position >= format.Len(st.FullText) {
		st.Position = 0
	}
	frame = format.Window(st.FullText, st.Position, e.width)
	st.Position++
	return frame, true
}

// Active reports whether id has a ticker state.
func (e *Engine) Active(id RowID) bool {
	_, ok := e.states[id]
	return ok
}

// Position returns the next position for id.
func (e *Engine) Position(id RowID) (int, bool) {
	st, ok := e.states[id]
	if !ok {
		return 0, false
	}
	return st.Position, true
}

// Len returns the number of animated rows.
func (e *Engine) Len() int {
	return len(e.states)
}

// Reset drops every ticker state. Pending ticks for dropped rows become no-ops.
func (e *Engine) Reset() {
	clear(e.states)
}
