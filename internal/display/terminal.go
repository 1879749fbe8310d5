/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/friendsincode/departure_board/internal/board"
	"github.com/friendsincode/departure_board/internal/format"
	"github.com/friendsincode/departure_board/internal/ticker"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\x1b[H\x1b[2J"

// Theme holds the board colours. Values are colour names or hex codes.
type Theme struct {
	Title      string
	Clock      string
	Text       string
	Background string
}

// namedColors maps the colour names accepted in configuration to hex codes.
var namedColors = map[string]string{
	"orange": "#FFA500",
	"amber":  "#FFBF00",
	"yellow": "#FFFF00",
	"white":  "#FFFFFF",
	"black":  "#000000",
	"red":    "#FF0000",
	"green":  "#00FF00",
	"blue":   "#0000FF",
	"grey":   "#808080",
	"gray":   "#808080",
}

// ColorFor resolves a configured colour to a lipgloss colour.
func ColorFor(name string) lipgloss.Color {
	n := strings.ToLower(strings.TrimSpace(name))
	if hex, ok := namedColors[n]; ok {
		return lipgloss.Color(hex)
	}
	return lipgloss.Color(name)
}

// Terminal draws the board to a terminal, redrawing the whole screen on
// every change.
type Terminal struct {
	out     io.Writer
	station string
	layout  board.Layout

	title  lipgloss.Style
	clock  lipgloss.Style
	text   lipgloss.Style
	header lipgloss.Style

	mu     sync.Mutex
	rows   []board.DisplayRow
	index  map[ticker.RowID]int
	asOf   time.Time
	clockT string
	footer string
}

// NewTerminal creates a terminal sink writing to out.
func NewTerminal(out io.Writer, station string, layout board.Layout, theme Theme) *Terminal {
	bg := ColorFor(theme.Background)
	return &Terminal{
		out:     out,
		station: station,
		layout:  layout,
		title:   lipgloss.NewStyle().Bold(true).Foreground(ColorFor(theme.Title)).Background(bg),
		clock:   lipgloss.NewStyle().Bold(true).Foreground(ColorFor(theme.Clock)).Background(bg),
		text:    lipgloss.NewStyle().Foreground(ColorFor(theme.Text)).Background(bg),
		header:  lipgloss.NewStyle().Underline(true).Foreground(ColorFor(theme.Text)).Background(bg),
		index:   make(map[ticker.RowID]int),
	}
}

// SetRows replaces the rows and redraws.
func (t *Terminal) SetRows(rows []board.DisplayRow, asOf time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append([]board.DisplayRow(nil), rows...)
	t.asOf = asOf
	t.index = make(map[ticker.RowID]int, len(rows))
	for i, row := range rows {
		t.index[row.ID] = i
	}
	t.draw()
}

// SetStops updates one row's calling points and redraws.
func (t *Terminal) SetStops(id ticker.RowID, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return
	}
	t.rows[i].Stops = text
	t.draw()
}

// SetClockText updates the clock and redraws.
func (t *Terminal) SetClockText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clockT = text
	t.draw()
}

// SetFooterText updates the footer and redraws.
func (t *Terminal) SetFooterText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.footer = text
	t.draw()
}

func (t *Terminal) draw() {
	_, _ = io.WriteString(t.out, clearScreen+t.render()+"\n")
}

// Render returns the current board as text.
func (t *Terminal) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.render()
}

// line pads each cell to its column width plus room for an ellipsis.
func (t *Terminal) line(style lipgloss.Style, cells ...string) string {
	widths := []int{t.layout.TimeWidth, t.layout.DestinationWidth, t.layout.PlatformWidth, t.layout.StatusWidth, t.layout.StopsWidth}
	parts := make([]string, len(cells))
	for i, cell := range cells {
		w := widths[i] + format.Len(format.Ellipsis)
		if pad := w - format.Len(cell); pad > 0 {
			cell += strings.Repeat(" ", pad)
		}
		parts[i] = cell
	}
	return style.Render(strings.Join(parts, " "))
}

func (t *Terminal) render() string {
	var b strings.Builder

	heading := fmt.Sprintf("Departures from %s", t.station)
	if !t.asOf.IsZero() {
		heading += " as of " + t.asOf.Format("15:04:05")
	}
	b.WriteString(t.title.Render(heading))
	b.WriteString("  ")
	b.WriteString(t.clock.Render(t.clockT))
	b.WriteString("\n\n")

	b.WriteString(t.line(t.header, "Time", "Destination", "Platform", "Status", "Calling at"))
	b.WriteString("\n")
	for _, row := range t.rows {
		b.WriteString(t.line(t.text, row.Time, row.Destination, row.Platform, row.Status, row.Stops))
		b.WriteString("\n")
	}

	if t.footer != "" {
		b.WriteString("\n")
		b.WriteString(t.text.Render(t.footer))
		b.WriteString("\n")
	}
	return b.String()
}
