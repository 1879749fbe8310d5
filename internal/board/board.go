/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package board builds departure board snapshots and holds the displayed board.
package board

import (
	"context"
	"errors"
	"time"

	"github.com/friendsincode/departure_board/internal/ticker"
)

var (
	// ErrNoDepartures is returned when the upstream board has no services.
	ErrNoDepartures = errors.New("no departures found")

	// ErrNoCallingPoints is returned by a Source that has no calling point
	// data for a service, as opposed to an empty list.
	ErrNoCallingPoints = errors.New("no calling point data")
)

// Service is one upcoming departure as reported upstream.
// Empty strings mean the value was absent.
type Service struct {
	ServiceID     string
	ScheduledTime string
	EstimatedTime string
	Destination   string
	Platform      string
	Cancelled     bool
}

// Source supplies live departure data.
type Source interface {
	Departures(ctx context.Context, station string, limit int) ([]Service, error)
	CallingPoints(ctx context.Context, serviceID string) ([]string, error)
}

// DisplayRow is one formatted board row.
type DisplayRow struct {
	ID          ticker.RowID `json:"id"`
	Time        string       `json:"time"`
	Destination string       `json:"destination"`
	Platform    string       `json:"platform"`
	Status      string       `json:"status"`
	Stops       string       `json:"stops"`

	// StopsFull is the untruncated stops text that seeds the ticker.
	StopsFull string `json:"stops_full"`
}

// Sink renders the board.
type Sink interface {
	SetRows(rows []DisplayRow, asOf time.Time)
	SetStops(id ticker.RowID, text string)
	SetClockText(text string)
	SetFooterText(text string)
}

// Layout holds the column widths of the board.
type Layout struct {
	TimeWidth        int
	DestinationWidth int
	PlatformWidth    int
	StatusWidth      int
	StopsWidth       int
}

// Snapshot is the result of one successful build.
type Snapshot struct {
	Rows []DisplayRow
	AsOf time.Time
}

// FailureText is the footer shown when a refresh cycle fails.
func FailureText(err error) string {
	if errors.Is(err, ErrNoDepartures) {
		return "No departures found or API error. Check your key!"
	}
	return "API call failed: " + err.Error() + ". Ensure your API key is valid and the WSDL URL is current."
}
