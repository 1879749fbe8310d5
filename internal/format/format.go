/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package format turns raw service data into fixed-width board fields.
//
// Every length in this package is counted in runes. An overflowing value is
// cut to the column width and then marked with an ellipsis, so the result is
// three characters wider than the column.
package format

import (
	"strings"
	"unicode/utf8"
)

// Placeholders shown for absent values.
const (
	Unavailable = "N/A"
	ToBeDecided = "TBD"
	Direct      = "Direct"
	Ellipsis    = "..."
)

// Status labels.
const (
	StatusCancelled = "Cancelled"
	StatusOnTime    = "On Time"

	// upstreamOnTime is what the upstream feed reports for a punctual train.
	upstreamOnTime = "On time"
)

// Truncate cuts value to width runes and appends Ellipsis when it overflows.
func Truncate(value string, width int) string {
	if width < 0 {
		width = 0
	}
	if utf8.RuneCountInString(value) <= width {
		return value
	}
	return string([]rune(value)[:width]) + Ellipsis
}

// Field formats a possibly empty value for a column of the given width.
// An empty value yields the placeholder as is, whatever the width.
func Field(value string, width int, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return Truncate(value, width)
}

// Status derives the status label for a service.
func Status(cancelled bool, std, etd string) string {
	switch {
	case cancelled:
		return StatusCancelled
	case etd != "" && etd != std && etd != upstreamOnTime:
		return "Delayed (" + etd + ")"
	default:
		return StatusOnTime
	}
}

// Stops joins calling point names for the stops column.
func Stops(names []string) string {
	if len(names) == 0 {
		return Direct
	}
	return strings.Join(names, ", ")
}

// Window returns the ticker frame for full starting at position.
//
// The frame is padded with spaces to width only while text remains beyond
// it; the final frames before wrapping are left short.
func Window(full string, position, width int) string {
	runes := []rune(full)
	if position < 0 {
		position = 0
	}
	if position > len(runes) {
		position = len(runes)
	}
	end := position + width
	stop := end
	if stop > len(runes) {
		stop = len(runes)
	}
	frame := string(runes[position:stop])
	if end < len(runes) {
		frame += strings.Repeat(" ", width-(stop-position))
	}
	return frame
}

// Len reports the length of s in runes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
