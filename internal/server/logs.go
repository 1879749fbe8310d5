/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/departure_board/internal/logbuffer"
)

const defaultLogLimit = 100

// handleLogs serves recent log lines from the in-memory buffer, newest first.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBuffer == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_disabled")
		return
	}

	q := r.URL.Query()
	params := logbuffer.QueryParams{
		Level:      q.Get("level"),
		Component:  q.Get("component"),
		Search:     q.Get("search"),
		Limit:      defaultLogLimit,
		Descending: true,
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		params.Limit = limit
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since")
			return
		}
		params.Since = since
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": s.logBuffer.Query(params),
		"stats":   s.logBuffer.Stats(),
	})
}
