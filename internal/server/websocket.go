/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/departure_board/internal/events"
)

// eventView is the first message on a board socket: the full current view.
const eventView events.EventType = "board.view"

const pingInterval = 15 * time.Second

// handleBoardSocket streams the board: one full view, then every change.
func (s *Server) handleBoardSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	// Subscribe before taking the view so no change falls in between.
	sub := s.bus.Subscribe(events.BoardEvents...)
	defer s.bus.Unsubscribe(sub)

	// Clients never send anything; CloseRead handles their close frames.
	ctx := conn.CloseRead(r.Context())

	if err := writeEvent(ctx, conn, events.Event{Type: eventView, Payload: events.Payload{"view": s.hub.View()}}); err != nil {
		s.logger.Debug().Err(err).Msg("websocket initial write failed")
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ping.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				s.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *ws.Conn, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, ws.MessageText, data)
}
