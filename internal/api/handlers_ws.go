// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/fastnoteapp/backend/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin checks are out of this package's scope (spec.md §1
	// lists CORS as an external collaborator); a deployment fronts this
	// with its own origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWSNotes(w http.ResponseWriter, r *http.Request) {
	s.upgrade(w, r, realtime.ChannelNotes)
}

func (s *Server) handleWSFolders(w http.ResponseWriter, r *http.Request) {
	s.upgrade(w, r, realtime.ChannelFolders)
}

// upgrade resolves the bearer credential from the query parameter or
// header (spec.md §4.6), then performs the WebSocket handshake. A missing
// or invalid credential fails the upgrade outright — no handshake, no
// close frame, just a non-101 response.
func (s *Server) upgrade(w http.ResponseWriter, r *http.Request, channel realtime.Channel) {
	token := r.URL.Query().Get("token")
	if token == "" {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) > len(prefix) && header[:len(prefix)] == prefix {
			token = header[len(prefix):]
		}
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	tenant, err := s.issuer.VerifyAccessToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		return
	}

	if _, ok := s.hub.Register(tenant, channel, conn); !ok {
		conn.Close()
		return
	}
}
