// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/spoofwatch/internal/history"
	"github.com/relabs-tech/spoofwatch/internal/spoof"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const wsWriteTimeout = 5 * time.Second

// StatusCmd is a request sent by a /ws/status client.
type StatusCmd struct {
	Action string `json:"action"` // "get_status", "get_history"
	Limit  int    `json:"limit,omitempty"`
}

// StatusMessage is pushed to /ws/status clients.
type StatusMessage struct {
	Type    string          `json:"type"` // "verdict", "history", "error"
	Verdict *spoof.Verdict  `json:"verdict,omitempty"`
	History []history.Entry `json:"history,omitempty"`
	Message string          `json:"message,omitempty"`
}

// statusSession is one websocket client. Writes are serialized because the
// broadcast and the request loop share the connection.
type statusSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *statusSession) send(msg StatusMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *statusSession) sendError(text string) {
	s.send(StatusMessage{Type: "error", Message: text})
}

// statusHub fans verdicts out to every connected session.
type statusHub struct {
	mu       sync.Mutex
	sessions map[*statusSession]struct{}
}

func newStatusHub() *statusHub {
	return &statusHub{sessions: make(map[*statusSession]struct{})}
}

func (h *statusHub) add(s *statusSession) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

func (h *statusHub) remove(s *statusSession) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

// broadcast sends msg to all sessions and drops the ones that fail.
func (h *statusHub) broadcast(msg StatusMessage) {
	h.mu.Lock()
	sessions := make([]*statusSession, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if err := s.send(msg); err != nil {
			h.remove(s)
			s.conn.Close()
		}
	}
}
