// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package streaming

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketServer broadcasts a Hub's DecisionEvents to connected clients.
// Kept in the teacher's WebSocketServer shape (permissive upgrader, a
// reader goroutine that just watches for client disconnect, a ticker-driven
// ping loop) but over a single decision-event feed instead of a
// caller-selected jobs/nodes/partitions stream.
type WebSocketServer struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWebSocketServer creates a WebSocket server broadcasting hub's
// decision events.
func NewWebSocketServer(hub *Hub) *WebSocketServer {
	return &WebSocketServer{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// StreamMessage is the envelope sent for every decision event.
type StreamMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Error     string      `json:"error,omitempty"`
}

// HandleWebSocket upgrades the connection and streams every DecisionEvent
// published to the hub until the client disconnects.
func (ws *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("WebSocket close error: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go ws.watchForClose(conn, cancel)
	go ws.keepAlive(ctx, conn)

	ch, unsubscribe := ws.hub.Subscribe()
	defer unsubscribe()

	ws.sendMessage(conn, StreamMessage{Type: "connected", Timestamp: time.Now()})

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-ch:
			if !open {
				ws.sendMessage(conn, StreamMessage{Type: "stream_closed", Timestamp: time.Now()})
				return
			}
			ws.sendMessage(conn, StreamMessage{Type: "decision", Data: event, Timestamp: time.Now()})
		}
	}
}

// watchForClose blocks reading from the connection purely to detect the
// client going away (clients never send us anything over this stream) and
// cancels ctx once it does.
func (ws *WebSocketServer) watchForClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// sendMessage sends a message over the WebSocket.
func (ws *WebSocketServer) sendMessage(conn *websocket.Conn, msg StreamMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("WebSocket write error: %v", err)
	}
}

// keepAlive pings the connection periodically so intermediaries don't
// close it for inactivity.
func (ws *WebSocketServer) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("WebSocket ping error: %v", err)
				return
			}
		}
	}
}
