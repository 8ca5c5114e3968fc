// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package web serves the navigation state to browsers. Updates are pushed over websockets,
// the latest state and the colour scheme are available as JSON.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wneessen/stepnav/internal/contrast"
	"github.com/wneessen/stepnav/internal/logger"
)

const (
	clientBufferSize = 16
	writeTimeout     = 5 * time.Second
	shutdownTimeout  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Colors is the payload of /api/colors.
type Colors struct {
	Foreground string         `json:"foreground"`
	Background string         `json:"background"`
	Ratio      float64        `json:"ratio"`
	Level      contrast.Level `json:"level"`
}

// ColorsFor describes a colour pair with its contrast ratio and WCAG level.
func ColorsFor(pair contrast.Pair) Colors {
	ratio, _ := pair.Ratio()
	return Colors{
		Foreground: pair.Foreground.Hex(),
		Background: pair.Background.Hex(),
		Ratio:      ratio,
		Level:      contrast.LevelFor(ratio),
	}
}

// Hub keeps track of the websocket clients and the latest state.
type Hub struct {
	logger *logger.Logger
	colors Colors

	mu      sync.RWMutex
	state   []byte
	clients map[*websocket.Conn]chan []byte
}

// NewHub returns a Hub that serves the given colour scheme.
func NewHub(log *logger.Logger, scheme contrast.Pair) *Hub {
	return &Hub{
		logger:  log,
		colors:  ColorsFor(scheme),
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Broadcast stores v as the latest state and sends it to all clients. Clients that are not
// keeping up miss updates.
func (h *Hub) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = data
	for _, ch := range h.clients {
		select {
		case ch <- data:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler returns the HTTP routes of the hub.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.handleWebSocket)
	mux.HandleFunc("GET /api/state", h.handleState)
	mux.HandleFunc("GET /api/colors", h.handleColors)
	return mux
}

// ListenAndServe serves the hub on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: writeTimeout,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("failed to shut down web server", logger.Err(err))
		}
		h.closeClients()
	}()

	h.logger.Info("web server listening", slog.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve web interface: %w", err)
	}
	return nil
}

func (h *Hub) handleState(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	state := h.state
	h.mu.RUnlock()

	if state == nil {
		http.Error(w, "no state yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(state); err != nil {
		h.logger.Debug("failed to write state", logger.Err(err))
	}
}

func (h *Hub) handleColors(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.colors); err != nil {
		h.logger.Debug("failed to encode colors", logger.Err(err))
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("failed to upgrade websocket connection", logger.Err(err))
		return
	}

	send := make(chan []byte, clientBufferSize)
	h.mu.Lock()
	if h.state != nil {
		send <- h.state
	}
	h.clients[conn] = send
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", slog.String("remote", conn.RemoteAddr().String()))

	go h.writeLoop(conn, send)
	h.readLoop(conn)
	h.remove(conn)
}

// readLoop discards everything a client sends and returns once the connection is gone.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for data := range send {
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			break
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("failed to write to websocket client", logger.Err(err))
			break
		}
	}
	_ = conn.Close()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
}

func (h *Hub) closeClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		delete(h.clients, conn)
		close(send)
	}
}
