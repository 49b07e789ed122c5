package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/scrapeloop/sessiond/internal/common"
	"github.com/scrapeloop/sessiond/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocketHandler broadcasts session lifecycle events to connected clients
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	allowedEvents    map[string]bool // Whitelist of events to broadcast (empty = allow all)
	throttlers       map[interfaces.EventType]*rate.Limiter
	throttleInterval time.Duration
	serverInstanceID string // Unique ID generated on startup - clients use to detect server restart
}

// NewWebSocketHandler creates a handler subscribed to all session event types
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]*sync.Mutex),
		allowedEvents:    make(map[string]bool),
		throttlers:       make(map[interfaces.EventType]*rate.Limiter),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil && len(config.AllowedEvents) > 0 {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
	}

	if config != nil && config.ThrottleInterval != "" {
		if interval, err := time.ParseDuration(config.ThrottleInterval); err == nil {
			h.throttleInterval = interval
		} else {
			logger.Warn().Err(err).Str("interval", config.ThrottleInterval).Msg("Failed to parse throttle interval - throttling disabled")
		}
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventSessionCreated,
		interfaces.EventSessionCleared,
		interfaces.EventSessionRenewed,
		interfaces.EventProfileAssigned,
	} {
		eventService.Subscribe(eventType, h.handleEvent)
	}

	return h
}

// ServeWS handles GET /ws - upgrades the connection and registers the client
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	// Tell the client which server instance it is talking to
	h.writeTo(conn, map[string]interface{}{
		"type":               "hello",
		"server_instance_id": h.serverInstanceID,
	})

	// Reader loop only detects disconnects; clients don't send messages
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) handleEvent(ctx context.Context, event interfaces.Event) error {
	return h.broadcast(event)
}

func (h *WebSocketHandler) broadcast(event interfaces.Event) error {
	if len(h.allowedEvents) > 0 && !h.allowedEvents[string(event.Type)] {
		return nil
	}

	if !h.allowEvent(event.Type) {
		return nil
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.writeTo(conn, event)
	}
	return nil
}

// allowEvent applies per-event-type throttling when configured
func (h *WebSocketHandler) allowEvent(eventType interfaces.EventType) bool {
	if h.throttleInterval <= 0 {
		return true
	}

	h.mu.Lock()
	limiter, ok := h.throttlers[eventType]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.throttleInterval), 1)
		h.throttlers[eventType] = limiter
	}
	h.mu.Unlock()

	return limiter.Allow()
}

// writeTo serializes writes per connection; gorilla connections don't allow
// concurrent writers
func (h *WebSocketHandler) writeTo(conn *websocket.Conn, payload interface{}) {
	h.mu.RLock()
	connMu, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	connMu.Lock()
	err := conn.WriteJSON(payload)
	connMu.Unlock()

	if err != nil {
		h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
		h.removeClient(conn)
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
