package ws

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/auth"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// TokenValidator is satisfied by *auth.Validator.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Client represents a single WebSocket connection
type Client struct {
	id     uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	topics []string
	send   chan []byte
}

// ReadPump only detects disconnects; dashboards never send messages.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket error", zap.String("client", c.id.String()), zap.Error(err))
			}
			break
		}
	}
}

// WritePump sends one JSON event per frame plus keepalive pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler upgrades authenticated admin sessions to the live invalidation feed.
// Endpoint: WS /ws?token=JWT&topics=orders,slots (the session cookie also works)
type Handler struct {
	hub        *Hub
	validator  TokenValidator
	cookieName string
	known      []string
	upgrader   websocket.Upgrader
}

// NewHandler accepts subscriptions to the given topics only. allowedOrigins
// empty means same-origin requests only.
func NewHandler(hub *Hub, v TokenValidator, cookieName string, topics []string, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, validator: v, cookieName: cookieName, known: topics}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		tokenStr = auth.TokenFromRequest(r, h.cookieName)
	}
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.validator.Validate(tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if claims.AccountType != "admin" {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}

	topics, ok := h.parseTopics(r.URL.Query().Get("topics"))
	if !ok {
		http.Error(w, "unknown topic", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		id:     uuid.New(),
		hub:    h.hub,
		conn:   conn,
		topics: topics,
		send:   make(chan []byte, 256),
	}
	select {
	case client.hub.register <- client:
	case <-h.hub.done:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	h.hub.logger.Debug("ws client connected",
		zap.String("client", client.id.String()),
		zap.String("subject", claims.Subject),
		zap.Strings("topics", topics),
	)

	go client.WritePump()
	go client.ReadPump()
}

// parseTopics defaults to every known topic and rejects unknown names.
func (h *Handler) parseTopics(raw string) ([]string, bool) {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), h.known...), true
	}
	var topics []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		if !slices.Contains(h.known, t) {
			return nil, false
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return topics, len(topics) > 0
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, origin) {
			return true
		}
		return strings.EqualFold(strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://"), r.Host)
	}
}
