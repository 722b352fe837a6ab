package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sort-storage/admin/internal/auth"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, topics ...string) *Client {
	return &Client{
		id:     uuid.New(),
		hub:    hub,
		topics: topics,
		send:   make(chan []byte, 256),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestHubRegistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, "orders", "slots")

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.Subscribers("orders") != 1 || hub.Subscribers("slots") != 1 {
		t.Fatal("client not registered in every topic room")
	}
	if hub.Subscribers("users") != 0 {
		t.Fatal("client registered in a topic it did not ask for")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := startHub(t)
	client := mockClient(hub, "orders", "slots")

	hub.register <- client
	time.Sleep(10 * time.Millisecond)
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Rooms should be cleaned up when empty
	if len(hub.rooms) != 0 {
		t.Fatalf("rooms not cleaned up: %v", hub.rooms)
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestPublishToSingleTopic(t *testing.T) {
	hub := startHub(t)
	orders := mockClient(hub, "orders")
	slots := mockClient(hub, "slots")

	hub.register <- orders
	hub.register <- slots
	time.Sleep(10 * time.Millisecond)

	hub.Publish("orders", []string{"order/o1", "admin-orders"})

	event := receive(t, orders)
	if event.Type != "invalidate" {
		t.Errorf("type: got %q, want invalidate", event.Type)
	}
	var payload InvalidatePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Keys) != 2 || payload.Keys[0] != "order/o1" {
		t.Errorf("keys: got %v", payload.Keys)
	}

	select {
	case <-slots.send:
		t.Fatal("slots subscriber should not receive order events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	slow := &Client{id: uuid.New(), hub: hub, topics: []string{"orders", "slots"}, send: make(chan []byte)}

	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Publish("orders", []string{"orders"})
	time.Sleep(20 * time.Millisecond)

	if hub.Subscribers("orders") != 0 || hub.Subscribers("slots") != 0 {
		t.Fatal("slow client should be removed from every room")
	}
}

func TestRunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := mockClient(hub, "orders", "users")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed")
	}
}

func TestParseTopics(t *testing.T) {
	h := NewHandler(NewHub(nil), nil, "admin_session", []string{"orders", "slots", "users"}, nil)

	all, ok := h.parseTopics("")
	if !ok || len(all) != 3 {
		t.Errorf("default topics: got %v", all)
	}
	got, ok := h.parseTopics("slots, orders,slots")
	if !ok || strings.Join(got, ",") != "slots,orders" {
		t.Errorf("topics: got %v", got)
	}
	if _, ok := h.parseTopics("orders,bogus"); ok {
		t.Error("unknown topic should be rejected")
	}
}

func TestServeWS_EndToEnd(t *testing.T) {
	const secret = "ws-secret"
	hub := startHub(t)
	handler := NewHandler(hub, auth.NewValidator(secret, "", ""), "admin_session", []string{"orders", "slots"}, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	// Missing token is rejected before upgrade.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial without token to fail")
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	regular, _ := auth.GenerateToken(secret, "u2", "", "regular", time.Hour)
	_, resp, err = websocket.DefaultDialer.Dial(wsURL+"?token="+regular, nil)
	if err == nil {
		t.Fatal("expected dial with regular account to fail")
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	token, _ := auth.GenerateToken(secret, "u1", "", "admin", time.Hour)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?topics=slots&token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Subscribers("slots") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish("slots", []string{"all-slots"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Type != "invalidate" || !strings.Contains(string(event.Payload), "all-slots") {
		t.Errorf("event: got %+v", event)
	}
}
