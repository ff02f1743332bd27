package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/threadwarden/threadwarden/internal/common/logger"
	"github.com/threadwarden/threadwarden/internal/events/bus"
)

func setupStream(t *testing.T) (*bus.MemoryEventBus, *Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, _ := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "json", OutputPath: "stdout"})
	eventBus := bus.NewMemoryEventBus(log)

	hub, err := NewHub(eventBus, log)
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}

	router := gin.New()
	router.GET("/ws/events", hub.HandleWS)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		hub.Close()
		server.Close()
		eventBus.Close()
	})
	return eventBus, hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubStreamsLifecycleEvents(t *testing.T) {
	eventBus, hub, server := setupStream(t)
	conn := dial(t, server)

	// Wait for the client to attach before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never attached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	event := bus.NewEvent(bus.SubjectThreadNotified, "watchdog", map[string]interface{}{
		"threadId": "t1",
	})
	if err := eventBus.Publish(context.Background(), bus.SubjectThreadNotified, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var received bus.Event
	if err := json.Unmarshal(payload, &received); err != nil {
		t.Fatalf("failed to decode streamed event: %v", err)
	}
	if received.Type != bus.SubjectThreadNotified {
		t.Errorf("expected type %q, got %q", bus.SubjectThreadNotified, received.Type)
	}
	if received.Data["threadId"] != "t1" {
		t.Errorf("unexpected data: %v", received.Data)
	}
}

func TestHubDetachesClosedClients(t *testing.T) {
	_, hub, server := setupStream(t)
	conn := dial(t, server)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never attached")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never detached")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
