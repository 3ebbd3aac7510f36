package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"helipad/internal/notifier"
	"helipad/pkg/logger"
	"helipad/pkg/model"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func TestStream_DeliversEvents(t *testing.T) {
	hub := notifier.NewHub(8, logger.Discard())
	defer hub.Close()

	router := httprouter.New()
	NewStreamHandler(hub, time.Second, logger.Discard()).RegisterRoutes(router)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("observer was never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	start := time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)
	hub.Publish(context.Background(), model.ChangeEvent{
		Kind:      model.EventCreated,
		ID:        "r1",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    model.StatusConfirmed,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var event model.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatal(err)
	}
	if event.ID != "r1" || event.Kind != model.EventCreated || event.Status != model.StatusConfirmed {
		t.Errorf("unexpected event %+v", event)
	}

	_ = conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("observer was not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
