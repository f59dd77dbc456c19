package websocket

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bnb-reservations/backend/internal/storage/models"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hub := NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func TestEventBroadcaster_BookingChanged(t *testing.T) {
	hub := newTestHub(t)
	client := NewClient(hub)
	hub.Register(client)

	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	NewEventBroadcaster(hub).BookingChanged(TypeBookingCreated, models.Booking{
		ID: "b-1", RoomID: models.DefaultRoomID, StartDate: start, EndDate: start.AddDate(0, 0, 5),
		Notes: "private",
	})

	select {
	case raw := <-client.Send():
		var msg struct {
			Type    MessageType    `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decoding message: %v", err)
		}
		if msg.Type != TypeBookingCreated || msg.Payload["id"] != "b-1" {
			t.Fatalf("unexpected message %s", raw)
		}
		if _, leaked := msg.Payload["notes"]; leaked {
			t.Fatal("payload must not carry booking details")
		}
	case <-time.After(time.Second):
		t.Fatal("expected broadcast to reach client")
	}
}

func TestEventBroadcaster_NilIsNoop(t *testing.T) {
	var b *EventBroadcaster
	b.Notification("info", "title", "message")

	if NewEventBroadcaster(nil) != nil {
		t.Fatal("expected nil broadcaster without a hub")
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := newTestHub(t)
	client := NewClient(hub)
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.Send():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("expected send channel to be closed")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("expected no clients, got %d", hub.ClientCount())
	}
}
