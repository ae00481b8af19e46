package ws

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestNewFrame(t *testing.T) {
	frame, err := NewFrame("notification", map[string]string{"id": "n-1"})
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}

	if frame.Event != "notification" {
		t.Errorf("Expected notification event, got %s", frame.Event)
	}
	if frame.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}

	var payload map[string]string
	if err := frame.ParsePayload(&payload); err != nil {
		t.Fatalf("Failed to parse payload: %v", err)
	}
	if payload["id"] != "n-1" {
		t.Errorf("Expected payload round trip, got %v", payload)
	}
}

func TestNewFrame_NilPayload(t *testing.T) {
	frame, err := NewFrame(FramePong, nil)
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}
	if frame.Payload != nil {
		t.Error("Expected empty payload")
	}

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("Failed to marshal frame: %v", err)
	}
	var decoded Frame
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal frame: %v", err)
	}
	if decoded.Event != FramePong {
		t.Errorf("Expected pong, got %s", decoded.Event)
	}
}

func TestNewErrorFrame(t *testing.T) {
	frame, err := NewErrorFrame(http.StatusBadRequest, "invalid frame format")
	if err != nil {
		t.Fatalf("Failed to build error frame: %v", err)
	}
	if frame.Event != FrameError {
		t.Errorf("Expected error event, got %s", frame.Event)
	}

	var payload ErrorPayload
	if err := frame.ParsePayload(&payload); err != nil {
		t.Fatalf("Failed to parse payload: %v", err)
	}
	if payload.Code != http.StatusBadRequest || payload.Message != "invalid frame format" {
		t.Errorf("Unexpected error payload: %+v", payload)
	}
}

func TestClient_HandleFrame_Ping(t *testing.T) {
	hub, _ := newTestHub()
	client := newTestClient(hub, "user-1")

	client.handleFrame(&Frame{Event: FramePing, RequestID: "req-42"})

	frame := drainFrame(t, client)
	if frame.Event != FramePong {
		t.Errorf("Expected pong, got %s", frame.Event)
	}
	if frame.RequestID != "req-42" {
		t.Errorf("Expected request id echoed, got %q", frame.RequestID)
	}
}

func TestClient_HandleFrame_Subscribe(t *testing.T) {
	hub, _ := newTestHub()
	client := newTestClient(hub, "user-1")
	hub.registerClient(client)

	payload, _ := json.Marshal(&SubscribePayload{RoomID: "room-1"})
	client.handleFrame(&Frame{Event: FrameSubscribe, Payload: payload})

	if !client.IsSubscribed("room-1") {
		t.Error("Expected subscription through frame handler")
	}
	frame := drainFrame(t, client)
	if frame.Event != FrameSubscribed {
		t.Errorf("Expected subscribed confirmation, got %s", frame.Event)
	}
}

func TestClient_HandleFrame_InvalidSubscribe(t *testing.T) {
	hub, _ := newTestHub()
	client := newTestClient(hub, "user-1")

	client.handleFrame(&Frame{Event: FrameSubscribe, Payload: json.RawMessage(`{}`)})

	frame := drainFrame(t, client)
	if frame.Event != FrameError {
		t.Errorf("Expected error frame for missing room id, got %s", frame.Event)
	}
}

func TestClient_HandleFrame_Unknown(t *testing.T) {
	hub, _ := newTestHub()
	client := newTestClient(hub, "user-1")

	client.handleFrame(&Frame{Event: "sendMessage"})

	frame := drainFrame(t, client)
	if frame.Event != FrameError {
		t.Errorf("Expected error frame for unknown event, got %s", frame.Event)
	}
}
