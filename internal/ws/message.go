package ws

import (
	"encoding/json"
	"time"
)

// Inbound frame types. Everything else a client wants to do (sending
// messages, marking reads) goes over the HTTP API; the socket is for
// subscriptions and delivery only.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FramePing        = "ping"
)

// Outbound control frames. Domain events (newMessage, notification and
// the rest) are named by the services that emit them.
const (
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FramePong         = "pong"
	FrameError        = "error"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
}

// SubscribePayload selects a room channel
type SubscribePayload struct {
	RoomID string `json:"room_id"`
}

// SubscribedPayload confirms a subscription
type SubscribedPayload struct {
	RoomID      string `json:"room_id"`
	Subscribers int    `json:"subscribers"`
}

// ErrorPayload carries a frame-level error to the client
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewFrame builds an outbound frame
func NewFrame(event string, payload interface{}) (*Frame, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	return &Frame{
		Event:     event,
		Payload:   raw,
		Timestamp: time.Now(),
	}, nil
}

// NewErrorFrame builds an error frame
func NewErrorFrame(code int, message string) (*Frame, error) {
	return NewFrame(FrameError, &ErrorPayload{
		Code:    code,
		Message: message,
	})
}

// ParsePayload decodes the frame payload into v
func (f *Frame) ParsePayload(v interface{}) error {
	return json.Unmarshal(f.Payload, v)
}
