package service

import "github.com/huddle-chat/huddle/internal/model"

// Event names on the live channel. Room-scoped events go to connections
// subscribed to the room; global events reach every connection.
const (
	EventNewMessage          = "newMessage"
	EventMessageDeleted      = "messageDeleted"
	EventMessageEdited       = "messageEdited"
	EventRoomCreated         = "roomCreated"
	EventRoomUpdated         = "roomUpdated"
	EventUserJoined          = "userJoined"
	EventJoinRequest         = "joinRequest"
	EventJoinRequestResponse = "joinRequestResponse"
	EventNotification        = "notification"
	EventUnreadCount         = "unreadCountUpdate"
)

// Broadcaster is the live fanout path. Delivery is best-effort and
// at-most-once per connection; a dropped frame is never redelivered.
// Implemented by the websocket hub.
type Broadcaster interface {
	BroadcastToRoom(roomID, event string, payload interface{})
	BroadcastGlobal(event string, payload interface{})
}

// NopBroadcaster discards everything. Used in tests and as a default
// before the hub is wired in.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToRoom(roomID, event string, payload interface{}) {}
func (NopBroadcaster) BroadcastGlobal(event string, payload interface{})         {}

// Event payloads

type NewMessageEvent struct {
	Message *model.Message `json:"message"`
	RoomID  string         `json:"roomId"`
}

type MessageDeletedEvent struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
}

type MessageEditedEvent struct {
	Message *model.Message `json:"message"`
	RoomID  string         `json:"roomId"`
}

type RoomCreatedEvent struct {
	Room *model.RoomDetail `json:"room"`
}

type RoomUpdatedEvent struct {
	Room *model.Room `json:"room"`
}

type UserJoinedEvent struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type JoinRequestEvent struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type JoinRequestResponseEvent struct {
	RoomID    string `json:"roomId"`
	RequestID string `json:"requestId"`
	Approved  bool   `json:"approved"`
	UserID    string `json:"userId"`
}

type UnreadCountEvent struct {
	Count int `json:"count"`
}
