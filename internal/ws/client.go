package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/huddle-chat/huddle/internal/metrics"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Send buffer size
	sendBufferSize = 256
)

// Client is one WebSocket connection. It satisfies presence.Conn: the
// dispatcher delivers notifications straight to it without knowing
// anything about sockets.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	userID     string
	username   string
	privileged bool
	rooms      map[string]bool // subscribed room channels
	mu         sync.RWMutex
	logger     *zap.Logger

	// Guards send against close. Broadcasts and dispatches hold
	// connection snapshots and send from their own goroutines, so the
	// hub closing this client can race any of them.
	sendMu sync.Mutex
	closed bool
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string, privileged bool, logger *zap.Logger) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		userID:     userID,
		username:   username,
		privileged: privileged,
		rooms:      make(map[string]bool),
		logger:     logger,
	}
}

// UserID returns the authenticated user behind this connection
func (c *Client) UserID() string {
	return c.userID
}

// Rooms returns the room channels this connection is subscribed to
func (c *Client) Rooms() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

// IsSubscribed checks whether this connection listens to a room channel
func (c *Client) IsSubscribed(roomID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[roomID]
}

func (c *Client) addRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID] = true
}

func (c *Client) removeRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, roomID)
}

// Send implements presence.Conn. Best-effort: a full buffer drops the
// frame rather than block the caller.
func (c *Client) Send(event string, payload interface{}) {
	frame, err := NewFrame(event, payload)
	if err != nil {
		c.logger.Error("Failed to build frame",
			zap.String("user_id", c.userID),
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}
	c.sendFrame(frame)
}

func (c *Client) sendFrame(frame *Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("Failed to marshal frame",
			zap.String("user_id", c.userID),
			zap.Error(err),
		)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		// Connection torn down between snapshot and send; this leg of
		// the delivery is lost, the rest of the fan-out continues.
		return
	}

	select {
	case c.send <- data:
	default:
		// Slow consumer; drop and count, never redeliver
		metrics.DroppedFrames.Inc()
		c.logger.Warn("Client send buffer full, frame dropped",
			zap.String("user_id", c.userID),
			zap.String("event", frame.Event),
		)
	}
}

func (c *Client) sendError(code int, message string) {
	frame, _ := NewErrorFrame(code, message)
	c.sendFrame(frame)
}

// Close marks the client closed and releases the send channel. Safe
// against concurrent Send; frames arriving after close are dropped.
func (c *Client) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump pumps inbound frames from the connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.String("user_id", c.userID),
					zap.Error(err),
				)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn("Failed to parse frame",
				zap.String("user_id", c.userID),
				zap.Error(err),
			)
			c.sendError(http.StatusBadRequest, "invalid frame format")
			continue
		}

		c.handleFrame(&frame)
	}
}

// WritePump pumps outbound frames from the hub to the connection
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush queued frames into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

func (c *Client) handleFrame(frame *Frame) {
	switch frame.Event {
	case FrameSubscribe:
		c.handleSubscribe(frame)
	case FrameUnsubscribe:
		c.handleUnsubscribe(frame)
	case FramePing:
		pong, _ := NewFrame(FramePong, nil)
		pong.RequestID = frame.RequestID
		c.sendFrame(pong)
	default:
		c.sendError(http.StatusBadRequest, "unknown frame type")
	}
}

func (c *Client) handleSubscribe(frame *Frame) {
	var payload SubscribePayload
	if err := frame.ParsePayload(&payload); err != nil || payload.RoomID == "" {
		c.sendError(http.StatusBadRequest, "invalid subscribe payload")
		return
	}

	c.hub.Subscribe(c, payload.RoomID)
}

func (c *Client) handleUnsubscribe(frame *Frame) {
	var payload SubscribePayload
	if err := frame.ParsePayload(&payload); err != nil || payload.RoomID == "" {
		c.sendError(http.StatusBadRequest, "invalid unsubscribe payload")
		return
	}

	c.hub.Unsubscribe(c, payload.RoomID)
}
