package ws

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/huddle-chat/huddle/internal/pkg/utils"
	"github.com/huddle-chat/huddle/internal/presence"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering sits on the edge proxy
		return true
	},
}

// Handler upgrades HTTP requests to WebSocket connections
type Handler struct {
	hub        *Hub
	registry   presence.Registry
	jwtManager *utils.JWTManager
	logger     *zap.Logger
}

func NewHandler(hub *Hub, registry presence.Registry, jwtManager *utils.JWTManager, logger *zap.Logger) *Handler {
	return &Handler{
		hub:        hub,
		registry:   registry,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// ServeWS handles WebSocket connection requests
// @Summary WebSocket connection
// @Description Establish a WebSocket connection for live events
// @Tags WebSocket
// @Param token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} map[string]string
// @Router /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	// Browsers cannot set headers on WebSocket requests, so the token may
	// arrive as a query parameter instead.
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		h.logger.Warn("Invalid token for WebSocket", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, claims.UserID, claims.Username, claims.Privileged, h.logger)

	h.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns hub statistics
// @Summary WebSocket statistics
// @Description Connection and room channel counters
// @Tags WebSocket
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Router /api/v1/ws/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.hub.Stats(),
	})
}

// GetOnlineUsers returns the currently connected user IDs
// @Summary Online users
// @Description List the IDs of users with at least one live connection
// @Tags WebSocket
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string][]string
// @Router /api/v1/ws/online [get]
func (h *Handler) GetOnlineUsers(c *gin.Context) {
	users := h.registry.OnlineUsers()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"users": users,
			"count": len(users),
		},
	})
}

// IsUserOnline checks whether a specific user is online
// @Summary Check user presence
// @Description Whether the user has at least one live connection
// @Tags WebSocket
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User ID"
// @Success 200 {object} map[string]bool
// @Router /api/v1/ws/online/{user_id} [get]
func (h *Handler) IsUserOnline(c *gin.Context) {
	userID := c.Param("user_id")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user_id": userID,
			"online":  h.registry.IsOnline(userID),
		},
	})
}
