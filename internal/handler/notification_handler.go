package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huddle-chat/huddle/internal/dto/request"
	"github.com/huddle-chat/huddle/internal/dto/response"
	"github.com/huddle-chat/huddle/internal/middleware"
	"github.com/huddle-chat/huddle/internal/model"
	"github.com/huddle-chat/huddle/internal/pkg/utils"
	"github.com/huddle-chat/huddle/internal/service"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
	dispatchService     *service.DispatchService
}

func NewNotificationHandler(
	notificationService *service.NotificationService,
	dispatchService *service.DispatchService,
) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		dispatchService:     dispatchService,
	}
}

// List godoc
// @Summary List notifications
// @Description The caller's notifications, newest first
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response{data=[]response.NotificationResponse}
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}

	notifications, err := h.notificationService.List(c.Request.Context(), identity, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewNotificationListResponse(notifications))
}

// UnreadCount godoc
// @Summary Unread notification count
// @Description The caller's unread badge count
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=response.UnreadCountResponse}
// @Router /api/v1/notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	count, err := h.notificationService.CountUnread(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &response.UnreadCountResponse{Count: count})
}

// MarkRead godoc
// @Summary Mark a notification read
// @Description Flip one of the caller's notifications to read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID := c.Param("id")
	if !utils.ValidateUUID(notificationID) {
		response.BadRequest(c, "invalid notification ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	if err := h.notificationService.MarkRead(c.Request.Context(), notificationID, identity); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark all notifications read
// @Description Flip every unread notification for the caller
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	identity, _ := middleware.CurrentIdentity(c)

	marked, err := h.notificationService.MarkAllRead(c.Request.Context(), identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"marked": marked})
}

// Dispatch godoc
// @Summary Dispatch a notification
// @Description Persist a notification and deliver it live or via push (privileged callers only)
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request.DispatchNotificationRequest true "Notification"
// @Success 201 {object} response.Response{data=response.DispatchResponse}
// @Failure 400 {object} response.Response
// @Router /api/v1/notifications/dispatch [post]
func (h *NotificationHandler) Dispatch(c *gin.Context) {
	var req request.DispatchNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	result, err := h.dispatchService.Dispatch(c.Request.Context(), &service.DispatchInput{
		SenderID:    identity.UserID,
		SenderName:  identity.Username,
		RecipientID: req.RecipientID,
		Type:        model.NotificationType(req.Type),
		Title:       req.Title,
		Body:        req.Message,
		Link:        req.Link,
		Meta:        req.Meta,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, response.NewDispatchResponse(
		response.NewNotificationResponse(result.Notification),
		string(result.Channel),
		result.UnreadCount,
		result.Delivered,
		result.TokenFailures,
	))
}
