package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/huddle-chat/huddle/internal/dto/request"
	"github.com/huddle-chat/huddle/internal/dto/response"
	"github.com/huddle-chat/huddle/internal/middleware"
	"github.com/huddle-chat/huddle/internal/model"
	"github.com/huddle-chat/huddle/internal/pkg/utils"
	"github.com/huddle-chat/huddle/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// Send godoc
// @Summary Send a message
// @Description Persist a message to a room and fan it out to live subscribers
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param request body request.SendMessageRequest true "Message"
// @Success 201 {object} response.Response{data=response.MessageResponse}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id}/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	msg, err := h.messageService.Send(c.Request.Context(), roomID, identity, req.Content, model.MessageType(req.Type))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, response.NewMessageResponse(msg))
}

// List godoc
// @Summary List room messages
// @Description Page through a room's messages, newest first
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Response{data=response.PaginatedResponse}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id}/messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	var query request.ListMessagesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	messages, err := h.messageService.List(c.Request.Context(), roomID, identity, query.Limit, query.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := response.NewMessageListResponse(messages)
	response.Success(c, response.NewPaginatedResponse(items, len(items), query.Limit, query.Offset))
}

// Edit godoc
// @Summary Edit a message
// @Description Change a message body (author only)
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param message_id path string true "Message ID"
// @Param request body request.EditMessageRequest true "New content"
// @Success 200 {object} response.Response{data=response.MessageResponse}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{message_id} [put]
func (h *MessageHandler) Edit(c *gin.Context) {
	messageID := c.Param("message_id")
	if !utils.ValidateUUID(messageID) {
		response.BadRequest(c, "invalid message ID")
		return
	}

	var req request.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	msg, err := h.messageService.Edit(c.Request.Context(), messageID, identity, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewMessageResponse(msg))
}

// Delete godoc
// @Summary Delete a message
// @Description Remove a message (author, room admin, or privileged caller)
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param message_id path string true "Message ID"
// @Success 204
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{message_id} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID := c.Param("message_id")
	if !utils.ValidateUUID(messageID) {
		response.BadRequest(c, "invalid message ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	if err := h.messageService.Delete(c.Request.Context(), messageID, identity); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark room messages read
// @Description Record the caller as having read every message in the room. Idempotent.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/rooms/{id}/read [post]
func (h *MessageHandler) MarkAllRead(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	marked, err := h.messageService.MarkAllRead(c.Request.Context(), roomID, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"marked": marked})
}

// GetReadReceipts godoc
// @Summary List read receipts
// @Description Who has read a message
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param message_id path string true "Message ID"
// @Success 200 {object} response.Response{data=[]response.ReadReceiptResponse}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{message_id}/reads [get]
func (h *MessageHandler) GetReadReceipts(c *gin.Context) {
	messageID := c.Param("message_id")
	if !utils.ValidateUUID(messageID) {
		response.BadRequest(c, "invalid message ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	receipts, err := h.messageService.GetReadReceipts(c.Request.Context(), messageID, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewReadReceiptListResponse(receipts))
}
