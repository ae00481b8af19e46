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

type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
	}
}

// Create godoc
// @Summary Create a room
// @Description Create a chat room with the caller as its first admin
// @Tags Rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request.CreateRoomRequest true "Room data"
// @Success 201 {object} response.Response{data=response.RoomDetailResponse}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req request.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	v := utils.NewValidator()
	v.ValidateRoomName("name", req.Name)
	if v.HasErrors() {
		response.ValidationError(c, v.Errors())
		return
	}

	detail, err := h.roomService.Create(c.Request.Context(), &service.CreateRoomInput{
		Name:        utils.SanitizeString(req.Name),
		Description: utils.SanitizeString(req.Description),
		Type:        model.RoomType(req.Type),
		Category:    req.Category,
		Icon:        req.Icon,
		Tags:        req.Tags,
		Settings: model.RoomSettings{
			IsPrivate:       req.IsPrivate,
			RequireApproval: req.RequireApproval,
			MaxParticipants: req.MaxParticipants,
			AllowInvites:    req.AllowInvites,
		},
		Creator: identity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, response.NewRoomDetailResponse(detail))
}

// List godoc
// @Summary List rooms
// @Description List rooms visible to the caller, annotated with membership
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name search"
// @Param category query string false "Category filter"
// @Param type query string false "Room type filter"
// @Param sort_by query string false "Sort column"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Response{data=response.PaginatedResponse}
// @Router /api/v1/rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	var query request.ListRoomsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	rooms, err := h.roomService.List(c.Request.Context(), &service.ListRoomsInput{
		Search:   query.Search,
		Category: query.Category,
		Type:     query.Type,
		SortBy:   query.SortBy,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := response.NewRoomListResponse(rooms)
	response.Success(c, response.NewPaginatedResponse(items, len(items), query.Limit, query.Offset))
}

// GetByID godoc
// @Summary Get room detail
// @Description Full room view with participants; admins also see the join request queue
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} response.Response{data=response.RoomDetailResponse}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id} [get]
func (h *RoomHandler) GetByID(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	detail, err := h.roomService.Get(c.Request.Context(), roomID, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewRoomDetailResponse(detail))
}

// Update godoc
// @Summary Update a room
// @Description Patch room fields (admin only); unknown fields are ignored
// @Tags Rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param request body request.UpdateRoomRequest true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	var req request.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	room, err := h.roomService.Update(c.Request.Context(), roomID, &service.UpdateRoomInput{
		Name:            req.Name,
		Description:     req.Description,
		Icon:            req.Icon,
		Type:            req.Type,
		Category:        req.Category,
		IsPrivate:       req.IsPrivate,
		RequireApproval: req.RequireApproval,
		MaxParticipants: req.MaxParticipants,
		AllowInvites:    req.AllowInvites,
	}, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, room)
}

// Delete godoc
// @Summary Deactivate a room
// @Description Soft-delete a room; its messages are kept
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 204
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	if err := h.roomService.SoftDelete(c.Request.Context(), roomID, identity); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Join godoc
// @Summary Join a room
// @Description Join directly, or queue a join request for approval-gated rooms. Idempotent.
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} response.Response{data=service.JoinResult}
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /api/v1/rooms/{id}/join [post]
func (h *RoomHandler) Join(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	result, err := h.roomService.Join(c.Request.Context(), roomID, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Leave godoc
// @Summary Leave a room
// @Description Remove the caller from the room
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 204
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id}/leave [post]
func (h *RoomHandler) Leave(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	if err := h.roomService.Leave(c.Request.Context(), roomID, identity); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListParticipants godoc
// @Summary List room participants
// @Description List participants with live presence flags
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} response.Response{data=[]response.ParticipantResponse}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/rooms/{id}/participants [get]
func (h *RoomHandler) ListParticipants(c *gin.Context) {
	roomID := c.Param("id")
	if !utils.ValidateUUID(roomID) {
		response.BadRequest(c, "invalid room ID")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	participants, err := h.roomService.ListParticipants(c.Request.Context(), roomID, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewParticipantListResponse(participants))
}

// RespondJoinRequest godoc
// @Summary Respond to a join request
// @Description Approve or deny a pending join request (admin only)
// @Tags Rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Param request_id path string true "Join request ID"
// @Param request body request.RespondJoinRequest true "Verdict"
// @Success 200 {object} response.Response{data=response.JoinRequestResponse}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/rooms/{id}/join-requests/{request_id} [post]
func (h *RoomHandler) RespondJoinRequest(c *gin.Context) {
	roomID := c.Param("id")
	requestID := c.Param("request_id")
	if !utils.ValidateUUID(roomID) || !utils.ValidateUUID(requestID) {
		response.BadRequest(c, "invalid identifier")
		return
	}

	var req request.RespondJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Approve == nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	identity, _ := middleware.CurrentIdentity(c)

	result, err := h.roomService.RespondJoinRequest(c.Request.Context(), roomID, requestID, *req.Approve, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, response.NewJoinRequestResponse(result))
}
