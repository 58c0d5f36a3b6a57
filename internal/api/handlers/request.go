package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories/postgres"
	"skillswap-service/pkg/response"
)

type RequestHandler struct {
	requests *postgres.RequestRepository
	skills   *postgres.SkillRepository
	rooms    *postgres.RoomRepository
}

func NewRequestHandler(
	requests *postgres.RequestRepository,
	skills *postgres.SkillRepository,
	rooms *postgres.RoomRepository,
) *RequestHandler {
	return &RequestHandler{requests: requests, skills: skills, rooms: rooms}
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req models.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	skill, err := h.skills.FindByID(c.Request.Context(), req.SkillID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "skill not found")
		return
	}

	fromUserID := c.GetString("user_id")
	if skill.UserID == fromUserID {
		response.Error(c, http.StatusBadRequest, "cannot request your own skill")
		return
	}

	swap := &models.SwapRequest{
		ID:         uuid.New().String(),
		SkillID:    skill.ID,
		FromUserID: fromUserID,
		ToUserID:   skill.UserID,
		Message:    req.Message,
		Status:     models.RequestStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.requests.Create(c.Request.Context(), swap); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to create request")
		return
	}

	response.Success(c, http.StatusCreated, swap)
}

func (h *RequestHandler) ListIncoming(c *gin.Context) {
	reqs, err := h.requests.FindIncoming(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load requests")
		return
	}
	response.Success(c, http.StatusOK, reqs)
}

func (h *RequestHandler) ListOutgoing(c *gin.Context) {
	reqs, err := h.requests.FindOutgoing(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load requests")
		return
	}
	response.Success(c, http.StatusOK, reqs)
}

// Respond accepts or declines a pending request. Accepting creates the
// chat room for the pair.
func (h *RequestHandler) Respond(c *gin.Context) {
	var req models.UpdateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	swap, err := h.requests.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, "request not found")
		} else {
			response.Error(c, http.StatusInternalServerError, "failed to load request")
		}
		return
	}
	if swap.ToUserID != c.GetString("user_id") {
		response.Error(c, http.StatusForbidden, "only the recipient can respond")
		return
	}
	if swap.Status != models.RequestStatusPending {
		response.Error(c, http.StatusConflict, "request already resolved")
		return
	}

	if err := h.requests.UpdateStatus(c.Request.Context(), swap.ID, req.Status); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to update request")
		return
	}

	if req.Status != models.RequestStatusAccepted {
		response.Success(c, http.StatusOK, gin.H{"status": req.Status})
		return
	}

	room := &models.ChatRoom{
		ID:         uuid.New().String(),
		RequestID:  swap.ID,
		FromUserID: swap.FromUserID,
		ToUserID:   swap.ToUserID,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.rooms.Create(c.Request.Context(), room); err != nil {
		response.Error(c, http.StatusInternalServerError, "request accepted but chat creation failed")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": req.Status, "chatRoomId": room.ID})
}
