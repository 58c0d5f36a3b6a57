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
	"skillswap-service/internal/services"
	"skillswap-service/pkg/response"
)

type ChatHandler struct {
	rooms    *postgres.RoomRepository
	messages *postgres.MessageRepository
	storage  *services.StorageService
	video    *services.VideoService
	presence *services.PresenceService
}

func NewChatHandler(
	rooms *postgres.RoomRepository,
	messages *postgres.MessageRepository,
	storage *services.StorageService,
	video *services.VideoService,
	presence *services.PresenceService,
) *ChatHandler {
	return &ChatHandler{
		rooms:    rooms,
		messages: messages,
		storage:  storage,
		video:    video,
		presence: presence,
	}
}

// roomForParticipant loads the room and verifies the caller belongs to it.
func (h *ChatHandler) roomForParticipant(c *gin.Context) (*models.ChatRoom, bool) {
	userID := c.GetString("user_id")
	room, err := h.rooms.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, "chat not found")
		} else {
			response.Error(c, http.StatusInternalServerError, "failed to load chat")
		}
		return nil, false
	}
	if !room.HasParticipant(userID) {
		response.Error(c, http.StatusForbidden, "not a participant of this chat")
		return nil, false
	}
	return room, true
}

// GetRoom returns the room and its message history.
func (h *ChatHandler) GetRoom(c *gin.Context) {
	room, ok := h.roomForParticipant(c)
	if !ok {
		return
	}

	messages, err := h.messages.FindByRoomID(c.Request.Context(), room.ID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load messages")
		return
	}

	response.Success(c, http.StatusOK, &models.ChatRoomResponse{Room: room, Messages: messages})
}

// ListRooms returns all chat rooms the caller participates in.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.FindByUserID(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load chats")
		return
	}
	response.Success(c, http.StatusOK, rooms)
}

// MarkRead flags the partner's messages as read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	room, ok := h.roomForParticipant(c)
	if !ok {
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), room.ID, c.GetString("user_id")); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to mark messages read")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"read": true})
}

// UploadFile stores an attachment in the blob store and persists the file
// message. The client announces it to the room over the socket afterwards;
// by then both blob and message row are durable.
func (h *ChatHandler) UploadFile(c *gin.Context) {
	room, ok := h.roomForParticipant(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "file is required")
		return
	}

	url, err := h.storage.UploadChatFile(c.Request.Context(), room.ID, file)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "upload failed")
		return
	}

	msg := &models.ChatMessage{
		ID:         uuid.New().String(),
		RoomID:     room.ID,
		SenderID:   c.GetString("user_id"),
		SenderName: c.GetString("user_name"),
		Kind:       models.MessageKindFile,
		Filename:   file.Filename,
		Filesize:   services.HumanFileSize(file.Size),
		FileURL:    url,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.messages.SaveMessage(c.Request.Context(), msg); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to persist file message")
		return
	}

	response.Success(c, http.StatusCreated, &models.UploadResponse{
		MessageID: msg.ID,
		Filename:  msg.Filename,
		Filesize:  msg.Filesize,
		FileURL:   msg.FileURL,
	})
}

// VideoToken mints a meeting credential for the caller's own UI, the REST
// counterpart of the invite the receiver gets over the socket.
func (h *ChatHandler) VideoToken(c *gin.Context) {
	if _, ok := h.roomForParticipant(c); !ok {
		return
	}

	meetingID := c.Query("meetingId")
	if meetingID == "" {
		response.Error(c, http.StatusBadRequest, "meetingId is required")
		return
	}

	token, err := h.video.IssueToken(c.Request.Context(), meetingID)
	if err != nil {
		response.Error(c, http.StatusBadGateway, "video provider unavailable")
		return
	}

	response.Success(c, http.StatusOK, &models.VideoTokenResponse{
		MeetingID: meetingID,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

// PartnerStatus reports the mirrored liveness of the other room member.
func (h *ChatHandler) PartnerStatus(c *gin.Context) {
	room, ok := h.roomForParticipant(c)
	if !ok {
		return
	}

	partnerID := room.FromUserID
	if partnerID == c.GetString("user_id") {
		partnerID = room.ToUserID
	}

	online, err := h.presence.IsUserOnline(c.Request.Context(), partnerID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to check presence")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"userId": partnerID, "online": online})
}
