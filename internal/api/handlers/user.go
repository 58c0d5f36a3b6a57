package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories/postgres"
	"skillswap-service/pkg/response"
)

type UserHandler struct {
	users *postgres.UserRepository
}

func NewUserHandler(users *postgres.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found")
		return
	}
	response.Success(c, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.FindByID(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found")
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if err := h.users.Update(c.Request.Context(), user); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	response.Success(c, http.StatusOK, user)
}
