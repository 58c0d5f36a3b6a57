package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skillswap-service/internal/models"
	"skillswap-service/internal/repositories/postgres"
	"skillswap-service/pkg/response"
)

type SkillHandler struct {
	skills *postgres.SkillRepository
}

func NewSkillHandler(skills *postgres.SkillRepository) *SkillHandler {
	return &SkillHandler{skills: skills}
}

func (h *SkillHandler) Create(c *gin.Context) {
	var req models.CreateSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	skill := &models.Skill{
		ID:          uuid.New().String(),
		UserID:      c.GetString("user_id"),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Level:       req.Level,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.skills.Create(c.Request.Context(), skill); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to create skill")
		return
	}

	response.Success(c, http.StatusCreated, skill)
}

func (h *SkillHandler) ListMine(c *gin.Context) {
	skills, err := h.skills.FindByUserID(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load skills")
		return
	}
	response.Success(c, http.StatusOK, skills)
}

func (h *SkillHandler) Browse(c *gin.Context) {
	skills, err := h.skills.Browse(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load skills")
		return
	}
	response.Success(c, http.StatusOK, skills)
}

func (h *SkillHandler) Delete(c *gin.Context) {
	if err := h.skills.Delete(c.Request.Context(), c.Param("id"), c.GetString("user_id")); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to delete skill")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
