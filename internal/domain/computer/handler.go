package computer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esports-scheduler/internal/pkg/response"
)

type Handler struct {
	repo Repository
	log  *zap.Logger
}

func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, log: logger}
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

// List returns every computer, active or not, ordered by id.
func (h *Handler) List(c *gin.Context) {
	computers, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		h.log.Error("list computers", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, gin.H{"computers": computers})
}

func (h *Handler) SetActive(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid computer id")
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "isActive is required")
		return
	}

	updated, err := h.repo.SetActive(c.Request.Context(), id, *req.IsActive)
	if errors.Is(err, ErrNotFound) {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Computer not found")
		return
	}
	if err != nil {
		h.log.Error("set computer active", zap.Int64("computer_id", id), zap.Error(err))
		response.Internal(c)
		return
	}

	h.log.Info("computer availability changed",
		zap.Int64("computer_id", id),
		zap.Bool("is_active", updated.IsActive),
		zap.String("by", c.GetString("user_id")),
	)
	response.OK(c, gin.H{"computer": updated})
}
