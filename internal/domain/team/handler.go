package team

import (
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

func (h *Handler) List(c *gin.Context) {
	teams, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.log.Error("list teams", zap.Error(err))
		response.Internal(c)
		return
	}
	response.OK(c, gin.H{"teams": teams})
}

func (h *Handler) RegisterRoutes(public *gin.RouterGroup) {
	public.GET("/teams", h.List)
}
