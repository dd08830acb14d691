package blackout

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.GET("/blackouts", h.List)
	admin.POST("/blackouts", h.Create)
	admin.DELETE("/blackouts/:id", h.Delete)
}
