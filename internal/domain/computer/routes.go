package computer

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.GET("/computers", h.List)
	admin.PATCH("/computers/:id", h.SetActive)
}
