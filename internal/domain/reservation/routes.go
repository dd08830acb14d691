package reservation

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.GET("/reservations", h.List)
	public.GET("/reservations/stream", h.Stream)
	public.GET("/reservations/ws", h.WebSocket)

	admin.POST("/reservations", h.Create)
	admin.PUT("/reservations", h.Update)
	admin.DELETE("/reservations", h.Delete)
	admin.DELETE("/reservations/:id", h.DeleteOne)
}

// RegisterCronRoutes mounts the purge endpoint; rg must carry the cron secret check.
func (h *Handler) RegisterCronRoutes(rg *gin.RouterGroup) {
	rg.GET("/purge-reservations", h.Purge)
	rg.POST("/purge-reservations", h.Purge)
}
