package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует маршруты API.
// Пути и имена JSON-полей - поверхность совместимости для существующих
// клиентов дашборда, поэтому версионный префикс не добавляется.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	incidents := api.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.DELETE("/:id", h.deleteIncident)
	}

	// Realtime-канал дашборда
	api.GET("/ws", h.serveWS)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
