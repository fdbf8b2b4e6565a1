package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shenikar/incident_relay_system/internal/realtime"
	"github.com/shenikar/incident_relay_system/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	hub             *realtime.Hub
	logger          *logrus.Logger
	upgrader        websocket.Upgrader
}

func NewHandler(incidentService service.IncidentService, hub *realtime.Hub, logger *logrus.Logger) *Handler {
	return &Handler{
		incidentService: incidentService,
		hub:             hub,
		logger:          logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// дашборд раздается с другого origin
				return true
			},
		},
	}
}

// @Summary List all incidents
// @Description Get the full snapshot of tracked incidents.
// @Tags Incidents
// @Produce json
// @Success 200 {array} IncidentResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	incidents, err := h.incidentService.ListIncidents(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Delete an incident
// @Description Hard-remove an incident by its ID and broadcast a deletion event.
// @Tags Incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} map[string]string "Incident deleted"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [delete]
func (h *Handler) deleteIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		// id - непрозрачный ключ; неразборчивый id эквивалентен отсутствующему
		c.JSON(http.StatusNotFound, gin.H{"message": "incident not found"})
		return
	}
	log := h.logger.WithField("method", "deleteIncident").WithField("id", id)

	if err := h.incidentService.DeleteIncident(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrIncidentNotFound) {
			log.Warn("Incident not found for deletion")
			c.JSON(http.StatusNotFound, gin.H{"message": "incident not found"})
			return
		}
		log.WithError(err).Error("Failed to delete incident in service")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "incident deleted"})
}

// @Summary Subscribe to incident lifecycle events
// @Description Upgrade to a websocket; the server first sends initial_incidents, then pushes lifecycle events.
// @Tags Realtime
// @Success 101 "Switching Protocols"
// @Router /ws [get]
func (h *Handler) serveWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade dashboard connection")
		return
	}
	h.hub.RegisterClient(c.Request.Context(), conn)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
