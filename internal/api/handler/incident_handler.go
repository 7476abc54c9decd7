package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
	"parqueadero/internal/service"
)

type IncidentHandler struct {
	incidentService *service.IncidentService
}

func NewIncidentHandler(is *service.IncidentService) *IncidentHandler {
	return &IncidentHandler{incidentService: is}
}

// POST /api/incidencias
func (h *IncidentHandler) RecordIncident(c *gin.Context) {
	var dto domain.IncidentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos no válidos: " + err.Error()})
		return
	}

	incident, err := h.incidentService.Record(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyDescription), errors.Is(err, service.ErrInvalidTimestamp):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrPersistenceUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo registrar la incidencia", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, incident)
}

// GET /api/incidencias
func (h *IncidentHandler) GetAllIncidents(c *gin.Context) {
	incidents, err := h.incidentService.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, incidents)
}
