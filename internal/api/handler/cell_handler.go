package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
	"parqueadero/internal/service"
)

type CellHandler struct {
	parkingService *service.ParkingService
}

func NewCellHandler(ps *service.ParkingService) *CellHandler {
	return &CellHandler{parkingService: ps}
}

// POST /api/celdas
func (h *CellHandler) CreateCell(c *gin.Context) {
	var dto domain.CellDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos no válidos: " + err.Error()})
		return
	}

	cell, err := h.parkingService.ProvisionCell(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVehicleType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrDuplicateEntry):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear la celda", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, cell)
}

// GET /api/celdas/estado
func (h *CellHandler) GetInventory(c *gin.Context) {
	inventory, err := h.parkingService.CellInventory(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, inventory)
}

// PUT /api/celdas/:id/retirar
func (h *CellHandler) RetireCell(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El id de la celda no es válido"})
		return
	}

	if err := h.parkingService.RetireCell(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "No se encontró la celda"})
		case errors.Is(err, repository.ErrCellOccupied):
			c.JSON(http.StatusConflict, gin.H{"error": "La celda está ocupada y no se puede retirar"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo retirar la celda", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Celda retirada del inventario"})
}
