package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
	"parqueadero/internal/service"
)

type VehicleHandler struct {
	parkingService *service.ParkingService
}

func NewVehicleHandler(ps *service.ParkingService) *VehicleHandler {
	return &VehicleHandler{parkingService: ps}
}

// POST /api/vehiculos
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	var dto domain.VehicleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos no válidos: " + err.Error()})
		return
	}

	vehicle, err := h.parkingService.RegisterVehicle(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidVehicleType), errors.Is(err, service.ErrInvalidPlate):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrDuplicateEntry):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo registrar el vehículo", "details": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

// GET /api/vehiculos
func (h *VehicleHandler) GetAllVehicles(c *gin.Context) {
	vehicles, err := h.parkingService.ListVehicles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron listar los vehículos", "details": err.Error()})
		return
	}
	if vehicles == nil {
		vehicles = []domain.Vehicle{}
	}
	c.JSON(http.StatusOK, vehicles)
}
