package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"parqueadero/internal/api/middleware"
	"parqueadero/internal/domain"
	"parqueadero/internal/service"
)

type ParkingHandler struct {
	parkingService *service.ParkingService
}

func NewParkingHandler(ps *service.ParkingService) *ParkingHandler {
	return &ParkingHandler{parkingService: ps}
}

// POST /api/parqueo/entrada
func (h *ParkingHandler) RegisterEntry(c *gin.Context) {
	var dto domain.EntryRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos no válidos: " + err.Error()})
		return
	}

	entry, err := h.parkingService.RegisterEntry(c.Request.Context(), dto, operatorID(c))
	if err != nil {
		status := entryErrorStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// POST /api/parqueo/salida
func (h *ParkingHandler) RegisterExit(c *gin.Context) {
	var dto domain.ExitRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos no válidos: " + err.Error()})
		return
	}

	exit, err := h.parkingService.RegisterExit(c.Request.Context(), dto)
	if err != nil {
		status := exitErrorStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, exit)
}

// GET /api/parqueo/estacionados
func (h *ParkingHandler) GetParked(c *gin.Context) {
	parked, err := h.parkingService.Parked(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, parked)
}

func entryErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrRestrictedPlate):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNoFreeCell), errors.Is(err, service.ErrDuplicateOpenSession):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidVehicleType), errors.Is(err, service.ErrInvalidPlate),
		errors.Is(err, service.ErrInvalidTimestamp):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func exitErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNoOpenSession):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTimeOrdering):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrMissingExitReference), errors.Is(err, service.ErrInvalidTimestamp):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// operatorID saca el id del operador autenticado para atribuir el ingreso.
// Si la ruta se montó sin autenticación la entrada queda sin operador.
func operatorID(c *gin.Context) null.Int {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return null.Int{}
	}
	id, ok := value.(int)
	if !ok {
		return null.Int{}
	}
	return null.IntFrom(int64(id))
}
