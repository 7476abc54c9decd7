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

type RestrictionHandler struct {
	restrictionService *service.RestrictionService
}

func NewRestrictionHandler(rs *service.RestrictionService) *RestrictionHandler {
	return &RestrictionHandler{restrictionService: rs}
}

// POST /api/pico-placa
func (h *RestrictionHandler) CreateRule(c *gin.Context) {
	var dto domain.RestrictionRuleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos no válidos: " + err.Error()})
		return
	}

	rule, err := h.restrictionService.CreateRule(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRule) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo crear la regla", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GET /api/pico-placa
func (h *RestrictionHandler) GetAllRules(c *gin.Context) {
	rules, err := h.restrictionService.ListRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron listar las reglas", "details": err.Error()})
		return
	}
	if rules == nil {
		rules = []domain.RestrictionRule{}
	}
	c.JSON(http.StatusOK, rules)
}

// DELETE /api/pico-placa/:id
func (h *RestrictionHandler) DeleteRule(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El id de la regla no es válido"})
		return
	}

	if err := h.restrictionService.DeleteRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No se encontró la regla"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo eliminar la regla", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Regla eliminada"})
}
