package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parqueadero/internal/service"
)

type HistoryHandler struct {
	historyService *service.HistoryService
}

func NewHistoryHandler(hs *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: hs}
}

// GET /api/historial
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	records, err := h.historyService.Report(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}
