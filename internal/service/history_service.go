package service

import (
	"context"

	"go.uber.org/zap"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

// HistoryService expone el historial de entradas como lo consume el
// reporte del frontend: más recientes primero, con placa, celda y operador
// resueltos ("N/A" cuando la referencia ya no se puede resolver).
type HistoryService struct {
	historyRepo repository.HistoryRepository
	logger      *zap.Logger
}

func NewHistoryService(historyRepo repository.HistoryRepository, logger *zap.Logger) *HistoryService {
	return &HistoryService{historyRepo: historyRepo, logger: logger}
}

func (s *HistoryService) Report(ctx context.Context) ([]domain.HistoryRecord, error) {
	records, err := s.historyRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("consultando el historial", zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	return records, nil
}
