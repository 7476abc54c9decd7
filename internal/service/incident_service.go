package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

var ErrEmptyDescription = errors.New("la descripción de la incidencia no puede ser vacía")

// IncidentService lleva la bitácora de incidencias. Es de solo-anexar:
// las incidencias no se editan ni se borran.
type IncidentService struct {
	incidentRepo repository.IncidentRepository
	sessionRepo  repository.SessionRepository
	logger       *zap.Logger
	now          func() time.Time
}

func NewIncidentService(incidentRepo repository.IncidentRepository, sessionRepo repository.SessionRepository, logger *zap.Logger) *IncidentService {
	return &IncidentService{
		incidentRepo: incidentRepo,
		sessionRepo:  sessionRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Record registra una incidencia y le asigna un folio único. La referencia
// a una entrada es opcional pero, si viene, debe existir.
func (s *IncidentService) Record(ctx context.Context, dto domain.IncidentDTO) (*domain.Incident, error) {
	description := strings.TrimSpace(dto.Description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	reportedAt, err := parseTimestamp(dto.ReportedAt, s.now)
	if err != nil {
		return nil, err
	}

	incident := &domain.Incident{
		Folio:       uuid.New().String(),
		Description: description,
		ReportedAt:  reportedAt,
	}
	if dto.SessionID != nil {
		if _, err := s.sessionRepo.FindByID(ctx, *dto.SessionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: entrada %d", repository.ErrNotFound, *dto.SessionID)
			}
			s.logger.Error("verificando la entrada de la incidencia", zap.Int("entrada_id", *dto.SessionID), zap.Error(err))
			return nil, ErrPersistenceUnavailable
		}
		incident.SessionID = null.IntFrom(int64(*dto.SessionID))
	}
	if plate := domain.NormalizePlate(dto.Plate); plate != "" {
		incident.Plate = null.StringFrom(plate)
	}

	created, err := s.incidentRepo.Create(ctx, incident)
	if err != nil {
		s.logger.Error("registrando incidencia", zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}
	s.logger.Info("incidencia registrada", zap.String("folio", created.Folio))
	return created, nil
}

func (s *IncidentService) List(ctx context.Context) ([]domain.Incident, error) {
	incidents, err := s.incidentRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("listando incidencias", zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}
	if incidents == nil {
		incidents = []domain.Incident{}
	}
	return incidents, nil
}
