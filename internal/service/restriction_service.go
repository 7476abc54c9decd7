package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

var ErrInvalidRule = errors.New("la regla de pico y placa no es válida")

// RestrictionService evalúa el pico y placa: decide si una placa tiene
// restringido el ingreso en un instante dado. No tiene efectos secundarios;
// las reglas se administran aparte y son de solo lectura en el chequeo.
type RestrictionService struct {
	ruleRepo repository.RestrictionRepository
	location *time.Location
	logger   *zap.Logger
}

func NewRestrictionService(ruleRepo repository.RestrictionRepository, location *time.Location, logger *zap.Logger) *RestrictionService {
	return &RestrictionService{ruleRepo: ruleRepo, location: location, logger: logger}
}

// IsRestricted deriva el día de la semana (en hora local de la sede) y el
// último dígito de la placa, y busca una regla que aplique. Un error del
// almacén se propaga tal cual: el llamador debe cerrar el ingreso, nunca
// admitir sin verificar.
func (s *RestrictionService) IsRestricted(ctx context.Context, plate string, vehicleType string, at time.Time) (bool, error) {
	local := at.In(s.location)
	day := domain.SpanishWeekdays[local.Weekday()]

	digit, ok := lastPlateDigit(plate)
	if !ok {
		// Placa sin dígitos: ninguna regla por dígito puede aplicar.
		s.logger.Debug("placa sin dígito para pico y placa", zap.String("placa", plate))
		return false, nil
	}

	rules, err := s.ruleRepo.FindForDay(ctx, vehicleType, day)
	if err != nil {
		return false, fmt.Errorf("consultando reglas de pico y placa: %w", err)
	}

	minutes := local.Hour()*60 + local.Minute()
	for _, rule := range rules {
		if rule.PlateDigit != digit {
			continue
		}
		if !rule.StartTime.Valid || !rule.EndTime.Valid {
			// Sin franja horaria la regla aplica todo el día.
			return true, nil
		}
		start, errStart := parseClock(rule.StartTime.String)
		end, errEnd := parseClock(rule.EndTime.String)
		if errStart != nil || errEnd != nil {
			s.logger.Warn("regla de pico y placa con franja malformada, se aplica todo el día",
				zap.Int("regla_id", rule.ID),
				zap.String("hora_inicio", rule.StartTime.String),
				zap.String("hora_fin", rule.EndTime.String))
			return true, nil
		}
		if inWindow(minutes, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *RestrictionService) CreateRule(ctx context.Context, dto domain.RestrictionRuleDTO) (*domain.RestrictionRule, error) {
	if !domain.ValidVehicleType(dto.VehicleType) {
		return nil, fmt.Errorf("%w: tipo de vehículo '%s' desconocido", ErrInvalidRule, dto.VehicleType)
	}
	if !domain.ValidWeekday(dto.Day) {
		return nil, fmt.Errorf("%w: día '%s' desconocido", ErrInvalidRule, dto.Day)
	}
	if len(dto.PlateDigit) != 1 || dto.PlateDigit[0] < '0' || dto.PlateDigit[0] > '9' {
		return nil, fmt.Errorf("%w: el dígito debe ser un carácter entre 0 y 9", ErrInvalidRule)
	}
	// La franja es opcional pero va completa o no va.
	if (dto.StartTime == "") != (dto.EndTime == "") {
		return nil, fmt.Errorf("%w: la franja horaria requiere hora de inicio y de fin", ErrInvalidRule)
	}

	rule := &domain.RestrictionRule{
		VehicleType: dto.VehicleType,
		PlateDigit:  dto.PlateDigit,
		Day:         dto.Day,
	}
	if dto.StartTime != "" {
		if _, err := parseClock(dto.StartTime); err != nil {
			return nil, fmt.Errorf("%w: hora de inicio '%s' no válida", ErrInvalidRule, dto.StartTime)
		}
		if _, err := parseClock(dto.EndTime); err != nil {
			return nil, fmt.Errorf("%w: hora de fin '%s' no válida", ErrInvalidRule, dto.EndTime)
		}
		rule.StartTime = null.StringFrom(dto.StartTime)
		rule.EndTime = null.StringFrom(dto.EndTime)
	}
	return s.ruleRepo.Create(ctx, rule)
}

func (s *RestrictionService) ListRules(ctx context.Context) ([]domain.RestrictionRule, error) {
	return s.ruleRepo.FindAll(ctx)
}

func (s *RestrictionService) DeleteRule(ctx context.Context, id int) error {
	return s.ruleRepo.Delete(ctx, id)
}

// lastPlateDigit recorre la placa desde el final y devuelve el primer
// dígito que encuentre. Las placas de moto terminan en letra, por eso no
// basta con mirar el último carácter.
func lastPlateDigit(plate string) (string, bool) {
	for i := len(plate) - 1; i >= 0; i-- {
		if plate[i] >= '0' && plate[i] <= '9' {
			return string(plate[i]), true
		}
	}
	return "", false
}

// parseClock convierte "HH:MM" a minutos del día.
func parseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("hora '%s' no tiene formato HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hora '%s' fuera de rango", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minutos '%s' fuera de rango", value)
	}
	return hour*60 + minute, nil
}

// inWindow acepta franjas que cruzan la medianoche (inicio > fin).
// El inicio es inclusivo y el fin exclusivo.
func inWindow(minutes, start, end int) bool {
	if start <= end {
		return minutes >= start && minutes < end
	}
	return minutes >= start || minutes < end
}
