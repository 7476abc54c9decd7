package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
	"parqueadero/internal/state"
)

// Errores de negocio. Los handlers los traducen a códigos HTTP; los fallos
// de infraestructura se envuelven en ErrPersistenceUnavailable para no
// filtrar detalles del almacén al cliente.
var (
	ErrRestrictedPlate        = errors.New("el vehículo tiene pico y placa en este momento y no puede ingresar")
	ErrNoFreeCell             = errors.New("no hay celdas disponibles para ese tipo de vehículo")
	ErrDuplicateOpenSession   = errors.New("el vehículo ya tiene una entrada abierta")
	ErrNoOpenSession          = errors.New("no hay una entrada abierta para ese vehículo")
	ErrInvalidTimeOrdering    = errors.New("la fecha de salida es anterior a la fecha de ingreso")
	ErrInvalidVehicleType     = errors.New("el tipo de vehículo debe ser 'Carro' o 'Moto'")
	ErrInvalidPlate           = errors.New("la placa no puede ser vacía")
	ErrInvalidTimestamp       = errors.New("la marca de tiempo debe tener formato RFC3339")
	ErrMissingExitReference   = errors.New("se requiere la placa o el id de la entrada para registrar la salida")
	ErrPersistenceUnavailable = errors.New("el registro no está disponible en este momento, intente de nuevo")
)

// CellNotifier publica cambios de estado de celdas hacia los tableros
// conectados. La implementación real es el hub de websockets.
type CellNotifier interface {
	NotifyCellUpdate(cell domain.Cell)
}

// ParkingService orquesta el ciclo de vida de las entradas: asigna celda al
// ingreso, valida el pico y placa y libera la celda a la salida. Las
// operaciones compuestas del repositorio garantizan que celda y entrada
// cambien juntas o no cambien.
type ParkingService struct {
	cellRepo     repository.CellRepository
	vehicleRepo  repository.VehicleRepository
	sessionRepo  repository.SessionRepository
	restrictions *RestrictionService
	notifier     CellNotifier
	logger       *zap.Logger
	now          func() time.Time
}

func NewParkingService(
	cellRepo repository.CellRepository,
	vehicleRepo repository.VehicleRepository,
	sessionRepo repository.SessionRepository,
	restrictions *RestrictionService,
	notifier CellNotifier,
	logger *zap.Logger,
) *ParkingService {
	return &ParkingService{
		cellRepo:     cellRepo,
		vehicleRepo:  vehicleRepo,
		sessionRepo:  sessionRepo,
		restrictions: restrictions,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// RegisterEntry registra el ingreso de un vehículo: verifica el pico y
// placa, resuelve (o crea) el vehículo por placa y reclama la celda libre
// de menor id para su tipo. Si cualquier paso falla no queda ninguna celda
// ocupada a medias.
func (s *ParkingService) RegisterEntry(ctx context.Context, req domain.EntryRequestDTO, operatorID null.Int) (*domain.EntryResponseDTO, error) {
	plate := domain.NormalizePlate(req.Plate)
	if plate == "" {
		return nil, ErrInvalidPlate
	}
	if !domain.ValidVehicleType(req.VehicleType) {
		return nil, ErrInvalidVehicleType
	}

	entryTime, err := parseTimestamp(req.EntryTime, s.now)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleRepo.FindByPlate(ctx, plate)
	switch {
	case err == nil:
		if vehicle.VehicleType != req.VehicleType {
			// El tipo registrado manda; la solicitud pudo venir de un
			// operador que se equivocó de botón.
			s.logger.Warn("tipo de vehículo de la solicitud no coincide con el registrado",
				zap.String("placa", plate),
				zap.String("solicitado", req.VehicleType),
				zap.String("registrado", vehicle.VehicleType))
		}
	case errors.Is(err, repository.ErrNotFound):
		vehicle, err = s.vehicleRepo.Create(ctx, &domain.Vehicle{Plate: plate, VehicleType: req.VehicleType})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				// Otro operador registró la misma placa entre el Find y el
				// Create; el vehículo existe, seguimos con él.
				vehicle, err = s.vehicleRepo.FindByPlate(ctx, plate)
			}
			if err != nil {
				s.logger.Error("registrando vehículo al ingreso", zap.String("placa", plate), zap.Error(err))
				return nil, ErrPersistenceUnavailable
			}
		}
	default:
		s.logger.Error("buscando vehículo por placa", zap.String("placa", plate), zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}

	restricted, err := s.restrictions.IsRestricted(ctx, plate, vehicle.VehicleType, entryTime)
	if err != nil {
		// Si no se puede verificar la restricción se niega el ingreso; nunca
		// se admite un vehículo sin chequear el pico y placa.
		s.logger.Error("verificando pico y placa", zap.String("placa", plate), zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}
	if restricted {
		return nil, fmt.Errorf("%w: placa %s", ErrRestrictedPlate, plate)
	}

	if _, err := s.sessionRepo.FindOpenByVehicleID(ctx, vehicle.ID); err == nil {
		return nil, fmt.Errorf("%w: placa %s", ErrDuplicateOpenSession, plate)
	} else if !errors.Is(err, repository.ErrNoOpenSession) {
		s.logger.Error("buscando entrada abierta", zap.String("placa", plate), zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}

	session, cell, err := s.sessionRepo.OpenWithCell(ctx, vehicle.ID, vehicle.VehicleType, entryTime, operatorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoFreeCell):
			return nil, fmt.Errorf("%w: tipo %s", ErrNoFreeCell, vehicle.VehicleType)
		case errors.Is(err, repository.ErrDuplicateEntry):
			return nil, fmt.Errorf("%w: placa %s", ErrDuplicateOpenSession, plate)
		default:
			s.logger.Error("abriendo entrada", zap.String("placa", plate), zap.Error(err))
			return nil, ErrPersistenceUnavailable
		}
	}

	s.logger.Info("ingreso registrado",
		zap.Int("entrada_id", session.ID),
		zap.String("placa", plate),
		zap.String("celda", cell.Name))
	s.notifyCell(*cell)

	return &domain.EntryResponseDTO{
		SessionID: session.ID,
		Plate:     plate,
		CellName:  cell.Name,
		EntryTime: session.EntryTime,
	}, nil
}

// RegisterExit cierra la entrada abierta localizada por placa o por id,
// calcula el tiempo de estadía y libera la celda. Una salida anterior al
// ingreso se rechaza sin tocar nada.
func (s *ParkingService) RegisterExit(ctx context.Context, req domain.ExitRequestDTO) (*domain.ExitResponseDTO, error) {
	exitTime, err := parseTimestamp(req.ExitTime, s.now)
	if err != nil {
		return nil, err
	}

	session, plate, err := s.locateOpenSession(ctx, req)
	if err != nil {
		return nil, err
	}

	machine := state.NewSessionMachine(session.Status)
	if !machine.CanClose() {
		return nil, fmt.Errorf("%w: la entrada %d ya está cerrada", ErrNoOpenSession, session.ID)
	}

	duration := exitTime.Sub(session.EntryTime)
	if duration < 0 {
		return nil, fmt.Errorf("%w: ingreso %s, salida %s", ErrInvalidTimeOrdering,
			session.EntryTime.Format(time.RFC3339), exitTime.Format(time.RFC3339))
	}
	if err := machine.Close(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoOpenSession, err)
	}

	closed, err := s.sessionRepo.CloseAndFreeCell(ctx, session.ID, exitTime, int64(duration.Seconds()))
	if err != nil {
		if errors.Is(err, repository.ErrNoOpenSession) {
			return nil, fmt.Errorf("%w: la entrada %d ya está cerrada", ErrNoOpenSession, session.ID)
		}
		s.logger.Error("cerrando entrada", zap.Int("entrada_id", session.ID), zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}

	cellName := domain.UnknownMarker
	if cell, err := s.cellRepo.FindByID(ctx, closed.CellID); err == nil {
		cellName = cell.Name
		s.notifyCell(*cell)
	} else {
		s.logger.Warn("resolviendo celda de la entrada cerrada", zap.Int("celda_id", closed.CellID), zap.Error(err))
	}

	s.logger.Info("salida registrada",
		zap.Int("entrada_id", closed.ID),
		zap.String("placa", plate),
		zap.Int64("tiempo_estadia", closed.DurationSeconds.Int64))

	return &domain.ExitResponseDTO{
		SessionID:       closed.ID,
		Plate:           plate,
		CellName:        cellName,
		ExitTime:        closed.ExitTime.Time,
		DurationSeconds: closed.DurationSeconds.Int64,
	}, nil
}

// locateOpenSession resuelve la entrada abierta referida por la solicitud
// de salida y la placa asociada, para la respuesta.
func (s *ParkingService) locateOpenSession(ctx context.Context, req domain.ExitRequestDTO) (*domain.Session, string, error) {
	if req.SessionID != nil {
		session, err := s.sessionRepo.FindByID(ctx, *req.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, "", fmt.Errorf("%w: entrada %d", ErrNoOpenSession, *req.SessionID)
			}
			s.logger.Error("buscando entrada por id", zap.Int("entrada_id", *req.SessionID), zap.Error(err))
			return nil, "", ErrPersistenceUnavailable
		}
		plate := domain.UnknownMarker
		if vehicle, err := s.vehicleRepo.FindByID(ctx, session.VehicleID); err == nil {
			plate = vehicle.Plate
		}
		return session, plate, nil
	}

	plate := domain.NormalizePlate(req.Plate)
	if plate == "" {
		return nil, "", ErrMissingExitReference
	}
	vehicle, err := s.vehicleRepo.FindByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: placa %s", ErrNoOpenSession, plate)
		}
		s.logger.Error("buscando vehículo por placa", zap.String("placa", plate), zap.Error(err))
		return nil, "", ErrPersistenceUnavailable
	}
	session, err := s.sessionRepo.FindOpenByVehicleID(ctx, vehicle.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNoOpenSession) {
			return nil, "", fmt.Errorf("%w: placa %s", ErrNoOpenSession, plate)
		}
		s.logger.Error("buscando entrada abierta", zap.String("placa", plate), zap.Error(err))
		return nil, "", ErrPersistenceUnavailable
	}
	return session, plate, nil
}

// CellInventory arma el resumen de ocupación que consumen los tableros.
func (s *ParkingService) CellInventory(ctx context.Context) (*domain.CellInventoryDTO, error) {
	cells, err := s.cellRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("listando celdas", zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}
	inventory := &domain.CellInventoryDTO{Details: make([]domain.CellDetailItem, 0, len(cells))}
	for _, cell := range cells {
		inventory.Total++
		if cell.Status == domain.CellOccupied {
			inventory.Occupied++
		} else {
			inventory.Free++
		}
		inventory.Details = append(inventory.Details, domain.CellDetailItem{
			ID:     cell.ID,
			Name:   cell.Name,
			Type:   cell.VehicleType,
			Status: cell.Status,
		})
	}
	return inventory, nil
}

func (s *ParkingService) Parked(ctx context.Context) ([]domain.ParkedVehicleDTO, error) {
	parked, err := s.sessionRepo.FindParked(ctx)
	if err != nil {
		s.logger.Error("listando vehículos estacionados", zap.Error(err))
		return nil, ErrPersistenceUnavailable
	}
	if parked == nil {
		parked = []domain.ParkedVehicleDTO{}
	}
	return parked, nil
}

func (s *ParkingService) ProvisionCell(ctx context.Context, dto domain.CellDTO) (*domain.Cell, error) {
	if !domain.ValidVehicleType(dto.VehicleType) {
		return nil, ErrInvalidVehicleType
	}
	cell := &domain.Cell{Name: dto.Name, VehicleType: dto.VehicleType}
	created, err := s.cellRepo.Create(ctx, cell)
	if err != nil {
		return nil, err
	}
	s.notifyCell(*created)
	return created, nil
}

// RetireCell saca una celda del inventario asignable. Solo se retiran
// celdas libres; las entradas históricas que la referencian se conservan.
func (s *ParkingService) RetireCell(ctx context.Context, id int) error {
	if err := s.cellRepo.Retire(ctx, id); err != nil {
		return err
	}
	if cell, err := s.cellRepo.FindByID(ctx, id); err == nil {
		s.notifyCell(*cell)
	}
	return nil
}

func (s *ParkingService) RegisterVehicle(ctx context.Context, dto domain.VehicleDTO) (*domain.Vehicle, error) {
	plate := domain.NormalizePlate(dto.Plate)
	if plate == "" {
		return nil, ErrInvalidPlate
	}
	if !domain.ValidVehicleType(dto.VehicleType) {
		return nil, ErrInvalidVehicleType
	}
	vehicle := &domain.Vehicle{Plate: plate, VehicleType: dto.VehicleType}
	if dto.UserID != nil {
		vehicle.UserID = null.IntFrom(int64(*dto.UserID))
	}
	return s.vehicleRepo.Create(ctx, vehicle)
}

func (s *ParkingService) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return s.vehicleRepo.FindAll(ctx)
}

func (s *ParkingService) notifyCell(cell domain.Cell) {
	if s.notifier != nil {
		s.notifier.NotifyCellUpdate(cell)
	}
}

// parseTimestamp interpreta una marca RFC3339 opcional; vacío es "ahora".
func parseTimestamp(value string, now func() time.Time) (time.Time, error) {
	if value == "" {
		return now().UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: '%s'", ErrInvalidTimestamp, value)
	}
	return ts.UTC(), nil
}
