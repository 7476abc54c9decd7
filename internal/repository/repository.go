package repository

import (
	"context"
	"errors"
	"time"

	"gopkg.in/guregu/null.v4"

	"parqueadero/internal/domain"
)

var ErrNotFound = errors.New("no se encontró el registro")
var ErrDuplicateEntry = errors.New("el registro ya existe")
var ErrNoOpenSession = errors.New("no se encontró una entrada abierta para los datos suministrados")
var ErrNoFreeCell = errors.New("no hay celdas libres disponibles")
var ErrCellOccupied = errors.New("la celda está ocupada")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type CellRepository interface {
	Create(ctx context.Context, cell *domain.Cell) (*domain.Cell, error)
	FindByID(ctx context.Context, id int) (*domain.Cell, error)
	FindAll(ctx context.Context) ([]domain.Cell, error)
	// Retire saca la celda del inventario asignable. Falla con
	// ErrCellOccupied si la celda tiene una entrada abierta.
	Retire(ctx context.Context, id int) error
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	FindByPlate(ctx context.Context, plate string) (*domain.Vehicle, error)
	FindByID(ctx context.Context, id int) (*domain.Vehicle, error)
	FindAll(ctx context.Context) ([]domain.Vehicle, error)
}

// SessionRepository es el libro de entradas. Las dos operaciones compuestas
// (OpenWithCell y CloseAndFreeCell) son unidades de trabajo atómicas: la
// celda y la entrada cambian juntas o no cambia ninguna.
type SessionRepository interface {
	// OpenWithCell reclama la celda libre más antigua (id más bajo) del
	// tipo pedido y crea la entrada sobre ella en la misma transacción.
	// Errores: ErrNoFreeCell si no hay celda del tipo, ErrDuplicateEntry
	// si el vehículo o la celda ya tienen una entrada abierta.
	OpenWithCell(ctx context.Context, vehicleID int, vehicleType string, entryTime time.Time, userID null.Int) (*domain.Session, *domain.Cell, error)
	// CloseAndFreeCell cierra la entrada abierta y libera su celda en la
	// misma transacción. ErrNoOpenSession si la entrada no existe o ya
	// estaba cerrada.
	CloseAndFreeCell(ctx context.Context, sessionID int, exitTime time.Time, durationSeconds int64) (*domain.Session, error)

	FindByID(ctx context.Context, id int) (*domain.Session, error)
	FindOpenByVehicleID(ctx context.Context, vehicleID int) (*domain.Session, error)
	FindOpenByCellID(ctx context.Context, cellID int) (*domain.Session, error)
	// FindParked devuelve las entradas abiertas ya resueltas con placa y
	// nombre de celda, ordenadas por ingreso descendente.
	FindParked(ctx context.Context) ([]domain.ParkedVehicleDTO, error)
}

type HistoryRepository interface {
	// FindAll devuelve las entradas (abiertas y cerradas) con sus
	// relaciones resueltas, ordenadas por fecha de ingreso descendente.
	// Las relaciones ausentes llegan como domain.UnknownMarker.
	FindAll(ctx context.Context) ([]domain.HistoryRecord, error)
}

type RestrictionRepository interface {
	Create(ctx context.Context, rule *domain.RestrictionRule) (*domain.RestrictionRule, error)
	// FindForDay trae las reglas del tipo de vehículo para un día de la
	// semana ("Lunes"..."Domingo").
	FindForDay(ctx context.Context, vehicleType string, day string) ([]domain.RestrictionRule, error)
	FindAll(ctx context.Context) ([]domain.RestrictionRule, error)
	Delete(ctx context.Context, id int) error
}

type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) (*domain.Incident, error)
	FindAll(ctx context.Context) ([]domain.Incident, error)
}
