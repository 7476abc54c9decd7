package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

type pgSessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPgSessionRepository(db *sql.DB, logger *zap.Logger) repository.SessionRepository {
	return &pgSessionRepository{db: db, logger: logger}
}

const sessionColumns = `id, vehiculo_id, celda_id, usuario_id, fecha_ingreso, fecha_salida,
	                 tiempo_estadia, estado, created_at, updated_at`

// OpenWithCell reclama la celda libre de id más bajo del tipo pedido y crea
// la entrada en la misma transacción. El SELECT con FOR UPDATE SKIP LOCKED
// garantiza que dos ingresos concurrentes nunca reclamen la misma celda, y
// los índices únicos parciales rechazan una segunda entrada abierta para el
// mismo vehículo o la misma celda.
func (r *pgSessionRepository) OpenWithCell(ctx context.Context, vehicleID int, vehicleType string, entryTime time.Time, userID null.Int) (*domain.Session, *domain.Cell, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("SessionRepository.OpenWithCell (begin): %w", err)
	}
	defer tx.Rollback()

	claimQuery := `UPDATE celdas SET estado = $1, updated_at = CURRENT_TIMESTAMP
	                WHERE id = (SELECT id FROM celdas
	                             WHERE tipo_vehiculo = $2 AND estado = $3 AND activa
	                             ORDER BY id LIMIT 1
	                             FOR UPDATE SKIP LOCKED)
	                RETURNING id, nombre, tipo_vehiculo, estado, activa, created_at, updated_at`

	cell := &domain.Cell{}
	err = tx.QueryRowContext(ctx, claimQuery, domain.CellOccupied, vehicleType, domain.CellFree).Scan(
		&cell.ID, &cell.Name, &cell.VehicleType, &cell.Status, &cell.Active,
		&cell.CreatedAt, &cell.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, repository.ErrNoFreeCell
		}
		return nil, nil, fmt.Errorf("SessionRepository.OpenWithCell (claim): %w", err)
	}

	insertQuery := `INSERT INTO entradas (vehiculo_id, celda_id, usuario_id, fecha_ingreso, estado, created_at, updated_at)
	                 VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	                 RETURNING id, created_at, updated_at`

	var userIDVal sql.NullInt64
	if userID.Valid {
		userIDVal = sql.NullInt64{Int64: userID.Int64, Valid: true}
	}

	session := &domain.Session{
		VehicleID: vehicleID,
		CellID:    cell.ID,
		UserID:    userID,
		EntryTime: entryTime,
		Status:    domain.SessionOpen,
	}
	err = tx.QueryRowContext(ctx, insertQuery, vehicleID, cell.ID, userIDVal, entryTime, domain.SessionOpen).
		Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, nil, fmt.Errorf("%w: el vehículo ya tiene una entrada abierta", repository.ErrDuplicateEntry)
		}
		return nil, nil, fmt.Errorf("SessionRepository.OpenWithCell (insert): %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("SessionRepository.OpenWithCell (commit): %w", err)
	}

	session.EntryTime = session.EntryTime.In(time.UTC)
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, cell, nil
}

// CloseAndFreeCell cierra la entrada abierta y libera su celda en la misma
// transacción. El WHERE fecha_salida IS NULL hace del cierre una operación
// de comparar-y-fijar: la segunda salida concurrente no encuentra filas.
func (r *pgSessionRepository) CloseAndFreeCell(ctx context.Context, sessionID int, exitTime time.Time, durationSeconds int64) (*domain.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.CloseAndFreeCell (begin): %w", err)
	}
	defer tx.Rollback()

	closeQuery := `UPDATE entradas
	                SET fecha_salida = $2, tiempo_estadia = $3, estado = $4, updated_at = CURRENT_TIMESTAMP
	                WHERE id = $1 AND fecha_salida IS NULL
	                RETURNING ` + sessionColumns

	session := &domain.Session{}
	err = tx.QueryRowContext(ctx, closeQuery, sessionID, exitTime, durationSeconds, domain.SessionClosed).Scan(
		&session.ID, &session.VehicleID, &session.CellID, &session.UserID,
		&session.EntryTime, &session.ExitTime, &session.DurationSeconds, &session.Status,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoOpenSession
		}
		return nil, fmt.Errorf("SessionRepository.CloseAndFreeCell (close): %w", err)
	}

	freeQuery := `UPDATE celdas SET estado = $2, updated_at = CURRENT_TIMESTAMP
	               WHERE id = $1 AND estado = $3`
	result, err := tx.ExecContext(ctx, freeQuery, session.CellID, domain.CellFree, domain.CellOccupied)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.CloseAndFreeCell (free cell): %w", err)
	}
	if affected, raErr := result.RowsAffected(); raErr == nil && affected == 0 {
		// La celda ya estaba libre: anomalía, no error fatal.
		r.logger.Warn("la celda ya estaba libre al cerrar la entrada",
			zap.Int("celda_id", session.CellID),
			zap.Int("entrada_id", session.ID))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("SessionRepository.CloseAndFreeCell (commit): %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgSessionRepository) FindByID(ctx context.Context, id int) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM entradas WHERE id = $1`
	return r.querySession(ctx, query, id)
}

func (r *pgSessionRepository) FindOpenByVehicleID(ctx context.Context, vehicleID int) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM entradas
	           WHERE vehiculo_id = $1 AND fecha_salida IS NULL
	           ORDER BY fecha_ingreso DESC LIMIT 1`
	session, err := r.querySession(ctx, query, vehicleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrNoOpenSession
	}
	return session, err
}

func (r *pgSessionRepository) FindOpenByCellID(ctx context.Context, cellID int) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM entradas
	           WHERE celda_id = $1 AND fecha_salida IS NULL
	           ORDER BY fecha_ingreso DESC LIMIT 1`
	session, err := r.querySession(ctx, query, cellID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrNoOpenSession
	}
	return session, err
}

func (r *pgSessionRepository) FindParked(ctx context.Context) ([]domain.ParkedVehicleDTO, error) {
	query := `SELECT e.id, COALESCE(v.placa, $1), COALESCE(c.nombre, $1), e.fecha_ingreso
	           FROM entradas e
	           LEFT JOIN vehiculos v ON v.id = e.vehiculo_id
	           LEFT JOIN celdas c ON c.id = e.celda_id
	           WHERE e.fecha_salida IS NULL
	           ORDER BY e.fecha_ingreso DESC`

	rows, err := r.db.QueryContext(ctx, query, domain.UnknownMarker)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.FindParked: %w", err)
	}
	defer rows.Close()

	var parked []domain.ParkedVehicleDTO
	for rows.Next() {
		var item domain.ParkedVehicleDTO
		if err := rows.Scan(&item.SessionID, &item.Plate, &item.CellName, &item.EntryTime); err != nil {
			return nil, fmt.Errorf("SessionRepository.FindParked (scanning row): %w", err)
		}
		item.EntryTime = item.EntryTime.In(time.UTC)
		parked = append(parked, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SessionRepository.FindParked (rows error): %w", err)
	}
	return parked, nil
}

func (r *pgSessionRepository) querySession(ctx context.Context, query string, arg any) (*domain.Session, error) {
	session := &domain.Session{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&session.ID, &session.VehicleID, &session.CellID, &session.UserID,
		&session.EntryTime, &session.ExitTime, &session.DurationSeconds, &session.Status,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SessionRepository.querySession: %w", err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func normalizeSessionTimes(session *domain.Session) {
	session.EntryTime = session.EntryTime.In(time.UTC)
	if session.ExitTime.Valid {
		session.ExitTime.Time = session.ExitTime.Time.In(time.UTC)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
}
