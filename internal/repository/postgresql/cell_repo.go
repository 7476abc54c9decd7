package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

type pgCellRepository struct {
	db *sql.DB
}

func NewPgCellRepository(db *sql.DB) repository.CellRepository {
	return &pgCellRepository{db: db}
}

func (r *pgCellRepository) Create(ctx context.Context, cell *domain.Cell) (*domain.Cell, error) {
	query := `INSERT INTO celdas (nombre, tipo_vehiculo, estado, activa, created_at, updated_at)
	           VALUES ($1, $2, $3, TRUE, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, created_at, updated_at`

	cell.Status = domain.CellFree
	cell.Active = true
	err := r.db.QueryRowContext(ctx, query, cell.Name, cell.VehicleType, cell.Status).
		Scan(&cell.ID, &cell.CreatedAt, &cell.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: ya existe una celda con nombre '%s'", repository.ErrDuplicateEntry, cell.Name)
		}
		return nil, fmt.Errorf("CellRepository.Create: %w", err)
	}
	cell.CreatedAt = cell.CreatedAt.In(time.UTC)
	cell.UpdatedAt = cell.UpdatedAt.In(time.UTC)
	return cell, nil
}

func (r *pgCellRepository) FindByID(ctx context.Context, id int) (*domain.Cell, error) {
	cell := &domain.Cell{}
	query := `SELECT id, nombre, tipo_vehiculo, estado, activa, created_at, updated_at
	           FROM celdas WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cell.ID, &cell.Name, &cell.VehicleType, &cell.Status, &cell.Active,
		&cell.CreatedAt, &cell.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("CellRepository.FindByID: %w", err)
	}
	cell.CreatedAt = cell.CreatedAt.In(time.UTC)
	cell.UpdatedAt = cell.UpdatedAt.In(time.UTC)
	return cell, nil
}

func (r *pgCellRepository) FindAll(ctx context.Context) ([]domain.Cell, error) {
	query := `SELECT id, nombre, tipo_vehiculo, estado, activa, created_at, updated_at
	           FROM celdas WHERE activa ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CellRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var cells []domain.Cell
	for rows.Next() {
		var cell domain.Cell
		if err := rows.Scan(
			&cell.ID, &cell.Name, &cell.VehicleType, &cell.Status, &cell.Active,
			&cell.CreatedAt, &cell.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("CellRepository.FindAll (scanning row): %w", err)
		}
		cell.CreatedAt = cell.CreatedAt.In(time.UTC)
		cell.UpdatedAt = cell.UpdatedAt.In(time.UTC)
		cells = append(cells, cell)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("CellRepository.FindAll (rows error): %w", err)
	}
	return cells, nil
}

func (r *pgCellRepository) Retire(ctx context.Context, id int) error {
	// Solo se retira una celda libre; una celda con entrada abierta no
	// puede salir del inventario.
	query := `UPDATE celdas SET activa = FALSE, updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1 AND estado = $2`

	result, err := r.db.ExecContext(ctx, query, id, domain.CellFree)
	if err != nil {
		return fmt.Errorf("CellRepository.Retire: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("CellRepository.Retire (rows affected): %w", err)
	}
	if affected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrCellOccupied
	}
	return nil
}
