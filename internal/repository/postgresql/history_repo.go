package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

type pgHistoryRepository struct {
	db *sql.DB
}

func NewPgHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &pgHistoryRepository{db: db}
}

// FindAll resuelve las relaciones con LEFT JOIN en lugar de traerlas por
// separado: una fila por entrada, con marcador cuando la relación falta.
func (r *pgHistoryRepository) FindAll(ctx context.Context) ([]domain.HistoryRecord, error) {
	query := `SELECT e.id, e.fecha_ingreso, e.fecha_salida, e.tiempo_estadia,
	                 COALESCE(v.placa, $1),
	                 COALESCE(c.nombre, $1),
	                 COALESCE(TRIM(u.primer_nombre || ' ' || u.primer_apellido), $1)
	           FROM entradas e
	           LEFT JOIN vehiculos v ON v.id = e.vehiculo_id
	           LEFT JOIN celdas c ON c.id = e.celda_id
	           LEFT JOIN usuarios u ON u.id = e.usuario_id
	           ORDER BY e.fecha_ingreso DESC`

	rows, err := r.db.QueryContext(ctx, query, domain.UnknownMarker)
	if err != nil {
		return nil, fmt.Errorf("HistoryRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		if err := rows.Scan(
			&rec.SessionID, &rec.EntryTime, &rec.ExitTime, &rec.DurationSeconds,
			&rec.Plate, &rec.CellName, &rec.UserName,
		); err != nil {
			return nil, fmt.Errorf("HistoryRepository.FindAll (scanning row): %w", err)
		}
		rec.EntryTime = rec.EntryTime.In(time.UTC)
		if rec.ExitTime.Valid {
			rec.ExitTime.Time = rec.ExitTime.Time.In(time.UTC)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("HistoryRepository.FindAll (rows error): %w", err)
	}
	return records, nil
}
