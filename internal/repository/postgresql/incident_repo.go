package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

type pgIncidentRepository struct {
	db *sql.DB
}

func NewPgIncidentRepository(db *sql.DB) repository.IncidentRepository {
	return &pgIncidentRepository{db: db}
}

func (r *pgIncidentRepository) Create(ctx context.Context, incident *domain.Incident) (*domain.Incident, error) {
	query := `INSERT INTO incidencias (folio, descripcion, entrada_id, placa, fecha_hora, created_at)
	           VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
	           RETURNING id, created_at`

	var sessionIDVal sql.NullInt64
	if incident.SessionID.Valid {
		sessionIDVal = sql.NullInt64{Int64: incident.SessionID.Int64, Valid: true}
	}
	var plateVal sql.NullString
	if incident.Plate.Valid {
		plateVal = sql.NullString{String: incident.Plate.String, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		incident.Folio, incident.Description, sessionIDVal, plateVal, incident.ReportedAt,
	).Scan(&incident.ID, &incident.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("IncidentRepository.Create: %w", err)
	}
	incident.ReportedAt = incident.ReportedAt.In(time.UTC)
	incident.CreatedAt = incident.CreatedAt.In(time.UTC)
	return incident, nil
}

func (r *pgIncidentRepository) FindAll(ctx context.Context) ([]domain.Incident, error) {
	query := `SELECT id, folio, descripcion, entrada_id, placa, fecha_hora, created_at
	           FROM incidencias ORDER BY fecha_hora DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("IncidentRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var incidents []domain.Incident
	for rows.Next() {
		var incident domain.Incident
		if err := rows.Scan(
			&incident.ID, &incident.Folio, &incident.Description,
			&incident.SessionID, &incident.Plate, &incident.ReportedAt, &incident.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("IncidentRepository.FindAll (scanning row): %w", err)
		}
		incident.ReportedAt = incident.ReportedAt.In(time.UTC)
		incident.CreatedAt = incident.CreatedAt.In(time.UTC)
		incidents = append(incidents, incident)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("IncidentRepository.FindAll (rows error): %w", err)
	}
	return incidents, nil
}
