package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

type pgRestrictionRepository struct {
	db *sql.DB
}

func NewPgRestrictionRepository(db *sql.DB) repository.RestrictionRepository {
	return &pgRestrictionRepository{db: db}
}

func (r *pgRestrictionRepository) Create(ctx context.Context, rule *domain.RestrictionRule) (*domain.RestrictionRule, error) {
	query := `INSERT INTO pico_placa (tipo_vehiculo, digito_placa, dia, hora_inicio, hora_fin, created_at)
	           VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
	           RETURNING id, created_at`

	var startVal, endVal sql.NullString
	if rule.StartTime.Valid {
		startVal = sql.NullString{String: rule.StartTime.String, Valid: true}
	}
	if rule.EndTime.Valid {
		endVal = sql.NullString{String: rule.EndTime.String, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		rule.VehicleType, rule.PlateDigit, rule.Day, startVal, endVal,
	).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("RestrictionRepository.Create: %w", err)
	}
	rule.CreatedAt = rule.CreatedAt.In(time.UTC)
	return rule, nil
}

func (r *pgRestrictionRepository) FindForDay(ctx context.Context, vehicleType string, day string) ([]domain.RestrictionRule, error) {
	query := `SELECT id, tipo_vehiculo, digito_placa, dia, hora_inicio, hora_fin, created_at
	           FROM pico_placa WHERE tipo_vehiculo = $1 AND dia = $2 ORDER BY id`
	return r.queryRules(ctx, query, vehicleType, day)
}

func (r *pgRestrictionRepository) FindAll(ctx context.Context) ([]domain.RestrictionRule, error) {
	query := `SELECT id, tipo_vehiculo, digito_placa, dia, hora_inicio, hora_fin, created_at
	           FROM pico_placa ORDER BY id`
	return r.queryRules(ctx, query)
}

func (r *pgRestrictionRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pico_placa WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("RestrictionRepository.Delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("RestrictionRepository.Delete (rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgRestrictionRepository) queryRules(ctx context.Context, query string, args ...any) ([]domain.RestrictionRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("RestrictionRepository.queryRules: %w", err)
	}
	defer rows.Close()

	var rules []domain.RestrictionRule
	for rows.Next() {
		var rule domain.RestrictionRule
		if err := rows.Scan(
			&rule.ID, &rule.VehicleType, &rule.PlateDigit, &rule.Day,
			&rule.StartTime, &rule.EndTime, &rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("RestrictionRepository.queryRules (scanning row): %w", err)
		}
		rule.CreatedAt = rule.CreatedAt.In(time.UTC)
		rules = append(rules, rule)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("RestrictionRepository.queryRules (rows error): %w", err)
	}
	return rules, nil
}
