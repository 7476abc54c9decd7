package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"parqueadero/internal/config"
)

func NewDB(cfg *config.Config) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	db, err := sql.Open("pgx", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("error abriendo la conexión a la base de datos: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error haciendo ping a la base de datos: %w", err)
	}
	return db, nil
}

// Migrate aplica el esquema. Las sentencias son idempotentes; los índices
// únicos parciales sobre entradas abiertas respaldan los invariantes de
// "una entrada abierta por vehículo" y "una entrada abierta por celda"
// frente a solicitudes concurrentes.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		migrationCreateUsers,
		migrationCreateCells,
		migrationCreateVehicles,
		migrationCreateSessions,
		migrationCreateRestrictions,
		migrationCreateIncidents,
		migrationUniqueOpenSessionPerVehicle,
		migrationUniqueOpenSessionPerCell,
	}
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migración %d: %w", i+1, err)
		}
	}
	return nil
}

const migrationCreateUsers = `
CREATE TABLE IF NOT EXISTS usuarios (
    id               SERIAL PRIMARY KEY,
    primer_nombre    TEXT NOT NULL,
    primer_apellido  TEXT NOT NULL,
    numero_documento TEXT NOT NULL UNIQUE,
    correo           TEXT NOT NULL UNIQUE,
    clave            TEXT NOT NULL,
    celular          TEXT NOT NULL DEFAULT '',
    rol              TEXT NOT NULL DEFAULT 'Operador',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const migrationCreateCells = `
CREATE TABLE IF NOT EXISTS celdas (
    id            SERIAL PRIMARY KEY,
    nombre        TEXT NOT NULL UNIQUE,
    tipo_vehiculo TEXT NOT NULL,
    estado        TEXT NOT NULL DEFAULT 'libre',
    activa        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const migrationCreateVehicles = `
CREATE TABLE IF NOT EXISTS vehiculos (
    id            SERIAL PRIMARY KEY,
    placa         TEXT NOT NULL UNIQUE,
    tipo_vehiculo TEXT NOT NULL,
    usuario_id    INTEGER REFERENCES usuarios(id),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const migrationCreateSessions = `
CREATE TABLE IF NOT EXISTS entradas (
    id             SERIAL PRIMARY KEY,
    vehiculo_id    INTEGER NOT NULL REFERENCES vehiculos(id),
    celda_id       INTEGER NOT NULL REFERENCES celdas(id),
    usuario_id     INTEGER REFERENCES usuarios(id),
    fecha_ingreso  TIMESTAMPTZ NOT NULL,
    fecha_salida   TIMESTAMPTZ,
    tiempo_estadia BIGINT,
    estado         TEXT NOT NULL DEFAULT 'abierta',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const migrationCreateRestrictions = `
CREATE TABLE IF NOT EXISTS pico_placa (
    id            SERIAL PRIMARY KEY,
    tipo_vehiculo TEXT NOT NULL,
    digito_placa  CHAR(1) NOT NULL,
    dia           TEXT NOT NULL,
    hora_inicio   TEXT,
    hora_fin      TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const migrationCreateIncidents = `
CREATE TABLE IF NOT EXISTS incidencias (
    id          SERIAL PRIMARY KEY,
    folio       TEXT NOT NULL UNIQUE,
    descripcion TEXT NOT NULL,
    entrada_id  INTEGER REFERENCES entradas(id),
    placa       TEXT,
    fecha_hora  TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const migrationUniqueOpenSessionPerVehicle = `
CREATE UNIQUE INDEX IF NOT EXISTS entradas_vehiculo_abierta_uniq
    ON entradas (vehiculo_id) WHERE fecha_salida IS NULL`

const migrationUniqueOpenSessionPerCell = `
CREATE UNIQUE INDEX IF NOT EXISTS entradas_celda_abierta_uniq
    ON entradas (celda_id) WHERE fecha_salida IS NULL`
