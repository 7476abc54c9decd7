package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "abierta"
	SessionClosed SessionStatus = "cerrada"
)

// Session es una entrada de parqueo: el intervalo continuo que un vehículo
// ocupa una celda. Se crea abierta al ingresar y se cierra exactamente una
// vez al salir; una entrada cerrada es historial inmutable.
type Session struct {
	ID              int           `json:"id"`
	VehicleID       int           `json:"vehiculo_id"`
	CellID          int           `json:"celda_id"`
	UserID          null.Int      `json:"usuario_id"`
	EntryTime       time.Time     `json:"fecha_ingreso"`
	ExitTime        null.Time     `json:"fecha_salida"`
	DurationSeconds null.Int      `json:"tiempo_estadia"`
	Status          SessionStatus `json:"estado"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// EntryRequestDTO es el cuerpo de POST /api/parqueo/entrada.
type EntryRequestDTO struct {
	Plate       string `json:"placa" binding:"required"`
	VehicleType string `json:"tipo_vehiculo" binding:"required"`
	// Marca de tiempo del ingreso en RFC3339. Vacío = ahora.
	EntryTime string `json:"fecha_ingreso,omitempty"`
}

type EntryResponseDTO struct {
	SessionID int       `json:"entrada_id"`
	Plate     string    `json:"placa"`
	CellName  string    `json:"celda"`
	EntryTime time.Time `json:"fecha_ingreso"`
}

// ExitRequestDTO es el cuerpo de POST /api/parqueo/salida. Se acepta la
// placa o el id de la entrada abierta.
type ExitRequestDTO struct {
	Plate     string `json:"placa,omitempty"`
	SessionID *int   `json:"entrada_id,omitempty"`
	ExitTime  string `json:"fecha_salida,omitempty"`
}

type ExitResponseDTO struct {
	SessionID       int       `json:"entrada_id"`
	Plate           string    `json:"placa"`
	CellName        string    `json:"celda"`
	ExitTime        time.Time `json:"fecha_salida"`
	DurationSeconds int64     `json:"tiempo_estadia"`
}

// ParkedVehicleDTO es una fila de GET /api/parqueo/estacionados.
type ParkedVehicleDTO struct {
	SessionID int       `json:"id"`
	Plate     string    `json:"placa"`
	CellName  string    `json:"celda"`
	EntryTime time.Time `json:"hora_ingreso"`
}
