package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// UnknownMarker se muestra cuando una relación del historial no existe,
// en lugar de descartar la fila completa.
const UnknownMarker = "N/A"

// HistoryRecord es una fila ya resuelta de GET /api/historial: la entrada
// con la placa, la celda y el usuario que registró el ingreso.
type HistoryRecord struct {
	SessionID       int       `json:"id"`
	EntryTime       time.Time `json:"fecha_ingreso"`
	ExitTime        null.Time `json:"fecha_salida"`
	DurationSeconds null.Int  `json:"tiempo_estadia"`
	Plate           string    `json:"placa_vehiculo"`
	CellName        string    `json:"nombre_celda"`
	UserName        string    `json:"usuario_nombre"`
}
