package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Incident es una incidencia de solo-anexar ("vehículo mal estacionado",
// daño en una celda, etc.), opcionalmente ligada a una entrada o a un
// vehículo. No tiene máquina de estados.
type Incident struct {
	ID          int         `json:"id"`
	Folio       string      `json:"folio"`
	Description string      `json:"descripcion"`
	SessionID   null.Int    `json:"entrada_id"`
	Plate       null.String `json:"placa"`
	ReportedAt  time.Time   `json:"fecha_hora"`
	CreatedAt   time.Time   `json:"created_at"`
}

type IncidentDTO struct {
	Description string `json:"descripcion" binding:"required"`
	SessionID   *int   `json:"entrada_id,omitempty"`
	Plate       string `json:"placa,omitempty"`
	ReportedAt  string `json:"fecha_hora,omitempty"`
}
