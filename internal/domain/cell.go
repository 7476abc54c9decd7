package domain

import "time"

type CellStatus string

const (
	CellFree     CellStatus = "libre"
	CellOccupied CellStatus = "ocupado"
)

// Cell es una celda física del parqueadero. Una celda nunca se borra
// mientras existan entradas que la referencien: se retira (Active=false)
// y deja de ser asignable.
type Cell struct {
	ID          int        `json:"id"`
	Name        string     `json:"nombre"`
	VehicleType string     `json:"tipo_vehiculo"`
	Status      CellStatus `json:"estado"`
	Active      bool       `json:"activa"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CellDTO struct {
	Name        string `json:"nombre" binding:"required"`
	VehicleType string `json:"tipo_vehiculo" binding:"required"`
}

// CellInventoryDTO es la respuesta de GET /api/celdas/estado, con el mismo
// formato que consumen los paneles del frontend.
type CellInventoryDTO struct {
	Occupied int              `json:"ocupadas"`
	Free     int              `json:"libres"`
	Total    int              `json:"total"`
	Details  []CellDetailItem `json:"detalles"`
}

type CellDetailItem struct {
	ID     int        `json:"id"`
	Name   string     `json:"nombre"`
	Type   string     `json:"tipo"`
	Status CellStatus `json:"estado"`
}
