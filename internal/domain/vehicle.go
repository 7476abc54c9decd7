package domain

import (
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

const (
	VehicleTypeCar        = "Carro"
	VehicleTypeMotorcycle = "Moto"
)

// Vehicle es un vehículo registrado por su placa. La placa es única y no
// se renombra una vez existen entradas que la referencien.
type Vehicle struct {
	ID          int       `json:"id"`
	Plate       string    `json:"placa"`
	VehicleType string    `json:"tipo_vehiculo"`
	UserID      null.Int  `json:"usuario_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type VehicleDTO struct {
	Plate       string `json:"placa" binding:"required"`
	VehicleType string `json:"tipo_vehiculo" binding:"required"`
	UserID      *int   `json:"usuario_id"`
}

// NormalizePlate deja la placa en mayúsculas, sin espacios ni guiones.
func NormalizePlate(plate string) string {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	plate = strings.ReplaceAll(plate, " ", "")
	return strings.ReplaceAll(plate, "-", "")
}

func ValidVehicleType(vehicleType string) bool {
	return vehicleType == VehicleTypeCar || vehicleType == VehicleTypeMotorcycle
}
