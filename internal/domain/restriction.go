package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Días como los maneja la tabla pico_placa.
var SpanishWeekdays = [7]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Lunes",
	time.Tuesday:   "Martes",
	time.Wednesday: "Miércoles",
	time.Thursday:  "Jueves",
	time.Friday:    "Viernes",
	time.Saturday:  "Sábado",
}

// RestrictionRule es una regla de pico y placa: restringe el ingreso de los
// vehículos de un tipo cuya placa termina en cierto dígito, un día de la
// semana, opcionalmente solo dentro de una franja horaria (HH:MM).
// Las reglas sin franja aplican todo el día.
type RestrictionRule struct {
	ID          int         `json:"id"`
	VehicleType string      `json:"tipo_vehiculo"`
	PlateDigit  string      `json:"digito_placa"`
	Day         string      `json:"dia"`
	StartTime   null.String `json:"hora_inicio"`
	EndTime     null.String `json:"hora_fin"`
	CreatedAt   time.Time   `json:"created_at"`
}

type RestrictionRuleDTO struct {
	VehicleType string `json:"tipo_vehiculo" binding:"required"`
	PlateDigit  string `json:"digito_placa" binding:"required,len=1"`
	Day         string `json:"dia" binding:"required"`
	StartTime   string `json:"hora_inicio,omitempty"`
	EndTime     string `json:"hora_fin,omitempty"`
}

func ValidWeekday(day string) bool {
	for _, d := range SpanishWeekdays {
		if d == day {
			return true
		}
	}
	return false
}
