package domain

import "time"

const (
	RoleAdmin    = "Administrador"
	RoleOperator = "Operador"
)

type User struct {
	ID             int       `json:"id"`
	FirstName      string    `json:"primer_nombre"`
	LastName       string    `json:"primer_apellido"`
	DocumentNumber string    `json:"numero_documento"`
	Email          string    `json:"correo"`
	Password       string    `json:"-"`
	Phone          string    `json:"celular"`
	Role           string    `json:"rol"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type RegisterUserDTO struct {
	FirstName      string `json:"primer_nombre" binding:"required"`
	LastName       string `json:"primer_apellido" binding:"required"`
	DocumentNumber string `json:"numero_documento" binding:"required"`
	Email          string `json:"correo" binding:"required,email"`
	Password       string `json:"clave" binding:"required,min=6,max=100"`
	Phone          string `json:"celular,omitempty"`
	Role           string `json:"rol,omitempty"`
}

type LoginUserDTO struct {
	Email    string `json:"correo" binding:"required"`
	Password string `json:"clave" binding:"required"`
}

type AuthResponseDTO struct {
	Token     string `json:"token"`
	UserID    int    `json:"user_id"`
	FirstName string `json:"primer_nombre"`
	Email     string `json:"correo"`
	Role      string `json:"rol"`
}
