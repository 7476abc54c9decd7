package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository/memory"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	store := memory.NewStore()
	return NewAuthService(store.Users(), "secreto-de-prueba", time.Hour)
}

func registerDTO() domain.RegisterUserDTO {
	return domain.RegisterUserDTO{
		FirstName:      "Carlos",
		LastName:       "Pérez",
		DocumentNumber: "1020304050",
		Email:          "carlos@parqueadero.co",
		Password:       "clave-segura",
		Phone:          "3001234567",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)

	user, err := svc.Register(context.Background(), registerDTO())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, user.Role)
	assert.Empty(t, user.Password)

	auth, err := svc.Login(context.Background(), domain.LoginUserDTO{
		Email: "carlos@parqueadero.co", Password: "clave-segura",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, user.ID, auth.UserID)
	assert.Equal(t, domain.RoleOperator, auth.Role)

	_, claims, err := svc.ValidateToken(auth.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, claims["rol"])
	assert.Equal(t, "carlos@parqueadero.co", claims["correo"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Register(context.Background(), registerDTO())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerDTO())
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := newAuthService(t)

	dto := registerDTO()
	dto.Role = "SuperUsuario"
	_, err := svc.Register(context.Background(), dto)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.Register(context.Background(), registerDTO())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), domain.LoginUserDTO{
		Email: "carlos@parqueadero.co", Password: "otra-clave",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), domain.LoginUserDTO{
		Email: "nadie@parqueadero.co", Password: "clave-segura",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t)

	_, _, err := svc.ValidateToken("no-es-un-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	svc := newAuthService(t)
	other := NewAuthService(memory.NewStore().Users(), "otro-secreto", time.Hour)

	_, err := svc.Register(context.Background(), registerDTO())
	require.NoError(t, err)
	auth, err := svc.Login(context.Background(), domain.LoginUserDTO{
		Email: "carlos@parqueadero.co", Password: "clave-segura",
	})
	require.NoError(t, err)

	_, _, err = other.ValidateToken(auth.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
