package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
	"parqueadero/internal/repository/memory"
)

// lunes 10 de marzo de 2025
var monday = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newRestrictionService(t *testing.T) (*RestrictionService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewRestrictionService(store.Restrictions(), time.UTC, zap.NewNop()), store
}

func mustCreateRule(t *testing.T, svc *RestrictionService, dto domain.RestrictionRuleDTO) {
	t.Helper()
	_, err := svc.CreateRule(context.Background(), dto)
	require.NoError(t, err)
}

func TestIsRestrictedAllDayRule(t *testing.T) {
	svc, _ := newRestrictionService(t)
	mustCreateRule(t, svc, domain.RestrictionRuleDTO{
		VehicleType: domain.VehicleTypeCar, PlateDigit: "7", Day: "Lunes",
	})

	restricted, err := svc.IsRestricted(context.Background(), "ABC127", domain.VehicleTypeCar, monday)
	require.NoError(t, err)
	assert.True(t, restricted)

	// mismo dígito, otro día
	restricted, err = svc.IsRestricted(context.Background(), "ABC127", domain.VehicleTypeCar, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, restricted)

	// otro dígito, mismo día
	restricted, err = svc.IsRestricted(context.Background(), "ABC123", domain.VehicleTypeCar, monday)
	require.NoError(t, err)
	assert.False(t, restricted)

	// mismo dígito, otro tipo de vehículo
	restricted, err = svc.IsRestricted(context.Background(), "XYZ17A", domain.VehicleTypeMotorcycle, monday)
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestIsRestrictedTimeWindow(t *testing.T) {
	svc, _ := newRestrictionService(t)
	mustCreateRule(t, svc, domain.RestrictionRuleDTO{
		VehicleType: domain.VehicleTypeCar, PlateDigit: "4", Day: "Lunes",
		StartTime: "06:00", EndTime: "09:00",
	})

	at := func(hour, minute int) time.Time {
		return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
	}

	cases := []struct {
		name       string
		at         time.Time
		restricted bool
	}{
		{"dentro de la franja", at(7, 30), true},
		{"inicio inclusivo", at(6, 0), true},
		{"fin exclusivo", at(9, 0), false},
		{"antes de la franja", at(5, 59), false},
		{"después de la franja", at(10, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			restricted, err := svc.IsRestricted(context.Background(), "GHJ784", domain.VehicleTypeCar, tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.restricted, restricted)
		})
	}
}

func TestIsRestrictedWindowCrossingMidnight(t *testing.T) {
	svc, _ := newRestrictionService(t)
	mustCreateRule(t, svc, domain.RestrictionRuleDTO{
		VehicleType: domain.VehicleTypeCar, PlateDigit: "1", Day: "Lunes",
		StartTime: "22:00", EndTime: "02:00",
	})

	restricted, err := svc.IsRestricted(context.Background(), "AAA111", domain.VehicleTypeCar,
		time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, restricted)

	restricted, err = svc.IsRestricted(context.Background(), "AAA111", domain.VehicleTypeCar,
		time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, restricted)

	restricted, err = svc.IsRestricted(context.Background(), "AAA111", domain.VehicleTypeCar,
		time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestIsRestrictedMotorcyclePlateEndsInLetter(t *testing.T) {
	svc, _ := newRestrictionService(t)
	mustCreateRule(t, svc, domain.RestrictionRuleDTO{
		VehicleType: domain.VehicleTypeMotorcycle, PlateDigit: "2", Day: "Lunes",
	})

	// El último dígito de una placa de moto no es el último carácter.
	restricted, err := svc.IsRestricted(context.Background(), "XYZ12F", domain.VehicleTypeMotorcycle, monday)
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestIsRestrictedPlateWithoutDigits(t *testing.T) {
	svc, _ := newRestrictionService(t)
	mustCreateRule(t, svc, domain.RestrictionRuleDTO{
		VehicleType: domain.VehicleTypeCar, PlateDigit: "0", Day: "Lunes",
	})

	restricted, err := svc.IsRestricted(context.Background(), "ABCDEF", domain.VehicleTypeCar, monday)
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestIsRestrictedEvaluatesInFacilityTimezone(t *testing.T) {
	// UTC-5 fijo para no depender de la base de datos de zonas del sistema.
	bogota := time.FixedZone("America/Bogota", -5*60*60)
	store := memory.NewStore()
	svc := NewRestrictionService(store.Restrictions(), bogota, zap.NewNop())
	mustCreateRule(t, svc, domain.RestrictionRuleDTO{
		VehicleType: domain.VehicleTypeCar, PlateDigit: "7", Day: "Lunes",
	})

	// 03:00 UTC del martes todavía es lunes 22:00 en la sede.
	at := time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC)
	restricted, err := svc.IsRestricted(context.Background(), "ABC127", domain.VehicleTypeCar, at)
	require.NoError(t, err)
	assert.True(t, restricted)
}

type failingRestrictionRepo struct{}

var errStoreDown = errors.New("almacén caído")

func (failingRestrictionRepo) Create(context.Context, *domain.RestrictionRule) (*domain.RestrictionRule, error) {
	return nil, errStoreDown
}
func (failingRestrictionRepo) FindForDay(context.Context, string, string) ([]domain.RestrictionRule, error) {
	return nil, errStoreDown
}
func (failingRestrictionRepo) FindAll(context.Context) ([]domain.RestrictionRule, error) {
	return nil, errStoreDown
}
func (failingRestrictionRepo) Delete(context.Context, int) error { return errStoreDown }

func TestIsRestrictedPropagatesStoreFailure(t *testing.T) {
	svc := NewRestrictionService(failingRestrictionRepo{}, time.UTC, zap.NewNop())

	_, err := svc.IsRestricted(context.Background(), "ABC127", domain.VehicleTypeCar, monday)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestCreateRuleValidation(t *testing.T) {
	svc, _ := newRestrictionService(t)

	cases := []struct {
		name string
		dto  domain.RestrictionRuleDTO
	}{
		{"tipo desconocido", domain.RestrictionRuleDTO{VehicleType: "Camión", PlateDigit: "1", Day: "Lunes"}},
		{"día desconocido", domain.RestrictionRuleDTO{VehicleType: domain.VehicleTypeCar, PlateDigit: "1", Day: "Funesday"}},
		{"dígito no numérico", domain.RestrictionRuleDTO{VehicleType: domain.VehicleTypeCar, PlateDigit: "x", Day: "Lunes"}},
		{"franja incompleta", domain.RestrictionRuleDTO{VehicleType: domain.VehicleTypeCar, PlateDigit: "1", Day: "Lunes", StartTime: "06:00"}},
		{"hora malformada", domain.RestrictionRuleDTO{VehicleType: domain.VehicleTypeCar, PlateDigit: "1", Day: "Lunes", StartTime: "6am", EndTime: "09:00"}},
		{"hora fuera de rango", domain.RestrictionRuleDTO{VehicleType: domain.VehicleTypeCar, PlateDigit: "1", Day: "Lunes", StartTime: "06:00", EndTime: "24:30"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRule(context.Background(), tc.dto)
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestDeleteRuleRemovesIt(t *testing.T) {
	svc, _ := newRestrictionService(t)
	created, err := svc.CreateRule(context.Background(), domain.RestrictionRuleDTO{
		VehicleType: domain.VehicleTypeCar, PlateDigit: "7", Day: "Lunes",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRule(context.Background(), created.ID))

	restricted, err := svc.IsRestricted(context.Background(), "ABC127", domain.VehicleTypeCar, monday)
	require.NoError(t, err)
	assert.False(t, restricted)

	assert.ErrorIs(t, svc.DeleteRule(context.Background(), created.ID), repository.ErrNotFound)
}
