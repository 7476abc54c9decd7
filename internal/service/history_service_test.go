package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository/memory"
)

func TestHistoryReportResolvesReferences(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	user, err := store.Users().Create(ctx, &domain.User{
		FirstName: "Laura", LastName: "Gómez", DocumentNumber: "100",
		Email: "laura@parqueadero.co", Role: domain.RoleOperator,
	})
	require.NoError(t, err)

	_, err = store.Cells().Create(ctx, &domain.Cell{Name: "C-01", VehicleType: domain.VehicleTypeCar})
	require.NoError(t, err)
	vehicle, err := store.Vehicles().Create(ctx, &domain.Vehicle{Plate: "ABC123", VehicleType: domain.VehicleTypeCar})
	require.NoError(t, err)

	entryTime := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	session, _, err := store.Sessions().OpenWithCell(ctx, vehicle.ID, vehicle.VehicleType, entryTime, null.IntFrom(int64(user.ID)))
	require.NoError(t, err)
	_, err = store.Sessions().CloseAndFreeCell(ctx, session.ID, entryTime.Add(2*time.Hour), 7200)
	require.NoError(t, err)

	svc := NewHistoryService(store.History(), zap.NewNop())
	records, err := svc.Report(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "ABC123", record.Plate)
	assert.Equal(t, "C-01", record.CellName)
	assert.Equal(t, "Laura Gómez", record.UserName)
	assert.Equal(t, int64(7200), record.DurationSeconds.Int64)
	assert.True(t, record.ExitTime.Valid)
}

func TestHistoryReportIncludesOpenSessionsAndUnknowns(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := store.Cells().Create(ctx, &domain.Cell{Name: "C-01", VehicleType: domain.VehicleTypeCar})
	require.NoError(t, err)
	vehicle, err := store.Vehicles().Create(ctx, &domain.Vehicle{Plate: "ABC123", VehicleType: domain.VehicleTypeCar})
	require.NoError(t, err)

	// entrada abierta sin operador
	_, _, err = store.Sessions().OpenWithCell(ctx, vehicle.ID, vehicle.VehicleType, monday, null.Int{})
	require.NoError(t, err)

	svc := NewHistoryService(store.History(), zap.NewNop())
	records, err := svc.Report(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.False(t, record.ExitTime.Valid)
	assert.False(t, record.DurationSeconds.Valid)
	assert.Equal(t, domain.UnknownMarker, record.UserName)
}

func TestHistoryReportEmptyIsNotNil(t *testing.T) {
	store := memory.NewStore()
	svc := NewHistoryService(store.History(), zap.NewNop())

	records, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
