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
	"parqueadero/internal/repository"
	"parqueadero/internal/repository/memory"
)

type recordingNotifier struct {
	updates []domain.Cell
}

func (n *recordingNotifier) NotifyCellUpdate(cell domain.Cell) {
	n.updates = append(n.updates, cell)
}

type parkingFixture struct {
	svc      *ParkingService
	store    *memory.Store
	notifier *recordingNotifier
}

func newParkingFixture(t *testing.T) *parkingFixture {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	restrictions := NewRestrictionService(store.Restrictions(), time.UTC, zap.NewNop())
	svc := NewParkingService(store.Cells(), store.Vehicles(), store.Sessions(),
		restrictions, notifier, zap.NewNop())
	return &parkingFixture{svc: svc, store: store, notifier: notifier}
}

func (f *parkingFixture) provisionCells(t *testing.T, vehicleType string, names ...string) {
	t.Helper()
	for _, name := range names {
		_, err := f.svc.ProvisionCell(context.Background(), domain.CellDTO{Name: name, VehicleType: vehicleType})
		require.NoError(t, err)
	}
}

func TestRegisterEntryAssignsLowestFreeCell(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01", "C-02", "C-03")

	entry, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "abc-123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)

	assert.Equal(t, "ABC123", entry.Plate)
	assert.Equal(t, "C-01", entry.CellName)
	assert.NotZero(t, entry.SessionID)

	inventory, err := f.svc.CellInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inventory.Occupied)
	assert.Equal(t, 2, inventory.Free)
	assert.Equal(t, 3, inventory.Total)

	// el tablero recibió la celda ocupada
	last := f.notifier.updates[len(f.notifier.updates)-1]
	assert.Equal(t, "C-01", last.Name)
	assert.Equal(t, domain.CellOccupied, last.Status)
}

func TestRegisterEntryCellTypeMustMatch(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeMotorcycle, "M-01")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	assert.ErrorIs(t, err, ErrNoFreeCell)

	inventory, err := f.svc.CellInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, inventory.Occupied)
}

func TestRegisterEntryRejectsRestrictedPlate(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")

	_, err := f.store.Restrictions().Create(context.Background(), &domain.RestrictionRule{
		VehicleType: domain.VehicleTypeCar, PlateDigit: "7", Day: "Lunes",
	})
	require.NoError(t, err)

	// lunes 10 de marzo de 2025
	_, err = f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC127", VehicleType: domain.VehicleTypeCar,
		EntryTime: "2025-03-10T12:00:00Z",
	}, null.Int{})
	assert.ErrorIs(t, err, ErrRestrictedPlate)

	// el rechazo no deja celda ocupada ni entrada abierta
	inventory, err := f.svc.CellInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, inventory.Occupied)

	parked, err := f.svc.Parked(context.Background())
	require.NoError(t, err)
	assert.Empty(t, parked)
}

func TestRegisterEntryDuplicateOpenSession(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01", "C-02")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)

	// misma placa con otro formato
	_, err = f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "abc 123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	assert.ErrorIs(t, err, ErrDuplicateOpenSession)

	// el intento fallido no ocupó una segunda celda
	inventory, err := f.svc.CellInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inventory.Occupied)
}

func TestRegisterEntryNoFreeCell(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "AAA111", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)

	_, err = f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "BBB222", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	assert.ErrorIs(t, err, ErrNoFreeCell)
}

func TestRegisterEntryFailsClosedWhenRulesUnavailable(t *testing.T) {
	store := memory.NewStore()
	restrictions := NewRestrictionService(failingRestrictionRepo{}, time.UTC, zap.NewNop())
	svc := NewParkingService(store.Cells(), store.Vehicles(), store.Sessions(),
		restrictions, nil, zap.NewNop())

	_, err := store.Cells().Create(context.Background(), &domain.Cell{Name: "C-01", VehicleType: domain.VehicleTypeCar})
	require.NoError(t, err)

	_, err = svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	assert.ErrorIs(t, err, ErrPersistenceUnavailable)

	// sin verificación de pico y placa no se admite: nada quedó ocupado
	cells, err := store.Cells().FindAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.CellFree, cells[0].Status)
}

func TestRegisterEntryInvalidInput(t *testing.T) {
	f := newParkingFixture(t)

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: "Bicicleta",
	}, null.Int{})
	assert.ErrorIs(t, err, ErrInvalidVehicleType)

	_, err = f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "  - ", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	assert.ErrorIs(t, err, ErrInvalidPlate)

	_, err = f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar, EntryTime: "ayer",
	}, null.Int{})
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestRegisterExitComputesDurationAndFreesCell(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
		EntryTime: "2025-03-10T08:00:00Z",
	}, null.Int{})
	require.NoError(t, err)

	exit, err := f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{
		Plate: "ABC123", ExitTime: "2025-03-10T10:30:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "ABC123", exit.Plate)
	assert.Equal(t, "C-01", exit.CellName)
	assert.Equal(t, int64(2*3600+30*60), exit.DurationSeconds)

	inventory, err := f.svc.CellInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, inventory.Occupied)
	assert.Equal(t, 1, inventory.Free)

	// la celda liberada queda disponible para un nuevo ingreso
	entry, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)
	assert.Equal(t, "C-01", entry.CellName)
}

func TestRegisterExitBySessionID(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")

	entry, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)

	exit, err := f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{
		SessionID: &entry.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, entry.SessionID, exit.SessionID)
	assert.Equal(t, "ABC123", exit.Plate)
}

func TestRegisterExitDoubleCloseIsRejected(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)

	first, err := f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{Plate: "ABC123"})
	require.NoError(t, err)

	_, err = f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{Plate: "ABC123"})
	assert.ErrorIs(t, err, ErrNoOpenSession)

	_, err = f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{SessionID: &first.SessionID})
	assert.ErrorIs(t, err, ErrNoOpenSession)
}

func TestRegisterExitRejectsExitBeforeEntry(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
		EntryTime: "2025-03-10T08:00:00Z",
	}, null.Int{})
	require.NoError(t, err)

	_, err = f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{
		Plate: "ABC123", ExitTime: "2025-03-10T07:00:00Z",
	})
	assert.ErrorIs(t, err, ErrInvalidTimeOrdering)

	// el rechazo no cerró la entrada ni liberó la celda
	parked, err := f.svc.Parked(context.Background())
	require.NoError(t, err)
	require.Len(t, parked, 1)

	inventory, err := f.svc.CellInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inventory.Occupied)

	// con una salida válida la entrada cierra normalmente
	exit, err := f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{
		Plate: "ABC123", ExitTime: "2025-03-10T09:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), exit.DurationSeconds)
}

func TestRegisterExitZeroDurationIsValid(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
		EntryTime: "2025-03-10T08:00:00Z",
	}, null.Int{})
	require.NoError(t, err)

	exit, err := f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{
		Plate: "ABC123", ExitTime: "2025-03-10T08:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), exit.DurationSeconds)
}

func TestRegisterExitUnknownReferences(t *testing.T) {
	f := newParkingFixture(t)

	_, err := f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{Plate: "NUNCA1"})
	assert.ErrorIs(t, err, ErrNoOpenSession)

	missing := 999
	_, err = f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{SessionID: &missing})
	assert.ErrorIs(t, err, ErrNoOpenSession)

	_, err = f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{})
	assert.ErrorIs(t, err, ErrMissingExitReference)
}

func TestParkedListsOpenSessionsOnly(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01", "C-02")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "AAA111", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)
	_, err = f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "BBB222", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)

	_, err = f.svc.RegisterExit(context.Background(), domain.ExitRequestDTO{Plate: "AAA111"})
	require.NoError(t, err)

	parked, err := f.svc.Parked(context.Background())
	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Equal(t, "BBB222", parked[0].Plate)
	assert.Equal(t, "C-02", parked[0].CellName)
}

func TestRetireCell(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01", "C-02")

	_, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)

	// celda ocupada no se puede retirar
	err = f.svc.RetireCell(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrCellOccupied)

	// celda libre sí, y deja de ser asignable
	require.NoError(t, f.svc.RetireCell(context.Background(), 2))

	_, err = f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "DDD444", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	assert.ErrorIs(t, err, ErrNoFreeCell)

	err = f.svc.RetireCell(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRegisterVehicleNormalizesAndRejectsDuplicates(t *testing.T) {
	f := newParkingFixture(t)

	vehicle, err := f.svc.RegisterVehicle(context.Background(), domain.VehicleDTO{
		Plate: " abc-123 ", VehicleType: domain.VehicleTypeCar,
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC123", vehicle.Plate)

	_, err = f.svc.RegisterVehicle(context.Background(), domain.VehicleDTO{
		Plate: "ABC 123", VehicleType: domain.VehicleTypeCar,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
}

func TestRegisterEntryUsesRegisteredVehicleType(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")
	f.provisionCells(t, domain.VehicleTypeMotorcycle, "M-01")

	_, err := f.svc.RegisterVehicle(context.Background(), domain.VehicleDTO{
		Plate: "XYZ12F", VehicleType: domain.VehicleTypeMotorcycle,
	})
	require.NoError(t, err)

	// la solicitud dice Carro pero la placa está registrada como Moto
	entry, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "XYZ12F", VehicleType: domain.VehicleTypeCar,
	}, null.Int{})
	require.NoError(t, err)
	assert.Equal(t, "M-01", entry.CellName)
}

func TestRegisterEntryAttributesOperator(t *testing.T) {
	f := newParkingFixture(t)
	f.provisionCells(t, domain.VehicleTypeCar, "C-01")

	entry, err := f.svc.RegisterEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "ABC123", VehicleType: domain.VehicleTypeCar,
	}, null.IntFrom(42))
	require.NoError(t, err)

	session, err := f.store.Sessions().FindByID(context.Background(), entry.SessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), session.UserID.Int64)
}
