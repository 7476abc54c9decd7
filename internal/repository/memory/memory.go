// Package memory implementa el puerto de persistencia sobre mapas en
// memoria. Se usa en las pruebas para sustituir a PostgreSQL; respeta los
// mismos centinelas de error y la misma atomicidad observable que la
// implementación real (un mutex por Store hace de cada operación compuesta
// una unidad de trabajo).
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/guregu/null.v4"

	"parqueadero/internal/domain"
	"parqueadero/internal/repository"
)

type Store struct {
	mu sync.Mutex

	cells     map[int]*domain.Cell
	vehicles  map[int]*domain.Vehicle
	sessions  map[int]*domain.Session
	rules     map[int]*domain.RestrictionRule
	incidents []domain.Incident
	users     map[int]*domain.User

	nextCell, nextVehicle, nextSession, nextRule, nextIncident, nextUser int
}

func NewStore() *Store {
	return &Store{
		cells:    make(map[int]*domain.Cell),
		vehicles: make(map[int]*domain.Vehicle),
		sessions: make(map[int]*domain.Session),
		rules:    make(map[int]*domain.RestrictionRule),
		users:    make(map[int]*domain.User),
	}
}

func (s *Store) Cells() repository.CellRepository               { return &cellStore{s} }
func (s *Store) Vehicles() repository.VehicleRepository         { return &vehicleStore{s} }
func (s *Store) Sessions() repository.SessionRepository         { return &sessionStore{s} }
func (s *Store) History() repository.HistoryRepository          { return &historyStore{s} }
func (s *Store) Restrictions() repository.RestrictionRepository { return &restrictionStore{s} }
func (s *Store) Incidents() repository.IncidentRepository       { return &incidentStore{s} }
func (s *Store) Users() repository.UserRepository               { return &userStore{s} }

// --- celdas ---

type cellStore struct{ s *Store }

func (r *cellStore) Create(_ context.Context, cell *domain.Cell) (*domain.Cell, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.cells {
		if c.Name == cell.Name {
			return nil, fmt.Errorf("%w: ya existe una celda con nombre '%s'", repository.ErrDuplicateEntry, cell.Name)
		}
	}
	r.s.nextCell++
	now := time.Now().UTC()
	cell.ID = r.s.nextCell
	cell.Status = domain.CellFree
	cell.Active = true
	cell.CreatedAt = now
	cell.UpdatedAt = now
	copied := *cell
	r.s.cells[cell.ID] = &copied
	return cell, nil
}

func (r *cellStore) FindByID(_ context.Context, id int) (*domain.Cell, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cell, ok := r.s.cells[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *cell
	return &copied, nil
}

func (r *cellStore) FindAll(_ context.Context) ([]domain.Cell, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var cells []domain.Cell
	for _, cell := range r.s.cells {
		if cell.Active {
			cells = append(cells, *cell)
		}
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].ID < cells[j].ID })
	return cells, nil
}

func (r *cellStore) Retire(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cell, ok := r.s.cells[id]
	if !ok {
		return repository.ErrNotFound
	}
	if cell.Status == domain.CellOccupied {
		return repository.ErrCellOccupied
	}
	cell.Active = false
	cell.UpdatedAt = time.Now().UTC()
	return nil
}

// --- vehículos ---

type vehicleStore struct{ s *Store }

func (r *vehicleStore) Create(_ context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vehicles {
		if v.Plate == vehicle.Plate {
			return nil, fmt.Errorf("%w: la placa '%s' ya está registrada", repository.ErrDuplicateEntry, vehicle.Plate)
		}
	}
	r.s.nextVehicle++
	now := time.Now().UTC()
	vehicle.ID = r.s.nextVehicle
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now
	copied := *vehicle
	r.s.vehicles[vehicle.ID] = &copied
	return vehicle, nil
}

func (r *vehicleStore) FindByPlate(_ context.Context, plate string) (*domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vehicles {
		if v.Plate == plate {
			copied := *v
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *vehicleStore) FindByID(_ context.Context, id int) (*domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vehicle, ok := r.s.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *vehicle
	return &copied, nil
}

func (r *vehicleStore) FindAll(_ context.Context) ([]domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var vehicles []domain.Vehicle
	for _, v := range r.s.vehicles {
		vehicles = append(vehicles, *v)
	}
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].Plate < vehicles[j].Plate })
	return vehicles, nil
}

// --- entradas ---

type sessionStore struct{ s *Store }

func (r *sessionStore) OpenWithCell(_ context.Context, vehicleID int, vehicleType string, entryTime time.Time, userID null.Int) (*domain.Session, *domain.Cell, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Los chequeos de duplicado van antes del reclamo de celda: si fallan,
	// ninguna celda cambia de estado.
	for _, sess := range r.s.sessions {
		if !sess.ExitTime.Valid && sess.VehicleID == vehicleID {
			return nil, nil, fmt.Errorf("%w: el vehículo ya tiene una entrada abierta", repository.ErrDuplicateEntry)
		}
	}

	var claimed *domain.Cell
	for _, cell := range r.s.cells {
		if cell.Active && cell.Status == domain.CellFree && cell.VehicleType == vehicleType {
			if claimed == nil || cell.ID < claimed.ID {
				claimed = cell
			}
		}
	}
	if claimed == nil {
		return nil, nil, repository.ErrNoFreeCell
	}

	claimed.Status = domain.CellOccupied
	claimed.UpdatedAt = time.Now().UTC()

	r.s.nextSession++
	now := time.Now().UTC()
	session := &domain.Session{
		ID:        r.s.nextSession,
		VehicleID: vehicleID,
		CellID:    claimed.ID,
		UserID:    userID,
		EntryTime: entryTime.UTC(),
		Status:    domain.SessionOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	copied := *session
	r.s.sessions[session.ID] = &copied
	cellCopy := *claimed
	return session, &cellCopy, nil
}

func (r *sessionStore) CloseAndFreeCell(_ context.Context, sessionID int, exitTime time.Time, durationSeconds int64) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[sessionID]
	if !ok || session.ExitTime.Valid {
		return nil, repository.ErrNoOpenSession
	}

	session.ExitTime = null.TimeFrom(exitTime.UTC())
	session.DurationSeconds = null.IntFrom(durationSeconds)
	session.Status = domain.SessionClosed
	session.UpdatedAt = time.Now().UTC()

	if cell, ok := r.s.cells[session.CellID]; ok {
		cell.Status = domain.CellFree
		cell.UpdatedAt = session.UpdatedAt
	}

	copied := *session
	return &copied, nil
}

func (r *sessionStore) FindByID(_ context.Context, id int) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	session, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *sessionStore) FindOpenByVehicleID(_ context.Context, vehicleID int) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		if session.VehicleID == vehicleID && !session.ExitTime.Valid {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repository.ErrNoOpenSession
}

func (r *sessionStore) FindOpenByCellID(_ context.Context, cellID int) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, session := range r.s.sessions {
		if session.CellID == cellID && !session.ExitTime.Valid {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repository.ErrNoOpenSession
}

func (r *sessionStore) FindParked(_ context.Context) ([]domain.ParkedVehicleDTO, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var parked []domain.ParkedVehicleDTO
	for _, session := range r.s.sessions {
		if session.ExitTime.Valid {
			continue
		}
		parked = append(parked, domain.ParkedVehicleDTO{
			SessionID: session.ID,
			Plate:     r.s.plateOf(session.VehicleID),
			CellName:  r.s.cellNameOf(session.CellID),
			EntryTime: session.EntryTime,
		})
	}
	sort.Slice(parked, func(i, j int) bool { return parked[i].EntryTime.After(parked[j].EntryTime) })
	return parked, nil
}

// --- historial ---

type historyStore struct{ s *Store }

func (r *historyStore) FindAll(_ context.Context) ([]domain.HistoryRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var records []domain.HistoryRecord
	for _, session := range r.s.sessions {
		records = append(records, domain.HistoryRecord{
			SessionID:       session.ID,
			EntryTime:       session.EntryTime,
			ExitTime:        session.ExitTime,
			DurationSeconds: session.DurationSeconds,
			Plate:           r.s.plateOf(session.VehicleID),
			CellName:        r.s.cellNameOf(session.CellID),
			UserName:        r.s.userNameOf(session.UserID),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].EntryTime.After(records[j].EntryTime) })
	return records, nil
}

// --- pico y placa ---

type restrictionStore struct{ s *Store }

func (r *restrictionStore) Create(_ context.Context, rule *domain.RestrictionRule) (*domain.RestrictionRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextRule++
	rule.ID = r.s.nextRule
	rule.CreatedAt = time.Now().UTC()
	copied := *rule
	r.s.rules[rule.ID] = &copied
	return rule, nil
}

func (r *restrictionStore) FindForDay(_ context.Context, vehicleType string, day string) ([]domain.RestrictionRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rules []domain.RestrictionRule
	for _, rule := range r.s.rules {
		if rule.VehicleType == vehicleType && rule.Day == day {
			rules = append(rules, *rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

func (r *restrictionStore) FindAll(_ context.Context) ([]domain.RestrictionRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rules []domain.RestrictionRule
	for _, rule := range r.s.rules {
		rules = append(rules, *rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

func (r *restrictionStore) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.rules, id)
	return nil
}

// --- incidencias ---

type incidentStore struct{ s *Store }

func (r *incidentStore) Create(_ context.Context, incident *domain.Incident) (*domain.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextIncident++
	incident.ID = r.s.nextIncident
	incident.CreatedAt = time.Now().UTC()
	r.s.incidents = append(r.s.incidents, *incident)
	return incident, nil
}

func (r *incidentStore) FindAll(_ context.Context) ([]domain.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	incidents := make([]domain.Incident, len(r.s.incidents))
	copy(incidents, r.s.incidents)
	sort.Slice(incidents, func(i, j int) bool { return incidents[i].ReportedAt.After(incidents[j].ReportedAt) })
	return incidents, nil
}

// --- usuarios ---

type userStore struct{ s *Store }

func (r *userStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email || u.DocumentNumber == user.DocumentNumber {
			return nil, fmt.Errorf("%w: el correo o el número de documento ya están registrados", repository.ErrDuplicateEntry)
		}
	}
	r.s.nextUser++
	now := time.Now().UTC()
	user.ID = r.s.nextUser
	user.CreatedAt = now
	user.UpdatedAt = now
	copied := *user
	r.s.users[user.ID] = &copied
	return user, nil
}

func (r *userStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userStore) FindByID(_ context.Context, id int) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// Helpers de resolución; el llamador debe tener el mutex tomado.

func (s *Store) plateOf(vehicleID int) string {
	if v, ok := s.vehicles[vehicleID]; ok {
		return v.Plate
	}
	return domain.UnknownMarker
}

func (s *Store) cellNameOf(cellID int) string {
	if c, ok := s.cells[cellID]; ok {
		return c.Name
	}
	return domain.UnknownMarker
}

func (s *Store) userNameOf(userID null.Int) string {
	if !userID.Valid {
		return domain.UnknownMarker
	}
	if u, ok := s.users[int(userID.Int64)]; ok {
		return strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return domain.UnknownMarker
}
