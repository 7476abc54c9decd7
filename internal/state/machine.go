package state

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"parqueadero/internal/domain"
)

// Eventos del ciclo de vida de una entrada.
const (
	EventClose = "registrar_salida"
)

// SessionMachine encapsula las transiciones válidas de una entrada:
// abierta -> cerrada, y cerrada es terminal. Cualquier otra transición
// es un error de programación o una doble salida.
type SessionMachine struct {
	fsm *fsm.FSM
}

func NewSessionMachine(current domain.SessionStatus) *SessionMachine {
	return &SessionMachine{
		fsm: fsm.NewFSM(
			string(current),
			fsm.Events{
				{Name: EventClose, Src: []string{string(domain.SessionOpen)}, Dst: string(domain.SessionClosed)},
			},
			fsm.Callbacks{},
		),
	}
}

func (m *SessionMachine) Current() domain.SessionStatus {
	return domain.SessionStatus(m.fsm.Current())
}

func (m *SessionMachine) CanClose() bool {
	return m.fsm.Can(EventClose)
}

// Close dispara la salida. Falla si la entrada ya estaba cerrada.
func (m *SessionMachine) Close(ctx context.Context) error {
	if err := m.fsm.Event(ctx, EventClose); err != nil {
		return fmt.Errorf("transición %s desde %q: %w", EventClose, m.fsm.Current(), err)
	}
	return nil
}
