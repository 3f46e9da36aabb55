package state

import (
	"errors"
	"sync"
)

// State is one phase of a room's lifecycle. OnEnter runs any notifications
// the phase owes its players; phases are driven by discrete events (a guess,
// a timer firing, a disconnect), never by a tick loop.
type State interface {
	GetID() string
	OnEnter()
	OnExit()
}

// StateMachine guards phase transitions for a single room.
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	Allow(fromID, toID string)
}

// ErrTransitionNotAllowed is returned when a transition was never declared.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine only permits transitions declared with Allow. A state
// with no outgoing declarations is terminal.
type BaseStateMachine struct {
	currentState State
	allowed      map[string]map[string]bool // fromID -> toID -> true
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		allowed:      make(map[string]map[string]bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) Allow(fromID, toID string) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.allowed[fromID]; !exists {
		sm.allowed[fromID] = make(map[string]bool)
	}
	sm.allowed[fromID][toID] = true
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	if !sm.allowed[currentID][newID] {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}
