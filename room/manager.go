// room/manager.go
package room

import (
	"encoding/json"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/models"
	"github.com/Asvera/king-minister-game/network"
)

// Manager owns the set of active rooms. Rooms are created only from a full
// matchmaking queue and are never joinable afterwards.
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
	deps  Deps

	gamesCompleted atomic.Int64
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		deps:  deps,
	}
}

// CreateGame seats the given participants in a fresh room and starts round
// one. Seating is two-phase: every candidate's transport is re-validated
// here, and any failure aborts the whole room: survivors are notified and
// dropped, never partially seated or re-queued.
func (m *Manager) CreateGame(seatIDs []string, notifier Notifier) (*Room, error) {
	for _, id := range seatIDs {
		if !m.deps.Registry.Exists(id) || !m.deps.Sessions.IsLive(id) {
			logger.Log.Warnf("aborting room creation: participant %s has no live transport", id)
			m.notifySeatingAbort(seatIDs, notifier)
			return nil, ErrSeatingFailed
		}
	}

	r := &Room{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		seats:     append([]string(nil), seatIDs...),
		roles:     make(map[string]models.Role, len(seatIDs)),
		scores:    make(map[string]int, len(seatIDs)),
		round:     1,
		notifier:  notifier,
		deps:      m.deps,
		manager:   m,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	r.mu.Lock()
	m.mutex.Lock()
	m.rooms[r.ID] = r
	m.mutex.Unlock()

	r.begin()
	r.mu.Unlock()

	return r, nil
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[id]
	return r, exists
}

// RemoveRoom closes and forgets a room. Closing cancels any pending round
// transition.
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	r, exists := m.rooms[id]
	if exists {
		delete(m.rooms, id)
	}
	m.mutex.Unlock()

	if exists {
		r.Close()
		logger.Log.Infof("room %s removed", id)
	}
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// GamesCompleted reports how many games ran to their final round.
func (m *Manager) GamesCompleted() int64 {
	return m.gamesCompleted.Load()
}

func (m *Manager) noteGameCompleted() {
	m.gamesCompleted.Add(1)
	if m.deps.Metrics != nil {
		m.deps.Metrics.GameFinished()
	}
}

func (m *Manager) notifySeatingAbort(seatIDs []string, notifier Notifier) {
	data, err := json.Marshal(models.GameInterrupted{
		Message: "Game could not be started. Please join again.",
	})
	if err != nil {
		return
	}
	for _, id := range seatIDs {
		if m.deps.Sessions.IsLive(id) {
			_ = notifier.NotifyPlayer(id, network.MsgTypeGameInterrupted, data)
		}
	}
}
