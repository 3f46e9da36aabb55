// registry/registry.go
package registry

import (
	"errors"
	"sync"

	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/models"
)

var ErrNotFound = errors.New("participant not found")

// Participant is the registry's record of one connected player. Score and
// role are mutated only by the room currently holding the participant.
type Participant struct {
	ID     string
	Score  int
	Role   models.Role
	RoomID string
}

// Registry owns the records of all currently connected participants. No
// other component may assume a participant exists without checking here.
type Registry struct {
	participants map[string]*Participant
	mutex        sync.RWMutex
}

func New() *Registry {
	return &Registry{
		participants: make(map[string]*Participant),
	}
}

// Register creates a fresh record for id. A second Register for a live id
// keeps the existing record untouched; connection ids are one-shot, so this
// only happens on a duplicate-connect race and is just logged.
func (r *Registry) Register(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.participants[id]; exists {
		logger.Log.Warnf("participant %s already registered, keeping existing record", id)
		return
	}
	r.participants[id] = &Participant{ID: id}
}

// Unregister removes the record. Must run after queue and room cleanup for
// the id, since those cleanups read the record.
func (r *Registry) Unregister(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.participants, id)
}

// Get returns a copy of the record.
func (r *Registry) Get(id string) (Participant, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, exists := r.participants[id]
	if !exists {
		return Participant{}, false
	}
	return *p, true
}

func (r *Registry) Exists(id string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, exists := r.participants[id]
	return exists
}

func (r *Registry) SetScore(id string, score int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if p, exists := r.participants[id]; exists {
		p.Score = score
	}
}

func (r *Registry) AddScore(id string, delta int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if p, exists := r.participants[id]; exists {
		p.Score += delta
	}
}

func (r *Registry) SetRole(id string, role models.Role) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if p, exists := r.participants[id]; exists {
		p.Role = role
	}
}

func (r *Registry) SetRoomID(id, roomID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if p, exists := r.participants[id]; exists {
		p.RoomID = roomID
	}
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.participants)
}
