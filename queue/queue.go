// queue/queue.go
package queue

import (
	"encoding/json"
	"sync"

	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/models"
	"github.com/Asvera/king-minister-game/network"
	"github.com/Asvera/king-minister-game/registry"
	"github.com/Asvera/king-minister-game/session"
)

// Notifier sends queue status updates to individual waiting players.
type Notifier interface {
	NotifyPlayer(sessionID string, msgID uint16, data []byte) error
}

// Seater receives a full seat list once the queue reaches capacity. The ids
// have already been removed from the queue when SeatPlayers runs.
type Seater interface {
	SeatPlayers(seatIDs []string)
}

// Queue is the ordered matchmaking pool. A participant is never in the
// queue and seated in a room at the same time.
type Queue struct {
	waiting  []string
	seating  map[string]bool
	capacity int

	registry *registry.Registry
	sessions *session.Manager
	notifier Notifier
	seater   Seater
	mutex    sync.Mutex
}

func New(capacity int, reg *registry.Registry, sessions *session.Manager, notifier Notifier) *Queue {
	return &Queue{
		waiting:  make([]string, 0, capacity),
		seating:  make(map[string]bool),
		capacity: capacity,
		registry: reg,
		sessions: sessions,
		notifier: notifier,
	}
}

// SetSeater wires the component that turns a full queue into a room. Must
// be called before the first join request.
func (q *Queue) SetSeater(s Seater) {
	q.seater = s
}

// RequestJoin appends a participant to the waiting pool. Precondition
// violations are no-ops, not errors: an unknown id gets an invalid action
// notice, a seated or mid-seating participant is ignored, a duplicate
// request just re-sends the depth.
func (q *Queue) RequestJoin(id string) {
	var seatIDs []string

	q.mutex.Lock()

	p, exists := q.registry.Get(id)
	if !exists {
		logger.Log.Warnf("join request from unknown participant %s ignored", id)
		q.notifyInvalid(id, "unknown participant")
		q.mutex.Unlock()
		return
	}
	if p.RoomID != "" {
		logger.Log.Infof("participant %s already in room %s, join request ignored", id, p.RoomID)
		q.mutex.Unlock()
		return
	}
	if q.seating[id] {
		logger.Log.Infof("participant %s is being seated, join request ignored", id)
		q.mutex.Unlock()
		return
	}
	if q.contains(id) {
		logger.Log.Infof("participant %s already waiting, re-sending queue status", id)
		q.notifyStatus(id)
		q.mutex.Unlock()
		return
	}

	q.waiting = append(q.waiting, id)
	logger.Log.Infof("participant %s queued (%d/%d)", id, len(q.waiting), q.capacity)
	q.notifyStatus(id)

	if len(q.waiting) >= q.capacity {
		// Stale entries (registry or transport gone) are dropped before
		// seating; arrival order is preserved throughout.
		filtered := q.waiting[:0:0]
		for _, wid := range q.waiting {
			if q.registry.Exists(wid) && q.sessions.IsLive(wid) {
				filtered = append(filtered, wid)
			}
		}

		if len(filtered) >= q.capacity {
			seatIDs = append([]string(nil), filtered[:q.capacity]...)
			q.waiting = append([]string(nil), filtered[q.capacity:]...)
			// Reserved until seating either commits a room id or aborts.
			// A join request in that window would otherwise pass every
			// precondition and leave the participant queued and seated.
			for _, sid := range seatIDs {
				q.seating[sid] = true
			}
		} else {
			q.waiting = filtered
			q.notifyAll()
		}
	}
	q.mutex.Unlock()

	if seatIDs != nil {
		q.seater.SeatPlayers(seatIDs)
		q.mutex.Lock()
		for _, sid := range seatIDs {
			delete(q.seating, sid)
		}
		q.mutex.Unlock()
	}
}

// Remove drops a disconnected participant and tells everyone still waiting
// the new depth. Returns whether the id was present.
func (q *Queue) Remove(id string) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for i, wid := range q.waiting {
		if wid == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			logger.Log.Infof("participant %s removed from queue (%d waiting)", id, len(q.waiting))
			q.notifyAll()
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.waiting)
}

func (q *Queue) Contains(id string) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.contains(id)
}

func (q *Queue) contains(id string) bool {
	for _, wid := range q.waiting {
		if wid == id {
			return true
		}
	}
	return false
}

func (q *Queue) notifyStatus(id string) {
	data, err := json.Marshal(models.QueueStatus{Current: len(q.waiting), Needed: q.capacity})
	if err != nil {
		return
	}
	if err := q.notifier.NotifyPlayer(id, network.MsgTypeQueueStatus, data); err != nil {
		logger.Log.Debugf("queue status to %s failed: %v", id, err)
	}
}

// notifyInvalid tells the requester why nothing happened. The transport can
// outlive the registry entry, so this is best effort.
func (q *Queue) notifyInvalid(id, msg string) {
	data, err := json.Marshal(models.InvalidAction{Message: msg})
	if err != nil {
		return
	}
	if err := q.notifier.NotifyPlayer(id, network.MsgTypeInvalidAction, data); err != nil {
		logger.Log.Debugf("invalid action notice to %s failed: %v", id, err)
	}
}

func (q *Queue) notifyAll() {
	for _, wid := range q.waiting {
		q.notifyStatus(wid)
	}
}
