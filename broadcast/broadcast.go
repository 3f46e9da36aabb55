// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/session"
)

var ErrSessionNotFound = errors.New("session not found")

// SeatBroadcaster delivers notifications to players over their sessions.
// It satisfies both room.Notifier and queue.Notifier. Delivery failures are
// logged and skipped: the game core treats sends as fire-and-forget.
type SeatBroadcaster struct {
	sessionManager *session.Manager
}

func NewSeatBroadcaster(sessionManager *session.Manager) *SeatBroadcaster {
	return &SeatBroadcaster{sessionManager: sessionManager}
}

func (b *SeatBroadcaster) NotifyPlayer(sessionID string, msgID uint16, data []byte) error {
	s, exists := b.sessionManager.Get(sessionID)
	if !exists {
		return ErrSessionNotFound
	}
	return s.Send(msgID, data)
}

func (b *SeatBroadcaster) NotifySeats(sessionIDs []string, msgID uint16, data []byte) {
	for _, id := range sessionIDs {
		s, exists := b.sessionManager.Get(id)
		if !exists {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Debugf("broadcast to %s failed: %v", id, err)
		}
	}
}
