package room

// Notifier is the outbound boundary a room speaks through. Sends are
// fire-and-forget; delivery belongs to the transport layer. Defined here so
// the broadcast package can depend on room and not the other way around.
type Notifier interface {
	NotifyPlayer(sessionID string, msgID uint16, data []byte) error
	NotifySeats(sessionIDs []string, msgID uint16, data []byte)
}

// Metrics receives room lifecycle events worth counting. May be nil.
type Metrics interface {
	GameFinished()
}
