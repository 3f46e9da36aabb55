package network

// Message IDs. 1xx/2xx are client -> server, 3xx/4xx are server -> client.
const (
	MsgTypeHeartbeat     = 1
	MsgTypeJoinGame      = 101
	MsgTypeMinisterGuess = 201

	MsgTypeQueueStatus     = 301
	MsgTypeGameStarted     = 303
	MsgTypeRoundStarted    = 304
	MsgTypeActionRequired  = 305
	MsgTypeRoundResult     = 306
	MsgTypeGameInterrupted = 307
	MsgTypeInvalidAction   = 401
)
