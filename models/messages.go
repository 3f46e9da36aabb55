// models/messages.go
package models

// Wire payloads. Every message body on the websocket is one of these,
// JSON-encoded inside the framed packet.

// QueueStatus tells a waiting player how full the matchmaking queue is.
type QueueStatus struct {
	Current int `json:"current"`
	Needed  int `json:"needed"`
}

// PlayerRef identifies a seated player in broadcast payloads.
type PlayerRef struct {
	ID string `json:"id"`
}

// GameStarted is sent once to each seated player when a room forms.
type GameStarted struct {
	RoomID      string      `json:"roomId"`
	YourRole    Role        `json:"yourRole"`
	YourScore   int         `json:"yourScore"`
	KingID      string      `json:"kingId"`
	Players     []PlayerRef `json:"players"`
	Round       int         `json:"round"`
	TotalRounds int         `json:"totalRounds"`
}

// RoundStarted is sent to each live player when roles are re-dealt.
type RoundStarted struct {
	Round    int            `json:"round"`
	YourRole Role           `json:"yourRole"`
	KingID   string         `json:"kingId"`
	Scores   map[string]int `json:"scores"`
}

// ActionRequired prompts a role to act.
type ActionRequired struct {
	ForRole Role   `json:"forRole"`
	Message string `json:"message"`
}

// MinisterGuess is the single inbound game action.
type MinisterGuess struct {
	RoomID          string `json:"roomId"`
	GuessedThiefID  string `json:"guessedThiefId"`
	GuessedPoliceID string `json:"guessedPoliceId"`
}

// GuessSummary echoes the minister's guess back in the round result.
type GuessSummary struct {
	Thief  string `json:"thief"`
	Police string `json:"police"`
}

// RoundResult is broadcast to the whole room after a guess resolves.
type RoundResult struct {
	Round           int            `json:"round"`
	MinisterGuess   GuessSummary   `json:"ministerGuess"`
	ActualThief     string         `json:"actualThief"`
	ActualPolice    string         `json:"actualPolice"`
	MinisterCorrect bool           `json:"ministerCorrect"`
	Scores          map[string]int `json:"scores"`
	IsGameOver      bool           `json:"isGameOver"`
}

type GameInterrupted struct {
	Message string `json:"message"`
}

type InvalidAction struct {
	Message string `json:"message"`
}
