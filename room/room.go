// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Asvera/king-minister-game/config"
	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/models"
	"github.com/Asvera/king-minister-game/network"
	"github.com/Asvera/king-minister-game/registry"
	"github.com/Asvera/king-minister-game/services"
	"github.com/Asvera/king-minister-game/session"
	"github.com/Asvera/king-minister-game/state"
	"github.com/Asvera/king-minister-game/timer"
)

// Room phases. Assigning is transient: it is only the machine's initial
// state while seats receive their roles, before the first minister turn.
const (
	PhaseAssigning    = "assigning"
	PhaseMinisterTurn = "minister_turn"
	PhaseResults      = "results"
	PhaseGameOver     = "game_over"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrSeatingFailed = errors.New("room seating failed")
)

// Deps are the collaborators a room mutates state through.
type Deps struct {
	Registry *registry.Registry
	Sessions *session.Manager
	Scores   *services.ScoreService
	Timers   *timer.TimerManager
	Game     config.GameConfig
	Metrics  Metrics
}

// Room is one isolated game instance: a fixed seat list, a role bijection
// re-dealt every round, and the round state machine. Every event handler
// holds mu for its full duration, so no two events interleave on one room.
type Room struct {
	ID        string
	CreatedAt time.Time

	seats    []string // creation order, shrinks only on disconnect
	roles    map[string]models.Role
	king     string
	minister string
	thief    string
	police   string
	scores   map[string]int // snapshot for broadcasts
	round    int

	machine  state.StateMachine
	notifier Notifier
	deps     Deps
	manager  *Manager
	rng      *rand.Rand
	timerID  int64
	closed   bool
	mu       sync.Mutex

	stAssigning    state.State
	stMinisterTurn state.State
	stResults      state.State
	stGameOver     state.State
}

// begin deals the first round. Caller holds r.mu.
func (r *Room) begin() {
	r.stAssigning = &assigningState{room: r}
	r.stMinisterTurn = &ministerTurnState{room: r}
	r.stResults = &resultsState{room: r}
	r.stGameOver = &gameOverState{room: r}

	machine := state.NewBaseStateMachine(r.stAssigning)
	machine.Allow(PhaseAssigning, PhaseMinisterTurn)
	machine.Allow(PhaseAssigning, PhaseGameOver)
	machine.Allow(PhaseMinisterTurn, PhaseResults)
	machine.Allow(PhaseMinisterTurn, PhaseGameOver)
	machine.Allow(PhaseResults, PhaseMinisterTurn)
	machine.Allow(PhaseResults, PhaseGameOver)
	r.machine = machine

	r.deps.Scores.ResetForGame(r.seats)
	r.assignRoles(r.seats)
	r.deps.Scores.ApplyKingBonus(r.king, r.deps.Game.KingBonus)
	for _, id := range r.seats {
		r.deps.Registry.SetRoomID(id, r.ID)
	}
	r.refreshScores()

	players := make([]models.PlayerRef, 0, len(r.seats))
	for _, id := range r.seats {
		players = append(players, models.PlayerRef{ID: id})
	}
	for _, id := range r.seats {
		r.sendTo(id, network.MsgTypeGameStarted, models.GameStarted{
			RoomID:      r.ID,
			YourRole:    r.roles[id],
			YourScore:   r.scores[id],
			KingID:      r.king,
			Players:     players,
			Round:       r.round,
			TotalRounds: r.deps.Game.TotalRounds,
		})
	}

	logger.Log.Infof("room %s started, roles assigned: %v", r.ID, r.roles)
	r.changeState(r.stMinisterTurn)
}

// HandleGuess processes the minister's guess for this room. Invalid
// submissions are rejected without any state change.
func (r *Room) HandleGuess(senderID string, guess models.MinisterGuess) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrInvalidAction
	}
	if r.phase() != PhaseMinisterTurn ||
		senderID != r.minister ||
		guess.GuessedThiefID == guess.GuessedPoliceID ||
		guess.GuessedThiefID == r.minister || guess.GuessedPoliceID == r.minister ||
		guess.GuessedThiefID == r.king || guess.GuessedPoliceID == r.king {
		logger.Log.Infof("room %s rejected guess from %s in phase %s", r.ID, senderID, r.phase())
		r.sendTo(senderID, network.MsgTypeInvalidAction, models.InvalidAction{Message: "Invalid action."})
		return ErrInvalidAction
	}

	// Partial credit is not a thing: both names must match.
	correct := guess.GuessedThiefID == r.thief && guess.GuessedPoliceID == r.police
	r.deps.Scores.ApplyGuessOutcome(correct, r.minister, r.police, r.thief)
	r.refreshScores()

	isGameOver := r.round >= r.deps.Game.TotalRounds
	r.broadcast(network.MsgTypeRoundResult, models.RoundResult{
		Round:           r.round,
		MinisterGuess:   models.GuessSummary{Thief: guess.GuessedThiefID, Police: guess.GuessedPoliceID},
		ActualThief:     r.thief,
		ActualPolice:    r.police,
		MinisterCorrect: correct,
		Scores:          r.scores,
		IsGameOver:      isGameOver,
	})
	r.changeState(r.stResults)

	if isGameOver {
		r.changeState(r.stGameOver)
		r.manager.noteGameCompleted()
		return nil
	}
	r.scheduleNextRound()
	return nil
}

// HandleLeave removes a disconnected participant from the room's seat
// bookkeeping. Returns true when no seats remain and the room should be
// deleted.
func (r *Room) HandleLeave(id string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeSeat(id)

	if r.phase() == PhaseGameOver {
		return len(r.seats) == 0
	}
	if len(r.seats) == 0 {
		return true
	}

	r.broadcast(network.MsgTypeGameInterrupted, models.GameInterrupted{
		Message: fmt.Sprintf("Player %s disconnected.", shortID(id)),
	})
	if len(r.liveSeats()) < r.deps.Game.RoomSize {
		r.broadcast(network.MsgTypeGameInterrupted, models.GameInterrupted{
			Message: "Game ended due to insufficient players.",
		})
		r.changeState(r.stGameOver)
	}
	return false
}

// advanceRound is the round scheduler's delayed transition. It re-validates
// the room at fire time: an abort between scheduling and firing must never
// be resurrected.
func (r *Room) advanceRound() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.phase() == PhaseGameOver {
		logger.Log.Infof("room %s next round aborted (inactive/over)", r.ID)
		return
	}

	r.round++
	live := r.liveSeats()
	if len(live) < r.deps.Game.RoomSize {
		logger.Log.Warnf("room %s has %d live players for round %d, ending game", r.ID, len(live), r.round)
		r.broadcast(network.MsgTypeGameInterrupted, models.GameInterrupted{
			Message: fmt.Sprintf("Not enough players to continue round %d. Game ended.", r.round),
		})
		r.changeState(r.stGameOver)
		return
	}

	r.assignRoles(live)
	for _, id := range live {
		r.sendTo(id, network.MsgTypeRoundStarted, models.RoundStarted{
			Round:    r.round,
			YourRole: r.roles[id],
			KingID:   r.king,
			Scores:   r.scores,
		})
	}
	r.changeState(r.stMinisterTurn)
}

// Close marks the room dead and drops any pending round timer. Further
// events and timer fires become no-ops.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	if r.timerID != 0 {
		r.deps.Timers.RemoveTimer(r.timerID)
	}
}

// --- accessors (external; take the room lock) ---

func (r *Room) Phase() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase()
}

func (r *Room) Round() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.round
}

func (r *Room) SeatIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seats := make([]string, len(r.seats))
	copy(seats, r.seats)
	return seats
}

func (r *Room) RoleOf(id string) models.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roles[id]
}

// RoleHolders returns the current king, minister, thief and police ids.
func (r *Room) RoleHolders() (king, minister, thief, police string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.king, r.minister, r.thief, r.police
}

func (r *Room) Scores() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := make(map[string]int, len(r.scores))
	for id, s := range r.scores {
		scores[id] = s
	}
	return scores
}

// --- internals (caller holds r.mu) ---

func (r *Room) phase() string {
	return r.machine.GetCurrentState().GetID()
}

func (r *Room) changeState(s state.State) {
	if err := r.machine.ChangeState(s); err != nil {
		logger.Log.Errorf("room %s: transition %s -> %s refused: %v", r.ID, r.phase(), s.GetID(), err)
	}
}

// assignRoles deals a uniform role bijection over the given seats.
func (r *Room) assignRoles(ids []string) {
	shuffled := models.ShuffledRoles(r.rng)
	for i, id := range ids {
		role := shuffled[i]
		r.roles[id] = role
		r.deps.Registry.SetRole(id, role)
		switch role {
		case models.RoleKing:
			r.king = id
		case models.RoleMinister:
			r.minister = id
		case models.RoleThief:
			r.thief = id
		case models.RolePolice:
			r.police = id
		}
	}
}

// liveSeats filters the seat list to ids with both a registry entry and a
// live transport.
func (r *Room) liveSeats() []string {
	live := make([]string, 0, len(r.seats))
	for _, id := range r.seats {
		if r.deps.Registry.Exists(id) && r.deps.Sessions.IsLive(id) {
			live = append(live, id)
		}
	}
	return live
}

func (r *Room) refreshScores() {
	r.scores = r.deps.Scores.Scoreboard(r.seats)
}

func (r *Room) removeSeat(id string) {
	for i, seat := range r.seats {
		if seat == id {
			r.seats = append(r.seats[:i], r.seats[i+1:]...)
			break
		}
	}
	delete(r.roles, id)
}

func (r *Room) scheduleNextRound() {
	r.timerID = r.deps.Timers.AddTimer(r.deps.Game.NextRoundDelay, 0, r.advanceRound)
}

func (r *Room) sendTo(id string, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("room %s: marshal for %s failed: %v", r.ID, id, err)
		return
	}
	if err := r.notifier.NotifyPlayer(id, msgID, data); err != nil {
		logger.Log.Debugf("room %s: notify %s failed: %v", r.ID, id, err)
	}
}

func (r *Room) broadcast(msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("room %s: marshal broadcast failed: %v", r.ID, err)
		return
	}
	r.notifier.NotifySeats(r.seats, msgID, data)
}

func shortID(id string) string {
	if len(id) > 4 {
		return id[:4]
	}
	return id
}

// --- phase states ---

type assigningState struct{ room *Room }

func (s *assigningState) GetID() string { return PhaseAssigning }
func (s *assigningState) OnEnter()      {}
func (s *assigningState) OnExit()       {}

// ministerTurnState prompts the acting roles on entry; it is the only phase
// in which a player action is accepted.
type ministerTurnState struct{ room *Room }

func (s *ministerTurnState) GetID() string { return PhaseMinisterTurn }

func (s *ministerTurnState) OnEnter() {
	r := s.room
	r.broadcast(network.MsgTypeActionRequired, models.ActionRequired{
		ForRole: models.RoleKing, Message: "King, tell the Minister to investigate.",
	})
	r.broadcast(network.MsgTypeActionRequired, models.ActionRequired{
		ForRole: models.RoleMinister, Message: "Minister, please identify the Thief and Police.",
	})
}

func (s *ministerTurnState) OnExit() {}

type resultsState struct{ room *Room }

func (s *resultsState) GetID() string { return PhaseResults }
func (s *resultsState) OnEnter()      {}
func (s *resultsState) OnExit()       {}

type gameOverState struct{ room *Room }

func (s *gameOverState) GetID() string { return PhaseGameOver }

func (s *gameOverState) OnEnter() {
	logger.Log.Infof("room %s game over", s.room.ID)
}

func (s *gameOverState) OnExit() {}
