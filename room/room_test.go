package room

import (
	"encoding/json"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Asvera/king-minister-game/config"
	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/models"
	"github.com/Asvera/king-minister-game/network"
	"github.com/Asvera/king-minister-game/registry"
	"github.com/Asvera/king-minister-game/services"
	"github.com/Asvera/king-minister-game/session"
	"github.com/Asvera/king-minister-game/timer"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

type notice struct {
	playerID string
	msgID    uint16
	data     []byte
}

// RecordingNotifier captures every outbound notification for assertions.
type RecordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *RecordingNotifier) NotifyPlayer(sessionID string, msgID uint16, data []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{playerID: sessionID, msgID: msgID, data: data})
	return nil
}

func (n *RecordingNotifier) NotifySeats(sessionIDs []string, msgID uint16, data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range sessionIDs {
		n.notices = append(n.notices, notice{playerID: id, msgID: msgID, data: data})
	}
}

func (n *RecordingNotifier) byType(msgID uint16) []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notice
	for _, nt := range n.notices {
		if nt.msgID == msgID {
			out = append(out, nt)
		}
	}
	return out
}

func (n *RecordingNotifier) lastFor(playerID string, msgID uint16) (notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.notices) - 1; i >= 0; i-- {
		if n.notices[i].playerID == playerID && n.notices[i].msgID == msgID {
			return n.notices[i], true
		}
	}
	return notice{}, false
}

func (n *RecordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = nil
}

type testEnv struct {
	registry *registry.Registry
	sessions *session.Manager
	timers   *timer.TimerManager
	notifier *RecordingNotifier
	manager  *Manager
}

// newTestEnv builds a manager whose round delay is effectively infinite so
// tests drive advanceRound explicitly instead of racing the timer pump.
func newTestEnv(totalRounds int) *testEnv {
	reg := registry.New()
	sessions := session.NewManager()
	timers := timer.NewTimerManager()
	notifier := &RecordingNotifier{}

	manager := NewManager(Deps{
		Registry: reg,
		Sessions: sessions,
		Scores:   services.NewScoreService(reg),
		Timers:   timers,
		Game: config.GameConfig{
			RoomSize:       4,
			TotalRounds:    totalRounds,
			KingBonus:      1000,
			NextRoundDelay: time.Hour,
		},
	})

	return &testEnv{
		registry: reg,
		sessions: sessions,
		timers:   timers,
		notifier: notifier,
		manager:  manager,
	}
}

func (e *testEnv) connect(ids ...string) {
	for _, id := range ids {
		e.sessions.Add(session.NewSession(id, &MockConnection{}))
		e.registry.Register(id)
	}
}

var seatIDs = []string{"p1", "p2", "p3", "p4"}

func (e *testEnv) startGame(t *testing.T) *Room {
	t.Helper()
	e.connect(seatIDs...)
	r, err := e.manager.CreateGame(seatIDs, e.notifier)
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	return r
}

func TestCreateGame_AssignsRoleBijection(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)

	if r.Phase() != PhaseMinisterTurn {
		t.Errorf("Expected phase %s, got %s", PhaseMinisterTurn, r.Phase())
	}
	if r.Round() != 1 {
		t.Errorf("Expected round 1, got %d", r.Round())
	}

	seen := make(map[models.Role]int)
	for _, id := range seatIDs {
		seen[r.RoleOf(id)]++
	}
	for _, role := range models.AllRoles() {
		if seen[role] != 1 {
			t.Errorf("Expected role %s to be held exactly once, held %d times", role, seen[role])
		}
	}

	king, _, _, _ := r.RoleHolders()
	for _, id := range seatIDs {
		nt, ok := env.notifier.lastFor(id, network.MsgTypeGameStarted)
		if !ok {
			t.Fatalf("Player %s did not receive game_started", id)
		}
		var started models.GameStarted
		if err := json.Unmarshal(nt.data, &started); err != nil {
			t.Fatalf("Bad game_started payload: %v", err)
		}
		if started.Round != 1 || started.TotalRounds != 4 {
			t.Errorf("Expected round 1/4, got %d/%d", started.Round, started.TotalRounds)
		}
		if started.KingID != king {
			t.Errorf("Expected kingId %s, got %s", king, started.KingID)
		}
		if started.YourRole != r.RoleOf(id) {
			t.Errorf("Player %s told role %s but holds %s", id, started.YourRole, r.RoleOf(id))
		}
		if len(started.Players) != 4 {
			t.Errorf("Expected 4 players in seat list, got %d", len(started.Players))
		}

		p, _ := env.registry.Get(id)
		if p.RoomID != r.ID {
			t.Errorf("Registry room for %s is %q, want %q", id, p.RoomID, r.ID)
		}
		wantScore := 0
		if id == king {
			wantScore = 1000
		}
		if p.Score != wantScore {
			t.Errorf("Expected score %d for %s, got %d", wantScore, id, p.Score)
		}
	}

	if prompts := env.notifier.byType(network.MsgTypeActionRequired); len(prompts) == 0 {
		t.Error("Expected action_required prompts after seating")
	}
}

func TestCreateGame_AbortsOnDeadTransport(t *testing.T) {
	env := newTestEnv(4)
	env.connect("p1", "p2", "p3")
	env.registry.Register("p4") // registered but transport already gone

	_, err := env.manager.CreateGame(seatIDs, env.notifier)
	if err != ErrSeatingFailed {
		t.Fatalf("Expected ErrSeatingFailed, got %v", err)
	}
	if env.manager.Count() != 0 {
		t.Errorf("Expected no rooms after aborted seating, got %d", env.manager.Count())
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if _, ok := env.notifier.lastFor(id, network.MsgTypeGameInterrupted); !ok {
			t.Errorf("Live candidate %s did not receive game_interrupted", id)
		}
	}
}

func TestHandleGuess_CorrectScoresMinisterAndPolice(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	king, minister, thief, police := r.RoleHolders()

	err := r.HandleGuess(minister, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: thief, GuessedPoliceID: police,
	})
	if err != nil {
		t.Fatalf("Valid guess rejected: %v", err)
	}

	results := env.notifier.byType(network.MsgTypeRoundResult)
	if len(results) != 4 {
		t.Fatalf("Expected round_result for all 4 seats, got %d", len(results))
	}
	var result models.RoundResult
	if err := json.Unmarshal(results[0].data, &result); err != nil {
		t.Fatalf("Bad round_result payload: %v", err)
	}
	if !result.MinisterCorrect {
		t.Error("Expected ministerCorrect=true")
	}
	if result.IsGameOver {
		t.Error("Round 1 of 4 should not end the game")
	}
	if result.ActualThief != thief || result.ActualPolice != police {
		t.Errorf("Result names wrong culprits: %s/%s", result.ActualThief, result.ActualPolice)
	}
	if result.Scores[minister] != 500 || result.Scores[police] != 200 ||
		result.Scores[thief] != 0 || result.Scores[king] != 1000 {
		t.Errorf("Wrong scoreboard after correct guess: %v", result.Scores)
	}

	if r.Phase() != PhaseResults {
		t.Errorf("Expected phase %s, got %s", PhaseResults, r.Phase())
	}
	if r.timerID == 0 {
		t.Error("Expected a next-round timer to be scheduled")
	}
}

func TestHandleGuess_IncorrectScoresPoliceAndThief(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	king, minister, thief, police := r.RoleHolders()

	// Swapping the two culprits is a legal but wrong guess.
	err := r.HandleGuess(minister, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: police, GuessedPoliceID: thief,
	})
	if err != nil {
		t.Fatalf("Valid guess rejected: %v", err)
	}

	nt, _ := env.notifier.lastFor(minister, network.MsgTypeRoundResult)
	var result models.RoundResult
	if err := json.Unmarshal(nt.data, &result); err != nil {
		t.Fatalf("Bad round_result payload: %v", err)
	}
	if result.MinisterCorrect {
		t.Error("Expected ministerCorrect=false")
	}
	if result.Scores[police] != 400 || result.Scores[thief] != 200 ||
		result.Scores[minister] != 0 || result.Scores[king] != 1000 {
		t.Errorf("Wrong scoreboard after incorrect guess: %v", result.Scores)
	}
}

func TestHandleGuess_RejectsNonMinister(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	_, _, thief, police := r.RoleHolders()

	err := r.HandleGuess(thief, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: thief, GuessedPoliceID: police,
	})
	if err != ErrInvalidAction {
		t.Fatalf("Expected ErrInvalidAction, got %v", err)
	}
	if _, ok := env.notifier.lastFor(thief, network.MsgTypeInvalidAction); !ok {
		t.Error("Submitter did not receive invalid_action")
	}
	if r.Phase() != PhaseMinisterTurn {
		t.Errorf("Rejected guess must not change state, phase is %s", r.Phase())
	}
}

func TestHandleGuess_RejectsKingAsTarget(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	king, minister, _, police := r.RoleHolders()

	err := r.HandleGuess(minister, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: king, GuessedPoliceID: police,
	})
	if err != ErrInvalidAction {
		t.Fatalf("Expected ErrInvalidAction, got %v", err)
	}
	if r.Phase() != PhaseMinisterTurn {
		t.Errorf("Rejected guess must not change state, phase is %s", r.Phase())
	}
	p, _ := env.registry.Get(police)
	if p.Score != 0 {
		t.Errorf("Rejected guess must not change scores, police has %d", p.Score)
	}
}

func TestHandleGuess_RejectsDuplicateTargets(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	_, minister, thief, _ := r.RoleHolders()

	err := r.HandleGuess(minister, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: thief, GuessedPoliceID: thief,
	})
	if err != ErrInvalidAction {
		t.Fatalf("Expected ErrInvalidAction, got %v", err)
	}
}

func TestHandleGuess_RejectsOutsideMinisterTurn(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	_, minister, thief, police := r.RoleHolders()

	guess := models.MinisterGuess{RoomID: r.ID, GuessedThiefID: thief, GuessedPoliceID: police}
	if err := r.HandleGuess(minister, guess); err != nil {
		t.Fatalf("First guess rejected: %v", err)
	}
	if err := r.HandleGuess(minister, guess); err != ErrInvalidAction {
		t.Fatalf("Guess during results should be rejected, got %v", err)
	}
}

func TestFinalRound_EndsGameWithoutTimer(t *testing.T) {
	env := newTestEnv(1)
	r := env.startGame(t)
	_, minister, thief, police := r.RoleHolders()

	err := r.HandleGuess(minister, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: thief, GuessedPoliceID: police,
	})
	if err != nil {
		t.Fatalf("Valid guess rejected: %v", err)
	}

	nt, _ := env.notifier.lastFor(minister, network.MsgTypeRoundResult)
	var result models.RoundResult
	if err := json.Unmarshal(nt.data, &result); err != nil {
		t.Fatalf("Bad round_result payload: %v", err)
	}
	if !result.IsGameOver {
		t.Error("Final round result must carry isGameOver=true")
	}
	if r.Phase() != PhaseGameOver {
		t.Errorf("Expected phase %s, got %s", PhaseGameOver, r.Phase())
	}
	if r.timerID != 0 {
		t.Error("No timer may be scheduled after the final round")
	}
	if env.manager.GamesCompleted() != 1 {
		t.Errorf("Expected 1 completed game, got %d", env.manager.GamesCompleted())
	}
}

func TestAdvanceRound_ReassignsRolesAndPrompts(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	_, minister, thief, police := r.RoleHolders()

	if err := r.HandleGuess(minister, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: thief, GuessedPoliceID: police,
	}); err != nil {
		t.Fatalf("Valid guess rejected: %v", err)
	}
	env.notifier.reset()

	r.advanceRound()

	if r.Round() != 2 {
		t.Errorf("Expected round 2, got %d", r.Round())
	}
	if r.Phase() != PhaseMinisterTurn {
		t.Errorf("Expected phase %s, got %s", PhaseMinisterTurn, r.Phase())
	}

	seen := make(map[models.Role]int)
	for _, id := range seatIDs {
		seen[r.RoleOf(id)]++

		nt, ok := env.notifier.lastFor(id, network.MsgTypeRoundStarted)
		if !ok {
			t.Fatalf("Player %s did not receive round_started", id)
		}
		var started models.RoundStarted
		if err := json.Unmarshal(nt.data, &started); err != nil {
			t.Fatalf("Bad round_started payload: %v", err)
		}
		if started.Round != 2 {
			t.Errorf("Expected round 2 in round_started, got %d", started.Round)
		}
		if started.YourRole != r.RoleOf(id) {
			t.Errorf("Player %s told role %s but holds %s", id, started.YourRole, r.RoleOf(id))
		}
	}
	for _, role := range models.AllRoles() {
		if seen[role] != 1 {
			t.Errorf("Round 2 role %s held %d times, want exactly once", role, seen[role])
		}
	}

	if prompts := env.notifier.byType(network.MsgTypeActionRequired); len(prompts) == 0 {
		t.Error("Expected fresh action_required prompts for round 2")
	}
}

func TestAdvanceRound_AbortsShortHanded(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	_, minister, thief, police := r.RoleHolders()

	if err := r.HandleGuess(minister, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: thief, GuessedPoliceID: police,
	}); err != nil {
		t.Fatalf("Valid guess rejected: %v", err)
	}

	env.sessions.Remove("p3")
	env.notifier.reset()

	r.advanceRound()

	if r.Phase() != PhaseGameOver {
		t.Errorf("Expected phase %s, got %s", PhaseGameOver, r.Phase())
	}
	if len(env.notifier.byType(network.MsgTypeGameInterrupted)) == 0 {
		t.Error("Survivors must be told the game was interrupted")
	}
	if len(env.notifier.byType(network.MsgTypeRoundStarted)) != 0 {
		t.Error("A short-handed room must not start another round")
	}
}

func TestAdvanceRound_NoOpAfterRemoval(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)
	_, minister, thief, police := r.RoleHolders()

	if err := r.HandleGuess(minister, models.MinisterGuess{
		RoomID: r.ID, GuessedThiefID: thief, GuessedPoliceID: police,
	}); err != nil {
		t.Fatalf("Valid guess rejected: %v", err)
	}

	env.manager.RemoveRoom(r.ID)
	env.notifier.reset()

	r.advanceRound()

	if len(env.notifier.byType(network.MsgTypeRoundStarted)) != 0 {
		t.Error("A removed room must never start another round")
	}
	if r.Round() != 1 {
		t.Errorf("Removed room's round counter moved to %d", r.Round())
	}
}

func TestHandleLeave_InterruptsActiveGame(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)

	env.sessions.Remove("p2")
	env.notifier.reset()

	if empty := r.HandleLeave("p2"); empty {
		t.Fatal("Room with remaining seats reported empty")
	}

	if r.Phase() != PhaseGameOver {
		t.Errorf("Expected phase %s, got %s", PhaseGameOver, r.Phase())
	}
	interruptions := env.notifier.byType(network.MsgTypeGameInterrupted)
	if len(interruptions) < 2 {
		t.Errorf("Expected departure notice plus insufficient-players notice, got %d messages", len(interruptions))
	}
	for _, id := range []string{"p1", "p3", "p4"} {
		if _, ok := env.notifier.lastFor(id, network.MsgTypeGameInterrupted); !ok {
			t.Errorf("Remaining player %s was not notified", id)
		}
	}
}

func TestHandleLeave_LastSeatEmptiesRoom(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)

	for i, id := range seatIDs {
		env.sessions.Remove(id)
		empty := r.HandleLeave(id)
		if i < len(seatIDs)-1 && empty {
			t.Fatalf("Room reported empty with %d seats left", len(seatIDs)-i-1)
		}
		if i == len(seatIDs)-1 && !empty {
			t.Fatal("Room with no seats left did not report empty")
		}
	}
}

func TestManager_RemoveRoom(t *testing.T) {
	env := newTestEnv(4)
	r := env.startGame(t)

	if _, exists := env.manager.GetRoom(r.ID); !exists {
		t.Fatal("GetRoom should find the created room")
	}
	env.manager.RemoveRoom(r.ID)
	if _, exists := env.manager.GetRoom(r.ID); exists {
		t.Fatal("GetRoom should not find a removed room")
	}
	if env.manager.Count() != 0 {
		t.Errorf("Expected 0 rooms, got %d", env.manager.Count())
	}
}
