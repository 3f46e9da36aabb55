package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Asvera/king-minister-game/broadcast"
	"github.com/Asvera/king-minister-game/config"
	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/models"
	"github.com/Asvera/king-minister-game/monitor"
	"github.com/Asvera/king-minister-game/network"
	"github.com/Asvera/king-minister-game/queue"
	"github.com/Asvera/king-minister-game/registry"
	"github.com/Asvera/king-minister-game/room"
	gamerpc "github.com/Asvera/king-minister-game/rpc"
	"github.com/Asvera/king-minister-game/services"
	"github.com/Asvera/king-minister-game/session"
	"github.com/Asvera/king-minister-game/timer"
)

// GameServer ties the transport to the matchmaking queue and room manager.
// It owns no game state itself: every event is routed to the component that
// does.
type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	registry       *registry.Registry
	sessionManager *session.Manager
	roomManager    *room.Manager
	matchQueue     *queue.Queue
	notifier       *broadcast.SeatBroadcaster
	timers         *timer.TimerManager
	monitor        *monitor.Monitor
	rpcServer      *gamerpc.Server
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, mon *monitor.Monitor) *GameServer {
	reg := registry.New()
	sessions := session.NewManager()
	timers := timer.NewTimerManager()
	notifier := broadcast.NewSeatBroadcaster(sessions)

	roomManager := room.NewManager(room.Deps{
		Registry: reg,
		Sessions: sessions,
		Scores:   services.NewScoreService(reg),
		Timers:   timers,
		Game:     cfg.Game,
		Metrics:  mon,
	})

	s := &GameServer{
		cfg:            cfg,
		registry:       reg,
		sessionManager: sessions,
		roomManager:    roomManager,
		matchQueue:     queue.New(cfg.Game.RoomSize, reg, sessions, notifier),
		notifier:       notifier,
		timers:         timers,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.matchQueue.SetSeater(s)

	rpcServer, err := gamerpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	statsService := gamerpc.NewStatsService(reg, s.matchQueue, roomManager)
	rpc.Register(statsService)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	return http.ListenAndServe(s.cfg.Server.HTTPAddress, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.rpcServer.Stop()
	s.timers.Stop()
}

// SeatPlayers implements queue.Seater: a full queue hands its first four
// entries here.
func (s *GameServer) SeatPlayers(seatIDs []string) {
	r, err := s.roomManager.CreateGame(seatIDs, s.notifier)
	if err != nil {
		logger.Log.Warnf("seating %v failed: %v", seatIDs, err)
	} else {
		logger.Log.Infof("room %s seated players %v", r.ID, seatIDs)
	}
	s.monitor.SetActiveRooms(s.roomManager.Count())
	s.monitor.SetQueuedPlayers(s.matchQueue.Len())
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(s.cfg.Game.HeartbeatInterval)
	sess := session.NewSession(uuid.New().String(), wsConn)

	s.sessionManager.Add(sess)
	s.registry.Register(sess.GetID())
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer s.handleDisconnect(sess, wsConn)

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// handleDisconnect runs the teardown in dependency order: transport first,
// then queue, then room, and the registry entry last, because the earlier
// cleanups read it.
func (s *GameServer) handleDisconnect(sess *session.Session, wsConn *network.WSConnection) {
	id := sess.GetID()
	logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), id)

	s.sessionManager.Remove(id)

	if s.matchQueue.Remove(id) {
		s.monitor.SetQueuedPlayers(s.matchQueue.Len())
	}

	if p, ok := s.registry.Get(id); ok && p.RoomID != "" {
		if r, exists := s.roomManager.GetRoom(p.RoomID); exists {
			if empty := r.HandleLeave(id); empty {
				s.roomManager.RemoveRoom(r.ID)
			}
			s.monitor.SetActiveRooms(s.roomManager.Count())
		}
	}

	s.registry.Unregister(id)
	s.monitor.DecOnlinePlayers()
	wsConn.Close()
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeJoinGame:
		s.handleJoinGame(sess)
	case network.MsgTypeMinisterGuess:
		s.handleMinisterGuess(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}

	s.monitor.ObserveMessageLatency(time.Since(start))
}

func (s *GameServer) handleJoinGame(sess *session.Session) {
	s.matchQueue.RequestJoin(sess.GetID())
	s.monitor.SetQueuedPlayers(s.matchQueue.Len())
}

func (s *GameServer) handleMinisterGuess(sess *session.Session, packet *network.Packet) {
	s.monitor.IncGuessesSubmitted()

	var guess models.MinisterGuess
	if err := json.Unmarshal(packet.Data, &guess); err != nil {
		logger.Log.Infof("Session %s sent malformed guess: %v", sess.GetID(), err)
		s.sendInvalidAction(sess)
		return
	}

	r, exists := s.roomManager.GetRoom(guess.RoomID)
	if !exists {
		logger.Log.Infof("Session %s guessed for unknown room %s", sess.GetID(), guess.RoomID)
		s.sendInvalidAction(sess)
		return
	}

	if err := r.HandleGuess(sess.GetID(), guess); err != nil {
		logger.Log.Infof("room %s: guess from %s rejected: %v", r.ID, sess.GetID(), err)
	}
}

func (s *GameServer) sendInvalidAction(sess *session.Session) {
	data, err := json.Marshal(models.InvalidAction{Message: "Invalid action."})
	if err != nil {
		return
	}
	if err := sess.Send(network.MsgTypeInvalidAction, data); err != nil {
		logger.Log.Debugf("invalid-action notice to %s failed: %v", sess.GetID(), err)
	}
}
