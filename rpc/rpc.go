package rpc

import (
	"fmt"
	"net"
	"net/rpc"

	"github.com/Asvera/king-minister-game/logger"
	"github.com/Asvera/king-minister-game/models"
	"github.com/Asvera/king-minister-game/queue"
	"github.com/Asvera/king-minister-game/registry"
	"github.com/Asvera/king-minister-game/room"
)

// Server manages the admin RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins accepting RPC connections.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatsService exposes read-only server state for operators.
type StatsService struct {
	registry    *registry.Registry
	matchQueue  *queue.Queue
	roomManager *room.Manager
}

func NewStatsService(reg *registry.Registry, q *queue.Queue, rooms *room.Manager) *StatsService {
	return &StatsService{
		registry:    reg,
		matchQueue:  q,
		roomManager: rooms,
	}
}

type StatsArgs struct{}

type StatsReply struct {
	OnlinePlayers  int
	QueuedPlayers  int
	ActiveRooms    int
	GamesCompleted int64
}

func (s *StatsService) GetServerStats(args *StatsArgs, reply *StatsReply) error {
	reply.OnlinePlayers = s.registry.Count()
	reply.QueuedPlayers = s.matchQueue.Len()
	reply.ActiveRooms = s.roomManager.Count()
	reply.GamesCompleted = s.roomManager.GamesCompleted()
	return nil
}

type ParticipantArgs struct {
	ID string
}

type ParticipantReply struct {
	ID     string
	Score  int
	Role   models.Role
	RoomID string
	Queued bool
}

func (s *StatsService) GetParticipant(args *ParticipantArgs, reply *ParticipantReply) error {
	p, exists := s.registry.Get(args.ID)
	if !exists {
		return fmt.Errorf("participant %s: %w", args.ID, registry.ErrNotFound)
	}
	reply.ID = p.ID
	reply.Score = p.Score
	reply.Role = p.Role
	reply.RoomID = p.RoomID
	reply.Queued = s.matchQueue.Contains(args.ID)
	return nil
}
