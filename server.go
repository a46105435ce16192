package main

import (
	"fmt"
	"net"

	"go.uber.org/zap"
)

// Server owns the TCP listener and the per-connection goroutines.
type Server struct {
	cfg     Config
	game    *Game
	log     *zap.SugaredLogger
	metrics *Metrics

	listener net.Listener
	done     chan struct{}
}

// NewServer creates the game server around an existing Game aggregate.
func NewServer(cfg Config, game *Game, log *zap.SugaredLogger, metrics *Metrics) *Server {
	return &Server{
		cfg:     cfg,
		game:    game,
		log:     log,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Start binds the listener and launches the accept loop plus the game's
// background goroutines.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.log.Infof("listening on %s, lobby capacity %d", s.cfg.Addr, s.cfg.MaxPlayers)

	s.game.Run(s.done)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and stops the background goroutines. In-flight
// connections are torn down by their own read loops.
func (s *Server) Stop() {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
}

// Addr returns the bound listen address (useful when Addr was ":0").
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.log.Warnf("accept: %v", err)
				continue
			}
		}

		client := NewClient(s.game, conn, s.log, s.metrics)
		player, err := s.game.Join(client)
		if err != nil {
			// Admission refused: close without a reply.
			s.metrics.ConnectionsRejected.Add(1)
			s.log.Infof("rejected %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}

		client.playerID = player.ID
		s.metrics.ConnectionsAccepted.Add(1)
		go client.writePump()
		go client.readPump()
	}
}
