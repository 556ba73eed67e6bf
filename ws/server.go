// Package ws is the websocket gateway between participants and the coordinator.
package ws

import (
	"collab-lab/contract"
	"collab-lab/domain"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Config struct {
	AllowedOrigins  []string
	MaxMessageBytes int64
	BufferSize      int
	PingInterval    time.Duration
}

// Server upgrades HTTP requests on /ws and runs one read and one write loop per connection.
type Server struct {
	ctx         context.Context
	log         *slog.Logger
	coordinator contract.ICoordinator
	protocol    *Protocol
	upgrader    websocket.Upgrader
	cfg         Config
}

// NewServer binds every connection to ctx: cancelling it closes them all.
func NewServer(ctx context.Context, log *slog.Logger, coordinator contract.ICoordinator, cfg Config) *Server {
	return &Server{
		ctx:         ctx,
		log:         log,
		coordinator: coordinator,
		protocol:    NewProtocol(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		cfg: cfg,
	}
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("Websocket upgrade refused", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer socket.Close()
	socket.SetReadLimit(s.cfg.MaxMessageBytes)

	conn := newConn(domain.NewConnectionID(), socket, s.cfg.BufferSize, s.cfg.PingInterval, s.log)
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if err := s.coordinator.Connect(ctx, conn.ID(), conn); err != nil {
		s.log.Warn("Connection refused by coordinator", "conn_id", conn.ID(), "error", err)
		return
	}
	s.log.Debug("Connection opened", "conn_id", conn.ID(), "remote", r.RemoteAddr)

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		if err := conn.WriteLoop(ctx); err != nil {
			s.log.Debug("Write loop stopped", "conn_id", conn.ID(), "error", err)
		}
		// unblocks ReadMessage
		_ = socket.Close()
	}()

	err = conn.ReadLoop(ctx, s.coordinator, s.protocol)
	s.log.Debug("Connection closed", "conn_id", conn.ID(), "reason", err)

	conn.Close()
	if err := s.coordinator.Dispatch(s.ctx, domain.DisconnectCommand{Conn: conn.ID()}); err != nil {
		s.log.Debug("Disconnect not delivered", "conn_id", conn.ID(), "error", err)
	}
	<-writeDone
}

// originChecker accepts "*", an exact match, or requests without an Origin
// header (non browser clients).
func originChecker(allowed []string) func(r *http.Request) bool {
	wildcard := lo.Contains(allowed, "*")
	return func(r *http.Request) bool {
		if wildcard {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || lo.Contains(allowed, origin)
	}
}
