package hub

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ServerConfig is the websocket section of the serve command.
type ServerConfig struct {
	Addr string `help:"Websocket listen address, empty disables the websocket hub" default:"" env:"PADMAP_WS_ADDR"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, any origin may connect
	},
}

// Handler upgrades requests to websockets attached to h.
func Handler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		c := NewClient(h, conn)
		h.Register(c)
		go c.WritePump()
		go c.ReadPump()
	}
}

// Server serves the hub at /ws.
type Server struct {
	hub        *Hub
	addr       string
	ln         net.Listener
	httpServer *http.Server
	logger     *slog.Logger
}

func NewServer(addr string, h *Hub, logger *slog.Logger) *Server {
	return &Server{hub: h, addr: addr, logger: logger}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", Handler(s.hub))
	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("websocket hub listening", "addr", ln.Addr().String())
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("websocket server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the listen address, resolved once started.
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down websocket hub")
	return s.httpServer.Shutdown(ctx)
}
