package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/Alia5/padmap/internal/server/api/auth"
)

var wsRegex = regexp.MustCompile(`\s`)

// Server implements the line-framed TCP management API.
type Server struct {
	addr   string
	ln     net.Listener
	logger *slog.Logger
	router *Router
	config ServerConfig
	key    []byte

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new API server listening on addr once started. A
// non-empty config.Password turns on authentication.
func New(addr string, config ServerConfig, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		logger: logger,
		config: config,
		router: NewRouter(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Router returns the router used by the API server so callers can register handlers.
func (a *Server) Router() *Router { return a.router }

// Config returns the server configuration.
func (a *Server) Config() ServerConfig { return a.config }

// Addr returns the bound address once started.
func (a *Server) Addr() string {
	if a.ln != nil {
		return a.ln.Addr().String()
	}
	return a.addr
}

// Start listens on the configured address and serves incoming API commands.
func (a *Server) Start() error {
	if a.config.Password != "" {
		key, err := auth.DeriveKey(a.config.Password)
		if err != nil {
			return err
		}
		a.key = key
	}
	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.ln = ln
	a.logger.Info("API listening", "addr", ln.Addr().String(), "auth", a.key != nil)
	go a.serve()
	return nil
}

// Close stops the API server and ends running streams.
func (a *Server) Close() {
	a.cancel()
	if a.ln != nil {
		_ = a.ln.Close()
	}
}

func (a *Server) serve() {
	for {
		c, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				a.logger.Info("API server stopped")
				return
			}
			a.logger.Info("API accept error", "error", err)
			return
		}
		go a.handleConn(c)
	}
}

func (a *Server) writeError(w io.Writer, err error) {
	problemJSON, _ := json.Marshal(WrapError(err))
	fmt.Fprintf(w, "%s\n", problemJSON)
}

func (a *Server) writeOK(w io.Writer, rest string) {
	fmt.Fprintf(w, "%s\n", rest)
}

// splitRequest separates the path from the payload at the first
// whitespace character.
func splitRequest(reqData string) (path, payload string) {
	if loc := wsRegex.FindStringIndex(reqData); loc != nil {
		return reqData[:loc[0]], reqData[loc[1]:]
	}
	return reqData, ""
}

func (a *Server) handleConn(conn net.Conn) {
	connCtx, connCancel := context.WithCancel(a.ctx)
	defer connCancel()

	connLogger := a.logger.With("remote", conn.RemoteAddr().String())
	r := bufio.NewReader(conn)

	if a.config.ConnectionTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(a.config.ConnectionTimeout))
	}
	if a.key != nil {
		switch {
		case auth.IsHello(r):
			sealed, err := auth.Server(conn, r, a.key)
			if err != nil {
				connLogger.Warn("api authentication failed", "error", err)
				a.writeError(conn, err)
				conn.Close()
				return
			}
			conn = sealed
			r = bufio.NewReader(sealed)
		case a.config.LocalAuth || !isLoopback(conn.RemoteAddr()):
			connLogger.Warn("api client did not authenticate")
			a.writeError(conn, auth.ErrUnauthorized("authentication required"))
			conn.Close()
			return
		}
	}
	// Read until null terminator
	reqData, err := r.ReadString('\x00')
	if err != nil {
		if err == io.EOF {
			connLogger.Error("api incomplete request (no null terminator)")
		} else {
			connLogger.Error("read api data", "error", err)
		}
		conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})
	reqData = strings.TrimSuffix(reqData, "\x00")

	if reqData == "" {
		connLogger.Error("api empty command")
		a.writeError(conn, ErrBadRequest("empty request"))
		conn.Close()
		return
	}
	path, payload := splitRequest(reqData)
	if path == "" {
		connLogger.Error("api empty path")
		a.writeError(conn, ErrBadRequest("empty path"))
		conn.Close()
		return
	}
	path = strings.ToLower(path)
	connLogger.Debug("api cmd", "path", path)

	if h, params := a.router.Match(path); h != nil {
		defer conn.Close()
		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		res := &Response{}
		if err := h(req, res, connLogger); err != nil {
			connLogger.Error("api handler error", "path", path, "error", err)
			a.writeError(conn, err)
			return
		}
		connLogger.Debug("api handler success", "path", path)
		a.writeOK(conn, res.JSON)
		return
	}

	if sh, params := a.router.MatchStream(path); sh != nil {
		defer conn.Close()
		connLogger.Info("api stream begin", "path", path)
		req := &Request{Ctx: connCtx, Params: params, Payload: payload}
		if err := sh(conn, req, connLogger); err != nil {
			connLogger.Error("api stream handler error", "path", path, "error", err)
			// a handler failing before its first frame leaves a usable conn
			a.writeError(conn, err)
		}
		connLogger.Info("api stream end", "path", path)
		return
	}

	connLogger.Error("api unknown path", "path", path)
	a.writeError(conn, ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
	conn.Close()
}

func isLoopback(addr net.Addr) bool {
	tcp, ok := addr.(*net.TCPAddr)
	return ok && tcp.IP.IsLoopback()
}
