package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Alia5/padmap/internal/server/api/auth"
)

// Config holds the transport timeouts and the optional API password.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Password authenticates and encrypts every connection when set.
	Password string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Transport speaks the padmap line protocol. One connection carries one
// request: the path, an optional space separated payload and a NUL byte.
// The server answers with one JSON line and closes, so the response is
// everything read until EOF minus the trailing newline.
type Transport struct {
	addr string
	mock func(path string, payload any, pathParams map[string]string) (string, error)
	cfg  Config

	keyOnce sync.Once
	key     []byte
	keyErr  error
}

// NewTransport creates a transport with default timeouts.
func NewTransport(addr string) *Transport { return NewTransportWithConfig(addr, nil) }

// NewTransportWithConfig creates a transport; a nil cfg uses the defaults.
func NewTransportWithConfig(addr string, cfg *Config) *Transport {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Transport{addr: addr, cfg: c}
}

// NewTransportWithPassword creates a transport with default timeouts that
// authenticates with password.
func NewTransportWithPassword(addr, password string) *Transport {
	c := defaultConfig()
	c.Password = password
	return NewTransportWithConfig(addr, &c)
}

// NewMockTransport answers every request with responder instead of the
// network. Streams are not available on it.
func NewMockTransport(responder func(path string, payload any, pathParams map[string]string) (string, error)) *Transport {
	return &Transport{addr: "mock", mock: responder, cfg: defaultConfig()}
}

// Do sends a request and returns the response line. A []byte or string
// payload is sent verbatim, nil sends none and anything else is JSON
// encoded.
func (t *Transport) Do(path string, payload any, pathParams map[string]string) (string, error) {
	return t.DoCtx(context.Background(), path, payload, pathParams)
}

// DoCtx is Do bounded by ctx as well as the configured timeouts.
func (t *Transport) DoCtx(ctx context.Context, path string, payload any, pathParams map[string]string) (string, error) {
	if t.mock != nil {
		return t.mock(path, payload, pathParams)
	}
	req := []byte(fillPath(path, pathParams))
	if pb, ok := toPayloadBytes(payload); ok && len(pb) > 0 {
		req = append(append(req, ' '), pb...)
	}
	req = append(req, '\x00')

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	conn, err := t.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write(req); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if t.cfg.ReadTimeout > 0 && !blocking(path) {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

// dial connects and, with a password configured, runs the handshake.
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if t.cfg.Password == "" {
		return conn, nil
	}

	key, err := t.sessionKey()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if t.cfg.DialTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.DialTimeout))
	}
	sealed, err := auth.Client(conn, key)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return sealed, nil
}

// sessionKey derives the handshake key once per transport.
func (t *Transport) sessionKey() ([]byte, error) {
	t.keyOnce.Do(func() {
		t.key, t.keyErr = auth.DeriveKey(t.cfg.Password)
	})
	return t.key, t.keyErr
}

// blocking reports routes that answer only after a long running operation.
// Their duration is bounded by the caller's context instead of ReadTimeout.
func blocking(path string) bool {
	return strings.HasSuffix(path, "/deadzone/detect")
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func toPayloadBytes(v any) ([]byte, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return b, true
}
