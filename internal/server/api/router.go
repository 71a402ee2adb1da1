package api

import (
	"context"
	"log/slog"
	"net"
	"strings"
)

// Request contains route parameters and additional args from the command.
type Request struct {
	Ctx     context.Context
	Params  map[string]string
	Payload string
}

// Response holds the JSON string to return to the client.
type Response struct {
	JSON string
}

// HandlerFunc processes a request and populates the response.
// Returns an error on failure. The logger provided is a connection-scoped logger
// enriched with remote address metadata by the API server.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// StreamHandlerFunc handles long-lived connections. The server closes conn
// after the handler returned and reports a returned error to the client;
// req.Ctx is canceled when the server shuts down.
type StreamHandlerFunc func(conn net.Conn, req *Request, logger *slog.Logger) error

// Router implements simple path pattern matching with placeholders in {name}.
type Router struct {
	routes       []route[HandlerFunc]
	streamRoutes []route[StreamHandlerFunc]
}

type route[H any] struct {
	parts   []string
	names   map[int]string
	handler H
}

// NewRouter returns a new Router instance.
func NewRouter() *Router { return &Router{} }

func newRoute[H any](pattern string, h H) route[H] {
	parts := strings.Split(pattern, "/")
	rt := route[H]{parts: make([]string, len(parts)), names: map[int]string{}, handler: h}
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			rt.names[i] = p[1 : len(p)-1]
		}
		rt.parts[i] = strings.ToLower(p)
	}
	return rt
}

// match compares path segments case-insensitively. Parameter names keep
// the case used in the pattern.
func (rt route[H]) match(parts []string) (map[string]string, bool) {
	if len(rt.parts) != len(parts) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range parts {
		if name, ok := rt.names[i]; ok {
			params[name] = p
			continue
		}
		if rt.parts[i] != p {
			return nil, false
		}
	}
	return params, true
}

// Register registers a handler for a path pattern like "devices/{slot}/state".
func (r *Router) Register(pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, newRoute(pattern, handler))
}

// RegisterStream registers a StreamHandler for long-lived TCP connections.
func (r *Router) RegisterStream(pattern string, handler StreamHandlerFunc) {
	r.streamRoutes = append(r.streamRoutes, newRoute(pattern, handler))
}

// Match returns the HandlerFunc and params if the given path matches any
// registered pattern. Returns nil if none match.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	return find(r.routes, path)
}

// MatchStream returns the StreamHandler and params if the given path matches
// any registered stream pattern. Returns nil if none match.
func (r *Router) MatchStream(path string) (StreamHandlerFunc, map[string]string) {
	return find(r.streamRoutes, path)
}

func find[H any](routes []route[H], path string) (H, map[string]string) {
	parts := strings.Split(strings.ToLower(path), "/")
	for _, rt := range routes {
		if params, ok := rt.match(parts); ok {
			return rt.handler, params
		}
	}
	var zero H
	return zero, nil
}
