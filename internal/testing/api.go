package testing

import (
	"log/slog"
	"testing"
	"time"

	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/server/api"
	"github.com/Alia5/padmap/internal/store"
	"github.com/Alia5/padmap/rawinput"
)

// Env is the engine behind a test API server. Ticks are driven by the
// test through Tick.
type Env struct {
	Engine *engine.Engine
	Source *rawinput.Static
	Store  *store.Memory
	Now    time.Time
}

// Tick sets the source snapshot and runs one engine tick 50ms after the
// previous one.
func (e *Env) Tick(snap rawinput.Snapshot) {
	e.Source.Set(snap)
	e.Now = e.Now.Add(50 * time.Millisecond)
	e.Engine.Tick(e.Now)
}

// NewEnv builds an engine over a static source and an in-memory store.
func NewEnv(t *testing.T, data store.Data, sinks ...engine.Sink) *Env {
	t.Helper()
	env := &Env{
		Source: rawinput.NewStatic(rawinput.Host{Environment: "test", Platform: "LINUX"}),
		Store:  store.NewMemory(data),
		Now:    time.Unix(1000, 0),
	}
	e, err := engine.New(engine.Config{TickInterval: 5 * time.Millisecond}, env.Source, env.Store, slog.Default(), nil, sinks...)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	env.Engine = e
	return env
}

// StartAPIServer starts an API server on a free port and calls register to allow
// the caller to register the handlers needed for the test. Returns the address
// and a function to call when done.
func StartAPIServer(t *testing.T, register func(r *api.Router, e *engine.Engine, apiSrv *api.Server)) (addr string, env *Env, done func()) {
	t.Helper()
	env = NewEnv(t, store.Data{})
	apiSrv := api.New("127.0.0.1:0", api.ServerConfig{ConnectionTimeout: 5 * time.Second}, slog.Default())
	if register != nil {
		register(apiSrv.Router(), env.Engine, apiSrv)
	}
	if err := apiSrv.Start(); err != nil {
		t.Fatalf("api start failed: %v", err)
	}

	done = func() {
		apiSrv.Close()
		time.Sleep(10 * time.Millisecond)
	}
	return apiSrv.Addr(), env, done
}
