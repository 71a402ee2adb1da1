package rawinput

import "sync"

// Host identifies the environment a Source runs in.
type Host struct {
	Environment string `json:"environment"`
	Platform    string `json:"platform"`
}

// Source supplies snapshots of the host's controllers.
type Source interface {
	Snapshot() Snapshot
	Host() Host
	Close() error
}

// Static is an in-memory Source whose snapshot is set by the caller.
type Static struct {
	mu   sync.Mutex
	snap Snapshot
	host Host
}

// NewStatic returns a Static source reporting the given host.
func NewStatic(host Host) *Static {
	return &Static{host: host}
}

// Set replaces the current snapshot. Device indices are normalised to
// their position in s.
func (s *Static) Set(snap Snapshot) {
	c := snap.Clone()
	for i, d := range c {
		if d != nil {
			d.Index = i
		}
	}
	s.mu.Lock()
	s.snap = c
	s.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot.
func (s *Static) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

func (s *Static) Host() Host { return s.host }

func (s *Static) Close() error { return nil }
