package store

import "sync"

// Memory keeps the document in memory.
type Memory struct {
	mu    sync.Mutex
	data  Data
	saves int
}

func NewMemory(d Data) *Memory {
	return &Memory{data: d}
}

func (m *Memory) Load() (Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.data), nil
}

func (m *Memory) Save(d Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = clone(d)
	m.saves++
	return nil
}

// Saves returns how often Save was called.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func clone(d Data) Data {
	d.Deadzones = append([]Deadzone(nil), d.Deadzones...)
	return d
}
