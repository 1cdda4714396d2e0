package tokenstore

import (
	"context"
	"sync"
)

// Memory keeps the token for the life of the process only.
type Memory struct {
	mu    sync.RWMutex
	token string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *Memory) Set(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
