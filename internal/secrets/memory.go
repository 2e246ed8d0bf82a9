// internal/secrets/memory.go
package secrets

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.secrets[name]
	if !ok {
		return "", notFound(name)
	}
	return v, nil
}

func (m *Memory) Set(ctx context.Context, name, secret string) error {
	if err := validateName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.secrets[name] = secret
	return nil
}

func (m *Memory) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.secrets, name)
	return nil
}
