package kv

import (
	"context"

	"github.com/c-pro/geche"
)

// Memory is an ephemeral Store backed by a map cache. It is used by tests
// and by runs that do not need durability.
type Memory struct {
	cache geche.Geche[string, string]
}

func NewMemory() *Memory {
	return &Memory{cache: geche.NewMapCache[string, string]()}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	value, err := m.cache.Get(key)
	if err != nil {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.cache.Set(key, value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	// Del of an absent key is not an error, the contract is idempotent.
	_ = m.cache.Del(key)
	return nil
}
