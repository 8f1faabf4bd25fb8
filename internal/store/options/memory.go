package options

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
)

type Memory struct {
	mu    sync.Mutex
	items map[string][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.items[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, sonic.Unmarshal(raw, dst)
}

func (m *Memory) Set(_ context.Context, key string, v any) error {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Incr(_ context.Context, key string, by int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	if raw, ok := m.items[key]; ok {
		if err := sonic.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
	}
	n += by
	raw, err := sonic.Marshal(n)
	if err != nil {
		return 0, err
	}
	m.items[key] = raw
	return n, nil
}
