package inmemory

import (
	"context"
	"sync"
)

type InMemory struct {
	sync.RWMutex
	datas map[string][]byte
	puts  int
}

func NewInMemory() *InMemory {
	return &InMemory{datas: make(map[string][]byte)}
}

func (m *InMemory) Read(_ context.Context, key string) ([]byte, bool, error) {
	m.RLock()
	defer m.RUnlock()
	data, found := m.datas[key]
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *InMemory) ReadAll(_ context.Context, reader func(key string, data []byte) error) error {
	m.RLock()
	defer m.RUnlock()

	for k, o := range m.datas {
		if err := reader(k, o); err != nil {
			return err
		}
	}
	return nil
}

func (m *InMemory) Put(_ context.Context, key string, data []byte) error {
	m.Lock()
	m.datas[key] = append([]byte(nil), data...)
	m.puts++
	m.Unlock()
	return nil
}

func (m *InMemory) Delete(_ context.Context, key string) error {
	m.Lock()
	delete(m.datas, key)
	m.Unlock()
	return nil
}

// Puts reports how many writes reached the store, tests use it to detect redundant writes.
func (m *InMemory) Puts() int {
	m.RLock()
	defer m.RUnlock()
	return m.puts
}

func (m *InMemory) Close() error {
	return nil
}
