package channel

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Manager coordinates all channels
type Manager struct {
	channels map[string]Channel
	mu       sync.RWMutex
}

// NewManager creates a channel manager
func NewManager() *Manager {
	return &Manager{channels: make(map[string]Channel)}
}

// Register adds a channel
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[ch.Name()] = ch
}

// Names returns registered channel names, sorted
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll starts all channels and returns the first start error. Channels
// that started before the failure stay running; callers should StopAll.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		slog.Info("starting channel", "name", name)
		if err := ch.Start(ctx); err != nil {
			slog.Error("channel error", "name", name, "error", err)
			return err
		}
	}
	return nil
}

// StopAll stops all channels
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			slog.Warn("channel stop failed", "name", name, "error", err)
		}
	}
}
