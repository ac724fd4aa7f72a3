// Package notifytest provides an in-memory notify.Notifier for tests.
package notifytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/MEKXH/warden/internal/notify"
)

// Posted is a message currently held by the fake.
type Posted struct {
	ChannelID string
	ID        string
	Message   notify.Message
}

// Memory records every call and keeps posted messages per channel.
type Memory struct {
	mu       sync.Mutex
	nextID   int
	messages map[string]Posted
	order    []string

	Posts   int
	Edits   int
	Deletes int

	// Channels restricts the set of existing channels when non-nil.
	Channels map[string]bool
	// PostErr, EditErr and DeleteErr force failures when set.
	PostErr   error
	EditErr   error
	DeleteErr error
}

// New returns an empty fake notifier.
func New() *Memory {
	return &Memory{messages: make(map[string]Posted)}
}

func (m *Memory) Post(_ context.Context, channelID string, msg notify.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Posts++
	if m.PostErr != nil {
		return "", m.PostErr
	}
	if m.Channels != nil && !m.Channels[channelID] {
		return "", fmt.Errorf("post to %s: %w", channelID, notify.ErrNotFound)
	}
	m.nextID++
	id := fmt.Sprintf("msg-%d", m.nextID)
	m.messages[id] = Posted{ChannelID: channelID, ID: id, Message: msg}
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) Edit(_ context.Context, channelID, messageID string, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Edits++
	if m.EditErr != nil {
		return m.EditErr
	}
	posted, ok := m.messages[messageID]
	if !ok || posted.ChannelID != channelID {
		return fmt.Errorf("edit %s: %w", messageID, notify.ErrNotFound)
	}
	posted.Message = msg
	m.messages[messageID] = posted
	return nil
}

func (m *Memory) Delete(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Deletes++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	posted, ok := m.messages[messageID]
	if !ok || posted.ChannelID != channelID {
		return fmt.Errorf("delete %s: %w", messageID, notify.ErrNotFound)
	}
	delete(m.messages, messageID)
	return nil
}

// Get returns a live message by id.
func (m *Memory) Get(messageID string) (Posted, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	posted, ok := m.messages[messageID]
	return posted, ok
}

// Drop removes a message without counting a delete, simulating a purge.
func (m *Memory) Drop(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.messages, messageID)
}

// InChannel returns the live messages of a channel in post order.
func (m *Memory) InChannel(channelID string) []Posted {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Posted, 0, len(m.order))
	for _, id := range m.order {
		posted, ok := m.messages[id]
		if ok && posted.ChannelID == channelID {
			out = append(out, posted)
		}
	}
	return out
}
