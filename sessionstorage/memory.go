package sessionstorage

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/cccteam/ccc"
)

// Memory is a process local Mirror. Its contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[ccc.UUID]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	values    map[string]string
	updatedAt time.Time
}

// NewMemory returns an empty Memory mirror.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[ccc.UUID]memoryEntry),
		now:     time.Now,
	}
}

// Load returns the requested keys stored for sessionID.
func (m *Memory) Load(_ context.Context, sessionID ccc.UUID, keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[sessionID]
	if !ok {
		return map[string]string{}, nil
	}

	return pick(maps.Clone(e.values), keys), nil
}

// Save stores values for sessionID.
func (m *Memory) Save(_ context.Context, sessionID ccc.UUID, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sessionID]
	if !ok {
		e.values = make(map[string]string, len(values))
	}
	maps.Copy(e.values, values)
	e.updatedAt = m.now()
	m.entries[sessionID] = e

	return nil
}

// Delete removes keys stored for sessionID.
func (m *Memory) Delete(_ context.Context, sessionID ccc.UUID, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sessionID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(e.values, k)
	}
	if len(e.values) == 0 {
		delete(m.entries, sessionID)

		return nil
	}
	e.updatedAt = m.now()
	m.entries[sessionID] = e

	return nil
}

// PurgeBefore removes entries not written since cutoff.
func (m *Memory) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, e := range m.entries {
		if e.updatedAt.Before(cutoff) {
			delete(m.entries, id)
			n++
		}
	}

	return n, nil
}
