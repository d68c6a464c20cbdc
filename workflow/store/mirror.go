// ABOUTME: Key-value mirror interface and in-memory implementation for document persistence.
// ABOUTME: Mirrors are queryable caches of serialized documents, never the source of truth.
package store

import "sync"

// Mirror is a key-value store that holds serialized documents keyed by
// document id. The persistence collaborator writes to it on change
// notifications; the mutation gateway clears it on replace and clear.
type Mirror interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, bool, error)
	Delete(key string) error
	Clear() error
	Keys() ([]string, error)
}

// MemoryMirror is a process-local Mirror for tests and ephemeral sessions.
type MemoryMirror struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryMirror creates an empty in-memory mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{entries: make(map[string][]byte)}
}

// Put stores a copy of value under key.
func (m *MemoryMirror) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(value))
	copy(buf, value)
	m.entries[key] = buf
	return nil
}

// Get returns a copy of the value under key, and whether it exists.
func (m *MemoryMirror) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	return buf, true, nil
}

// Delete removes the entry under key. Deleting a missing key is not an error.
func (m *MemoryMirror) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Clear removes every entry.
func (m *MemoryMirror) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	return nil
}

// Keys returns every stored key in unspecified order.
func (m *MemoryMirror) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys, nil
}
