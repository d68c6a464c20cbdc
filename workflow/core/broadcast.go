// ABOUTME: Fan-out of document change notifications to persistence collaborators and observers.
// ABOUTME: Each subscriber gets a buffered channel; Broadcast is non-blocking and drops if full.
package core

import "sync"

// Change operation names carried by ChangeEvent.
const (
	OpCreate      = "create"
	OpConnect     = "connect"
	OpUpdate      = "updateNode"
	OpDeleteNodes = "deleteNodes"
	OpDeleteEdges = "deleteEdges"
	OpClear       = "clear"
	OpUndo        = "undo"
	OpRedo        = "redo"
)

// ChangeEvent describes one committed document mutation. NodeIDs and EdgeIDs
// name what the operation touched; for undo, redo, and clear they are empty
// because the whole document moved.
type ChangeEvent struct {
	Op         string   `json:"op"`
	DocumentID string   `json:"documentId"`
	NodeIDs    []string `json:"nodeIds,omitempty"`
	EdgeIDs    []string `json:"edgeIds,omitempty"`
}

// ChangeBroadcaster fans change events out to multiple subscribers.
type ChangeBroadcaster struct {
	mu          sync.RWMutex
	subscribers []chan ChangeEvent
}

// NewChangeBroadcaster creates a broadcaster with no initial subscribers.
func NewChangeBroadcaster() *ChangeBroadcaster {
	return &ChangeBroadcaster{}
}

// Subscribe creates a new buffered channel for receiving change events.
func (b *ChangeBroadcaster) Subscribe() chan ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan ChangeEvent, 256)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes a channel from the subscriber list and closes it.
func (b *ChangeBroadcaster) Unsubscribe(ch chan ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Broadcast sends an event to all subscribers. Non-blocking: drops if a subscriber's buffer is full.
func (b *ChangeBroadcaster) Broadcast(event ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Drop if subscriber buffer is full
		}
	}
}
