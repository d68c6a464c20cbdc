// ABOUTME: Bounded undo/redo history over compressed structural snapshots.
// ABOUTME: Entries are zstd-compressed canonical JSON keyed by a blake3 digest for no-op suppression.
package core

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"lukechampine.com/blake3"

	"github.com/2389-research/noder/graph"
)

const (
	// DefaultMaxHistory bounds the past stack; the oldest entry is evicted beyond it.
	DefaultMaxHistory = 50

	// DefaultDebounce is the window for coalescing non-immediate snapshot requests.
	DefaultDebounce = 300 * time.Millisecond
)

// entry is one stored history state. The digest is taken over the
// uncompressed canonical encoding, so digest equality means structural
// equality.
type entry struct {
	digest  [32]byte
	payload []byte
}

// History holds the past and future stacks plus the debounce machinery for
// coalescing bursts of snapshot requests.
type History struct {
	mu       sync.Mutex
	max      int
	debounce time.Duration
	past     []entry
	future   []entry
	pending  *entry
	timer    *time.Timer
}

// NewHistory creates an empty history. A max of zero or less falls back to
// DefaultMaxHistory; a debounce of zero or less makes every snapshot immediate.
func NewHistory(max int, debounce time.Duration) *History {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &History{max: max, debounce: debounce}
}

// encodeEntry compresses a snapshot's canonical form and digests it.
func encodeEntry(snap *graph.Snapshot) (entry, error) {
	canonical, err := snap.Canonical()
	if err != nil {
		return entry{}, err
	}
	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return entry{}, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(canonical); err != nil {
		encoder.Close()
		return entry{}, fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return entry{}, fmt.Errorf("closing encoder: %w", err)
	}
	return entry{digest: blake3.Sum256(canonical), payload: compressed.Bytes()}, nil
}

// decodeEntry decompresses and parses a stored history entry.
func decodeEntry(e entry) (*graph.Snapshot, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(e.payload))
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()
	canonical, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}
	return graph.DecodeSnapshot(canonical)
}

// Record captures a snapshot into history. Immediate snapshots commit at
// once and cancel any pending debounced one. Non-immediate snapshots are
// staged; a later request within the window supersedes an earlier one, and
// only the latest is committed when the window elapses.
func (h *History) Record(snap *graph.Snapshot, immediate bool) error {
	e, err := encodeEntry(snap)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if immediate || h.debounce <= 0 {
		h.cancelPendingLocked()
		h.commitLocked(e)
		return nil
	}

	h.pending = &e
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(h.debounce, h.firePending)
	return nil
}

// firePending commits the staged entry when the debounce window elapses.
func (h *History) firePending() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return
	}
	h.commitLocked(*h.pending)
	h.pending = nil
	h.timer = nil
}

// Flush commits any staged snapshot right away. Undo and redo call this so
// a burst in flight is never lost to the timer.
func (h *History) Flush() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return
	}
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.commitLocked(*h.pending)
	h.pending = nil
}

// commitLocked pushes an entry onto past, suppressing duplicates of the top
// entry, evicting the oldest beyond max, and clearing the future stack
// because a new state invalidates the redo timeline.
func (h *History) commitLocked(e entry) {
	if n := len(h.past); n > 0 && h.past[n-1].digest == e.digest {
		return
	}
	h.past = append(h.past, e)
	if len(h.past) > h.max {
		h.past = h.past[1:]
	}
	h.future = h.future[:0]
}

func (h *History) cancelPendingLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.pending = nil
}

// Undo pops the most recent past state, pushing current onto future. The
// second return is false when there is nothing to undo.
func (h *History) Undo(current *graph.Snapshot) (*graph.Snapshot, bool, error) {
	h.Flush()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.past) == 0 {
		return nil, false, nil
	}

	cur, err := encodeEntry(current)
	if err != nil {
		return nil, false, err
	}
	top := h.past[len(h.past)-1]
	restored, err := decodeEntry(top)
	if err != nil {
		return nil, false, err
	}

	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, cur)
	return restored, true, nil
}

// Redo pops the most recent future state, pushing current back onto past.
// The second return is false when there is nothing to redo.
func (h *History) Redo(current *graph.Snapshot) (*graph.Snapshot, bool, error) {
	h.Flush()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.future) == 0 {
		return nil, false, nil
	}

	cur, err := encodeEntry(current)
	if err != nil {
		return nil, false, err
	}
	top := h.future[len(h.future)-1]
	restored, err := decodeEntry(top)
	if err != nil {
		return nil, false, err
	}

	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, cur)
	if len(h.past) > h.max {
		h.past = h.past[1:]
	}
	return restored, true, nil
}

// Clear empties both stacks and drops any staged snapshot. The live
// document is untouched.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelPendingLocked()
	h.past = h.past[:0]
	h.future = h.future[:0]
}

// CanUndo reports whether a committed past state exists.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

// CanRedo reports whether a committed future state exists.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// Lengths returns the committed sizes of the past and future stacks.
func (h *History) Lengths() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}
