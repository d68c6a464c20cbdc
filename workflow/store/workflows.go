// ABOUTME: File-backed store for named workflows under the data directory.
// ABOUTME: Atomic saves, id sanitization, and list/load/rename/delete/create operations.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/2389-research/noder/graph"
)

// ErrEmptyWorkflowName is returned when a save or rename is given a blank name.
var ErrEmptyWorkflowName = errors.New("workflow name cannot be empty")

// WorkflowNotFoundError is returned when no stored workflow matches the id.
type WorkflowNotFoundError struct {
	ID string
}

func (e *WorkflowNotFoundError) Error() string {
	return fmt.Sprintf("workflow %q not found", e.ID)
}

// Workflow couples a stored document with its file identity. The file id is
// derived from the name and doubles as the filename stem.
type Workflow struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Data *graph.Document `json:"data"`
}

// WorkflowInfo summarizes a stored workflow for list responses.
type WorkflowInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
	NodeCount int       `json:"nodeCount"`
}

// WorkflowStore persists workflows as JSON files in a single directory.
type WorkflowStore struct {
	dir string
}

// NewWorkflowStore creates a store rooted at <dataDir>/workflows. The
// directory is created lazily on first save.
func NewWorkflowStore(dataDir string) *WorkflowStore {
	return &WorkflowStore{dir: filepath.Join(dataDir, "workflows")}
}

// SanitizeWorkflowID maps a workflow name to a filesystem-safe id. ASCII
// letters, digits, hyphens, underscores, and spaces pass through; everything
// else becomes an underscore. A blank result falls back to "workflow".
func SanitizeWorkflowID(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, ch := range input {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == '-' || ch == '_' || ch == ' ':
			b.WriteRune(ch)
		default:
			b.WriteByte('_')
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "workflow"
	}
	return cleaned
}

// Save writes the document under the sanitized name and returns the file id.
// Saving over an existing id replaces it.
func (s *WorkflowStore) Save(name string, doc *graph.Document) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyWorkflowName
	}

	id := SanitizeWorkflowID(trimmed)
	w := &Workflow{ID: id, Name: trimmed, Data: doc}
	if err := s.write(w); err != nil {
		return "", err
	}
	return id, nil
}

// Load reads the workflow stored under id.
func (s *WorkflowStore) Load(id string) (*Workflow, error) {
	safe := SanitizeWorkflowID(strings.TrimSpace(id))
	contents, err := os.ReadFile(s.path(safe))
	if os.IsNotExist(err) {
		return nil, &WorkflowNotFoundError{ID: safe}
	}
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}

	var w Workflow
	if err := json.Unmarshal(contents, &w); err != nil {
		return nil, fmt.Errorf("parse workflow %q: %w", safe, err)
	}
	if w.Data == nil {
		w.Data = graph.NewDocument(w.Name)
	}
	return &w, nil
}

// List returns summaries of every stored workflow, newest first.
func (s *WorkflowStore) List() ([]WorkflowInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []WorkflowInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workflows dir: %w", err)
	}

	infos := []WorkflowInfo{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		contents, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read workflow file: %w", err)
		}
		var w Workflow
		if err := json.Unmarshal(contents, &w); err != nil {
			// Skip files that are not workflow JSON rather than failing the
			// whole listing.
			continue
		}

		info := WorkflowInfo{ID: w.ID, Name: w.Name}
		if w.Data != nil {
			info.NodeCount = len(w.Data.Nodes)
		}
		if fi, err := entry.Info(); err == nil {
			info.UpdatedAt = fi.ModTime()
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// Rename changes a workflow's name, moving its file to the new id. The old
// file is removed once the new one is in place.
func (s *WorkflowStore) Rename(id, newName string) (*Workflow, error) {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return nil, ErrEmptyWorkflowName
	}

	w, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	oldID := w.ID
	w.Name = trimmed
	w.ID = SanitizeWorkflowID(trimmed)
	if w.Data != nil {
		w.Data.Name = trimmed
	}
	if err := s.write(w); err != nil {
		return nil, err
	}
	if oldID != w.ID {
		if err := os.Remove(s.path(oldID)); err != nil {
			return nil, fmt.Errorf("remove old workflow file: %w", err)
		}
	}
	return w, nil
}

// Delete removes the workflow stored under id.
func (s *WorkflowStore) Delete(id string) error {
	safe := SanitizeWorkflowID(strings.TrimSpace(id))
	err := os.Remove(s.path(safe))
	if os.IsNotExist(err) {
		return &WorkflowNotFoundError{ID: safe}
	}
	if err != nil {
		return fmt.Errorf("remove workflow file: %w", err)
	}
	return nil
}

// Create saves and returns a fresh empty workflow with a timestamped name.
func (s *WorkflowStore) Create() (*Workflow, error) {
	name := fmt.Sprintf("New Workflow %d", time.Now().Unix())
	w := &Workflow{
		ID:   SanitizeWorkflowID(name),
		Name: name,
		Data: graph.NewDocument(name),
	}
	if err := s.write(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkflowStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// write saves a workflow with atomic write (write to .tmp, fsync, rename).
// Creates the target directory if it does not exist.
func (s *WorkflowStore) write(w *Workflow) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create workflows dir: %w", err)
	}

	jsonData, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}

	tmpPath := filepath.Join(s.dir, w.ID+".tmp")
	finalPath := s.path(w.ID)

	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp workflow file: %w", err)
	}

	if _, err := tmpFile.Write(jsonData); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write workflow data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsync workflow file: %w", err)
	}
	_ = tmpFile.Close()

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename workflow file: %w", err)
	}

	return nil
}
