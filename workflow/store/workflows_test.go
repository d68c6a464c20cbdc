// ABOUTME: Tests for the file-backed workflow store.
// ABOUTME: Covers id sanitization, save/load round-trips, listing, rename, delete, and create.
package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2389-research/noder/graph"
	"github.com/2389-research/noder/workflow/store"
)

func makeDocument(name string, nodeIDs ...string) *graph.Document {
	doc := graph.NewDocument(name)
	for i, id := range nodeIDs {
		doc.AddNode(&graph.Node{
			ID:       id,
			Type:     "text",
			Position: graph.Position{X: float64(i) * 100, Y: 0},
			Data:     map[string]any{"prompt": "hello"},
		})
	}
	return doc
}

func TestSanitizeWorkflowID(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"My Workflow", "My Workflow"},
		{"My Workflow!", "My Workflow_"},
		{"a-b_c 9", "a-b_c 9"},
		{"../../etc/passwd", "______etc_passwd"},
		{"  padded  ", "padded"},
		{"", "workflow"},
		{"   ", "workflow"},
		{"!!!", "___"},
	}

	for _, tc := range cases {
		if got := store.SanitizeWorkflowID(tc.input); got != tc.want {
			t.Errorf("SanitizeWorkflowID(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestWorkflowStore_SaveLoadRoundTrip(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())
	doc := makeDocument("Pipeline", "n1", "n2")

	id, err := ws.Save("Pipeline", doc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id != "Pipeline" {
		t.Errorf("id = %q, want %q", id, "Pipeline")
	}

	loaded, err := ws.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "Pipeline" {
		t.Errorf("Name = %q, want %q", loaded.Name, "Pipeline")
	}
	if len(loaded.Data.Nodes) != 2 {
		t.Fatalf("len(Nodes) = %d, want 2", len(loaded.Data.Nodes))
	}
	if loaded.Data.Nodes[0].Data["prompt"] != "hello" {
		t.Errorf("node data prompt = %v, want hello", loaded.Data.Nodes[0].Data["prompt"])
	}
}

func TestWorkflowStore_SaveSanitizesAndTrims(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())

	id, err := ws.Save("  Render: Final!  ", makeDocument("Render: Final!"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id != "Render_ Final_" {
		t.Errorf("id = %q, want %q", id, "Render_ Final_")
	}

	loaded, err := ws.Load(id)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "Render: Final!" {
		t.Errorf("Name = %q, want trimmed original name", loaded.Name)
	}
}

func TestWorkflowStore_SaveEmptyName(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())

	if _, err := ws.Save("   ", makeDocument("x")); !errors.Is(err, store.ErrEmptyWorkflowName) {
		t.Errorf("err = %v, want ErrEmptyWorkflowName", err)
	}
}

func TestWorkflowStore_LoadMissing(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())

	_, err := ws.Load("ghost")
	var notFound *store.WorkflowNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want WorkflowNotFoundError", err)
	}
	if notFound.ID != "ghost" {
		t.Errorf("ID = %q, want %q", notFound.ID, "ghost")
	}
}

func TestWorkflowStore_ListEmpty(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())

	infos, err := ws.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("infos = %v, want empty", infos)
	}
}

func TestWorkflowStore_ListNewestFirst(t *testing.T) {
	dataDir := t.TempDir()
	ws := store.NewWorkflowStore(dataDir)

	if _, err := ws.Save("older", makeDocument("older", "n1")); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if _, err := ws.Save("newer", makeDocument("newer", "n1", "n2", "n3")); err != nil {
		t.Fatalf("Save newer: %v", err)
	}

	// Push the first file's mtime into the past so ordering is deterministic.
	past := time.Now().Add(-time.Hour)
	olderPath := filepath.Join(dataDir, "workflows", "older.json")
	if err := os.Chtimes(olderPath, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	infos, err := ws.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[0].ID != "newer" || infos[1].ID != "older" {
		t.Errorf("order = [%s %s], want [newer older]", infos[0].ID, infos[1].ID)
	}
	if infos[0].NodeCount != 3 {
		t.Errorf("newer NodeCount = %d, want 3", infos[0].NodeCount)
	}
	if infos[1].NodeCount != 1 {
		t.Errorf("older NodeCount = %d, want 1", infos[1].NodeCount)
	}
}

func TestWorkflowStore_ListSkipsForeignFiles(t *testing.T) {
	dataDir := t.TempDir()
	ws := store.NewWorkflowStore(dataDir)

	if _, err := ws.Save("real", makeDocument("real")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	junkPath := filepath.Join(dataDir, "workflows", "junk.json")
	if err := os.WriteFile(junkPath, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	infos, err := ws.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "real" {
		t.Errorf("infos = %v, want only real", infos)
	}
}

func TestWorkflowStore_Rename(t *testing.T) {
	dataDir := t.TempDir()
	ws := store.NewWorkflowStore(dataDir)

	id, err := ws.Save("Draft", makeDocument("Draft", "n1"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	renamed, err := ws.Rename(id, "Final Cut")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.ID != "Final Cut" || renamed.Name != "Final Cut" {
		t.Errorf("renamed = %q/%q, want Final Cut/Final Cut", renamed.ID, renamed.Name)
	}
	if len(renamed.Data.Nodes) != 1 {
		t.Errorf("len(Nodes) = %d, want 1 after rename", len(renamed.Data.Nodes))
	}

	if _, err := os.Stat(filepath.Join(dataDir, "workflows", "Draft.json")); !os.IsNotExist(err) {
		t.Error("expected old file to be removed")
	}
	if _, err := ws.Load("Final Cut"); err != nil {
		t.Errorf("Load renamed: %v", err)
	}
}

func TestWorkflowStore_RenameToSameID(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())

	id, err := ws.Save("My Flow!", makeDocument("My Flow!"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Both names sanitize to the same file id, so the rename must not delete
	// the file it just wrote.
	renamed, err := ws.Rename(id, "My Flow?")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if renamed.ID != id {
		t.Errorf("ID = %q, want unchanged %q", renamed.ID, id)
	}
	loaded, err := ws.Load(id)
	if err != nil {
		t.Fatalf("Load after rename: %v", err)
	}
	if loaded.Name != "My Flow?" {
		t.Errorf("Name = %q, want %q", loaded.Name, "My Flow?")
	}
}

func TestWorkflowStore_RenameEmptyName(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())

	id, err := ws.Save("Draft", makeDocument("Draft"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := ws.Rename(id, "  "); !errors.Is(err, store.ErrEmptyWorkflowName) {
		t.Errorf("err = %v, want ErrEmptyWorkflowName", err)
	}
}

func TestWorkflowStore_Delete(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())

	id, err := ws.Save("Doomed", makeDocument("Doomed"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := ws.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var notFound *store.WorkflowNotFoundError
	if _, err := ws.Load(id); !errors.As(err, &notFound) {
		t.Errorf("Load after delete = %v, want WorkflowNotFoundError", err)
	}
	if err := ws.Delete(id); !errors.As(err, &notFound) {
		t.Errorf("second Delete = %v, want WorkflowNotFoundError", err)
	}
}

func TestWorkflowStore_Create(t *testing.T) {
	ws := store.NewWorkflowStore(t.TempDir())

	w, err := ws.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(w.Name, "New Workflow ") {
		t.Errorf("Name = %q, want New Workflow prefix", w.Name)
	}
	if len(w.Data.Nodes) != 0 || len(w.Data.Edges) != 0 {
		t.Errorf("fresh workflow has %d nodes, %d edges, want empty",
			len(w.Data.Nodes), len(w.Data.Edges))
	}

	loaded, err := ws.Load(w.ID)
	if err != nil {
		t.Fatalf("Load created: %v", err)
	}
	if loaded.Name != w.Name {
		t.Errorf("Name = %q, want %q", loaded.Name, w.Name)
	}
}

func TestWorkflowStore_NoTempFilesLeftBehind(t *testing.T) {
	dataDir := t.TempDir()
	ws := store.NewWorkflowStore(dataDir)

	if _, err := ws.Save("Clean", makeDocument("Clean")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dataDir, "workflows"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("leftover temp file %q", entry.Name())
		}
	}
}
