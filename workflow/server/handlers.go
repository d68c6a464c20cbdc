// ABOUTME: HTTP handler methods for all server endpoints.
// ABOUTME: Covers session lifecycle, command execution, undo/redo, workflow CRUD, settings, and export.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/noder/graph"
	"github.com/2389-research/noder/workflow/core"
	"github.com/2389-research/noder/workflow/export"
	"github.com/2389-research/noder/workflow/store"
)

// Request bodies are graph documents and command batches, never file uploads.
const maxBodySize = 10 << 20

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error object with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// session looks up the session for the request's {id} param, writing a 404
// when it is missing.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session %q not found", id))
		return nil, false
	}
	return sess, true
}

// newEngine builds an engine configured from current settings, optionally
// starting from an existing document.
func (s *Server) newEngine(doc *graph.Document) *core.Engine {
	settings, err := s.settings.Load()
	if err != nil {
		settings = store.Settings{}
	}

	opts := []core.EngineOption{
		core.WithMirror(s.mirror),
		core.WithMaxHistory(s.cfg.MaxHistory),
		core.WithDebounce(s.cfg.Debounce),
	}
	if doc != nil {
		opts = append(opts, core.WithDocument(doc))
	}
	return core.NewEngine(graph.BuiltinRegistry(settings.ModelDefaults()), opts...)
}

// handleCreateSession creates a session around a fresh document, or around a
// stored workflow when the body names one.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkflowID string `json:"workflowId"`
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	var doc *graph.Document
	if req.WorkflowID != "" {
		workflow, err := s.workflows.Load(req.WorkflowID)
		if err != nil {
			var notFound *store.WorkflowNotFoundError
			if errors.As(err, &notFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		doc = workflow.Data
	}

	engine := s.newEngine(doc)
	stop := StartPersister(engine, s.mirror)
	sess := s.sessions.Create(engine, stop)

	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": sess.ID,
		"document":  engine.Document(),
	})
}

// handleGetSession returns the session's current state summary.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Engine.State())
}

// handleDeleteSession removes a session and stops its persister.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.Delete(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session %q not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCommands executes a command envelope against the session's engine.
// The response body is the engine's own JSON payload, errors included.
func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	payload := sess.Engine.HandleRequest(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// handleUndo reverts the last mutation.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	undone, err := sess.Engine.Undo()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"undone":  undone,
		"canUndo": sess.Engine.CanUndo(),
		"canRedo": sess.Engine.CanRedo(),
	})
}

// handleRedo reapplies a previously undone mutation.
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	redone, err := sess.Engine.Redo()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"redone":  redone,
		"canUndo": sess.Engine.CanUndo(),
		"canRedo": sess.Engine.CanRedo(),
	})
}

// handleSaveSession stores the session's document as a named workflow. The
// name defaults to the document's own name when the body omits one.
func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	doc := sess.Engine.Document()
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = doc.Name
	} else {
		sess.Engine.SetName(name)
		doc.Name = name
	}

	id, err := s.workflows.Save(name, doc)
	if err != nil {
		if errors.Is(err, store.ErrEmptyWorkflowName) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "name": name})
}

// handleExportYAML returns the session's document as a downloadable YAML file.
func (s *Server) handleExportYAML(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	doc := sess.Engine.Document()
	yamlStr, err := export.ExportYAML(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filename := store.SanitizeWorkflowID(doc.Name) + ".yaml"
	w.Header().Set("Content-Type", "text/yaml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(yamlStr))
}

// handleListWorkflows returns summaries of every stored workflow.
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	infos, err := s.workflows.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleCreateWorkflow stores and returns a fresh empty workflow.
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	workflow, err := s.workflows.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, workflow)
}

// handleGetWorkflow returns one stored workflow in full.
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	workflow, err := s.workflows.Load(id)
	if err != nil {
		var notFound *store.WorkflowNotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, workflow)
}

// handleRenameWorkflow renames a stored workflow.
func (s *Server) handleRenameWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	workflow, err := s.workflows.Rename(id, req.Name)
	if err != nil {
		var notFound *store.WorkflowNotFoundError
		switch {
		case errors.Is(err, store.ErrEmptyWorkflowName):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, workflow)
}

// handleDeleteWorkflow removes a stored workflow.
func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.workflows.Delete(id); err != nil {
		var notFound *store.WorkflowNotFoundError
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetSettings returns the current app settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings replaces the app settings. New sessions pick up the
// changed model defaults; live engines keep the catalog they started with.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := s.settings.Save(settings); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleHealth returns a JSON health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
