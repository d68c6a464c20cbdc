// ABOUTME: HTTP server struct with chi router, session store, and workflow/settings stores.
// ABOUTME: Configures all API routes and wires handler methods.
package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389-research/noder/workflow/store"
)

// Server holds the chi router and the stores the handlers work against.
// The mirror is shared by every session's persister; the workflow and
// settings stores live under cfg.DataDir.
type Server struct {
	router    chi.Router
	sessions  *SessionStore
	workflows *store.WorkflowStore
	settings  *store.SettingsStore
	mirror    store.Mirror
	cfg       *Config
}

// NewServer creates a Server with all routes configured.
func NewServer(cfg *Config, mirror store.Mirror) *Server {
	s := &Server{
		sessions:  NewSessionStore(cfg.MaxSessions, cfg.SessionTTL),
		workflows: store.NewWorkflowStore(cfg.DataDir),
		settings:  store.NewSettingsStore(cfg.DataDir),
		mirror:    mirror,
		cfg:       cfg,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		// Session lifecycle and editing
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/commands", s.handleCommands)
				r.Post("/undo", s.handleUndo)
				r.Post("/redo", s.handleRedo)
				r.Post("/save", s.handleSaveSession)
				r.Get("/export.yaml", s.handleExportYAML)
			})
		})

		// Stored workflows
		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", s.handleListWorkflows)
			r.Post("/", s.handleCreateWorkflow)
			r.Get("/{id}", s.handleGetWorkflow)
			r.Put("/{id}", s.handleRenameWorkflow)
			r.Delete("/{id}", s.handleDeleteWorkflow)
		})

		// App settings
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
	})

	s.router = r
	return s
}

// Sessions returns the session store so callers can manage its cleanup
// lifecycle.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// requireAuth checks the Authorization header against the configured bearer
// token. When no token is configured (loopback-only deployments) every
// request passes.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AuthToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
