package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket event stream
	mux.HandleFunc("/ws", s.app.WSHandler.ServeWS)

	// API routes - Sessions
	mux.HandleFunc("/api/sessions", s.handleSessionsCollection)
	mux.HandleFunc("/api/sessions/", s.handleSessionRoutes) // /{id}/cookies, /{id}/profile, /{id}/clear

	// API routes - Profiles
	mux.HandleFunc("/api/profiles", s.app.ProfilesHandler.ListProfilesHandler)
	mux.HandleFunc("/api/profiles/assignments", s.app.ProfilesHandler.AssignmentsHandler)
	mux.HandleFunc("/api/profiles/reload", s.app.ProfilesHandler.ReloadProfilesHandler)

	// API routes - Status
	mux.HandleFunc("/api/status", s.app.StatusHandler.StatusHandler)

	return mux
}

// handleSessionsCollection dispatches /api/sessions by method: GET lists,
// POST creates
func (s *Server) handleSessionsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.app.SessionHandler.CreateSessionHandler(w, r)
		return
	}
	s.app.SessionHandler.ListSessionsHandler(w, r)
}

// handleSessionRoutes dispatches /api/sessions/{id}/<action> requests
func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case strings.HasSuffix(path, "/cookies"):
		s.app.SessionHandler.CookiesHandler(w, r)
	case strings.HasSuffix(path, "/profile"):
		s.app.SessionHandler.ProfileHandler(w, r)
	case strings.HasSuffix(path, "/clear"):
		s.app.SessionHandler.ClearHandler(w, r)
	default:
		http.NotFound(w, r)
	}
}
