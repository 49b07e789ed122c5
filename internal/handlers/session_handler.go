package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/interfaces"
	"github.com/scrapeloop/sessiond/internal/models"
)

// SessionServiceInterface defines the methods needed from the session service
type SessionServiceInterface interface {
	List() []string
	Count() int
	Create() string
	Get(sessionID string) []string
	GetPairs(sessionID string) []map[string]string
	GetProfile(sessionID string) (models.Profile, error)
	Clear(ctx context.Context, sessionID string, renewal *models.Request) error
}

// SessionHandler handles session inspection and clearing HTTP requests
type SessionHandler struct {
	sessionService SessionServiceInterface
	logger         arbor.ILogger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService SessionServiceInterface, logger arbor.ILogger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// ListSessionsHandler handles GET /api/sessions - lists all session ids
func (h *SessionHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ids := h.sessionService.List()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(ids),
		"sessions": ids,
	})
}

// CreateSessionHandler handles POST /api/sessions - creates a session under a
// generated id and returns the id
func (h *SessionHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	sessionID := h.sessionService.Create()

	h.logger.Info().Str("session_id", sessionID).Msg("Session created via API")

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sessionID,
	})
}

// CookiesHandler handles GET /api/sessions/{id}/cookies - returns the
// session's flattened cookies. ?format=pairs returns name->value maps,
// the default is Netscape-style strings. Read-only view.
func (h *SessionHandler) CookiesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	sessionID, ok := h.sessionIDFromPath(w, r, "/cookies")
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "pairs":
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": sessionID,
			"cookies":    h.sessionService.GetPairs(sessionID),
		})
	case "", "netscape":
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"session_id": sessionID,
			"cookies":    h.sessionService.Get(sessionID),
		})
	default:
		WriteError(w, http.StatusBadRequest, "Unknown format: "+format)
	}
}

// ProfileHandler handles GET /api/sessions/{id}/profile - returns the profile
// assigned to the session
func (h *SessionHandler) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	sessionID, ok := h.sessionIDFromPath(w, r, "/profile")
	if !ok {
		return
	}

	profile, err := h.sessionService.GetProfile(sessionID)
	if err != nil {
		if errors.Is(err, interfaces.ErrProfilesDisabled) {
			WriteError(w, http.StatusConflict, "Profile sync is not enabled")
			return
		}
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "No profile assigned to session")
			return
		}
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to look up session profile")
		WriteError(w, http.StatusInternalServerError, "Failed to look up session profile")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"profile":    profile,
	})
}

// clearRequest is the optional body of a clear call: a renewal request to
// re-establish cookies after the jar is emptied.
type clearRequest struct {
	RenewalURL    string            `json:"renewal_url"`
	RenewalMethod string            `json:"renewal_method"`
	Headers       map[string]string `json:"headers"`
}

// ClearHandler handles POST /api/sessions/{id}/clear - empties the session's
// jar, flags it for renewal, and optionally fires a renewal request
func (h *SessionHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	sessionID, ok := h.sessionIDFromPath(w, r, "/clear")
	if !ok {
		return
	}

	var renewal *models.Request
	if r.Body != nil && r.ContentLength != 0 {
		var req clearRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Error().Err(err).Msg("Failed to parse clear request body")
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.RenewalURL != "" {
			renewal = models.NewRequest(sessionID, req.RenewalURL)
			if req.RenewalMethod != "" {
				renewal.Method = req.RenewalMethod
			}
			for k, v := range req.Headers {
				renewal.Headers.Set(k, v)
			}
		}
	}

	if err := h.sessionService.Clear(r.Context(), sessionID, renewal); err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to clear session")
		WriteError(w, http.StatusInternalServerError, "Failed to clear session")
		return
	}

	h.logger.Info().
		Str("session_id", sessionID).
		Bool("renewal", renewal != nil).
		Msg("Session cleared via API")

	WriteSuccess(w, "Session cleared")
}

// sessionIDFromPath extracts the session id from /api/sessions/{id}<suffix>
func (h *SessionHandler) sessionIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	path = strings.TrimSuffix(path, suffix)

	sessionID, err := url.QueryUnescape(path)
	if err != nil || sessionID == "" || strings.Contains(sessionID, "/") {
		WriteError(w, http.StatusBadRequest, "Invalid session id")
		return "", false
	}
	return sessionID, true
}
