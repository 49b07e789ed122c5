package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/common"
)

// StatusHandler handles service status HTTP requests
type StatusHandler struct {
	sessionService SessionServiceInterface
	profileService ProfileServiceInterface // nil when profile sync is disabled
	logger         arbor.ILogger
	startedAt      time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(sessionService SessionServiceInterface, profileService ProfileServiceInterface, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		sessionService: sessionService,
		profileService: profileService,
		logger:         logger,
		startedAt:      time.Now(),
	}
}

// StatusHandler handles GET /api/status
func (h *StatusHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := map[string]interface{}{
		"status":       "ok",
		"version":      common.GetFullVersion(),
		"uptime":       time.Since(h.startedAt).Round(time.Second).String(),
		"sessions":     h.sessionService.Count(),
		"profile_sync": h.profileService != nil,
	}
	if h.profileService != nil {
		status["profiles"] = h.profileService.Count()
	}

	WriteJSON(w, http.StatusOK, status)
}
