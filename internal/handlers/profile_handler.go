package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/models"
)

// ProfileServiceInterface defines the methods needed from the profile service
type ProfileServiceInterface interface {
	Count() int
	Profiles() []models.Profile
	Assignments() map[string]models.Profile
	ReloadFromDir(dirPath string) (int, error)
}

// ProfilesHandler handles profile inspection and reload HTTP requests
type ProfilesHandler struct {
	profileService ProfileServiceInterface // nil when profile sync is disabled
	profilesDir    string
	logger         arbor.ILogger
}

// NewProfilesHandler creates a new profiles handler
func NewProfilesHandler(profileService ProfileServiceInterface, profilesDir string, logger arbor.ILogger) *ProfilesHandler {
	return &ProfilesHandler{
		profileService: profileService,
		profilesDir:    profilesDir,
		logger:         logger,
	}
}

// ListProfilesHandler handles GET /api/profiles - lists loaded profiles.
// Proxy auth headers are masked in the response.
func (h *ProfilesHandler) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if h.profileService == nil {
		WriteError(w, http.StatusConflict, "Profile sync is not enabled")
		return
	}

	profiles := h.profileService.Profiles()
	sanitized := make([]map[string]interface{}, len(profiles))
	for i, p := range profiles {
		entry := map[string]interface{}{
			"name": p.Name,
		}
		if p.HasUserAgent() {
			entry["user_agent"] = p.UserAgent
		}
		if p.HasProxy() {
			entry["proxy"] = map[string]string{
				"address":     p.Proxy.Address,
				"auth_header": maskValue(p.Proxy.AuthHeader),
			}
		}
		sanitized[i] = entry
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(profiles),
		"profiles": sanitized,
	})
}

// AssignmentsHandler handles GET /api/profiles/assignments - returns the
// session -> profile ledger
func (h *ProfilesHandler) AssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if h.profileService == nil {
		WriteError(w, http.StatusConflict, "Profile sync is not enabled")
		return
	}

	assignments := h.profileService.Assignments()
	out := make(map[string]string, len(assignments))
	for sessionID, profile := range assignments {
		out[sessionID] = profile.Name
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(out),
		"assignments": out,
	})
}

// ReloadProfilesHandler handles POST /api/profiles/reload - re-reads profile
// definitions from disk and restarts rotation over the new set
func (h *ProfilesHandler) ReloadProfilesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if h.profileService == nil {
		WriteError(w, http.StatusConflict, "Profile sync is not enabled")
		return
	}

	count, err := h.profileService.ReloadFromDir(h.profilesDir)
	if err != nil {
		h.logger.Error().Err(err).Str("dir", h.profilesDir).Msg("Failed to reload profiles")
		WriteError(w, http.StatusInternalServerError, "Failed to reload profiles")
		return
	}

	h.logger.Info().Int("count", count).Str("dir", h.profilesDir).Msg("Profiles reloaded via API")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  count,
	})
}

// maskValue masks sensitive values for API responses. Keeping a four-character
// prefix and suffix requires more than eight characters of secret.
func maskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "••••••••"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
