package profiles

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/interfaces"
	"github.com/scrapeloop/sessiond/internal/models"
)

// Service owns profile storage and rotation. Rotation is linear, then
// queue-like once all profiles have been used. The ledger maps session ids to
// their assigned profile. The profile set and rotation are swapped together
// on reload.
type Service struct {
	mu       sync.RWMutex
	profiles []models.Profile
	rotation *Rotation
	ref      map[string]models.Profile
	lastUsed map[string]time.Time

	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService creates a profile service over a fixed set of loaded profiles.
func NewService(profiles []models.Profile, eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		profiles:     profiles,
		rotation:     NewRotation(len(profiles)),
		ref:          make(map[string]models.Profile),
		lastUsed:     make(map[string]time.Time),
		eventService: eventService,
		logger:       logger,
	}
}

// NewSession assigns the next fresh profile to a session id and returns it.
func (s *Service) NewSession(sessionID string) (models.Profile, error) {
	s.mu.RLock()
	rotation, profiles := s.rotation, s.profiles
	s.mu.RUnlock()

	idx, err := rotation.Fresh()
	if err != nil {
		return models.Profile{}, err
	}

	profile := profiles[idx]

	s.mu.Lock()
	s.ref[sessionID] = profile
	s.lastUsed[sessionID] = time.Now()
	s.mu.Unlock()

	s.logger.Debug().
		Str("session_id", sessionID).
		Str("profile", profile.Name).
		Msg("Assigned profile to session")

	if s.eventService != nil {
		s.eventService.Publish(context.Background(), interfaces.Event{
			Type:      interfaces.EventProfileAssigned,
			Timestamp: time.Now(),
			Payload: map[string]interface{}{
				"session_id": sessionID,
				"profile":    profile.Name,
			},
		})
	}

	return profile, nil
}

// Assigned returns the profile in the ledger for a session id.
func (s *Service) Assigned(sessionID string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.ref[sessionID]
	if !ok {
		return models.Profile{}, interfaces.ErrSessionNotFound
	}
	return profile, nil
}

// Apply mutates an outgoing request in place, injecting the session's proxy
// and user-agent settings. Fields absent from the profile are left untouched.
func (s *Service) Apply(sessionID string, req *models.Request) error {
	s.mu.Lock()
	profile, ok := s.ref[sessionID]
	if ok {
		s.lastUsed[sessionID] = time.Now()
	}
	s.mu.Unlock()

	if !ok {
		return interfaces.ErrSessionNotFound
	}

	if profile.HasProxy() {
		if req.Meta == nil {
			req.Meta = make(map[string]interface{})
		}
		req.Meta["proxy"] = profile.Proxy.Address
		if profile.Proxy.AuthHeader != "" {
			if req.Headers == nil {
				req.Headers = make(http.Header)
			}
			req.Headers.Set("Proxy-Authorization", profile.Proxy.AuthHeader)
		}
	}

	if profile.HasUserAgent() {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}
		req.Headers.Set("User-Agent", profile.UserAgent)
	}

	return nil
}

// Count returns the number of loaded profiles.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Profiles returns the loaded profile set.
func (s *Service) Profiles() []models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles
}

// Reload replaces the profile set and restarts rotation from the top of the
// new set. Existing ledger entries keep the profile they were assigned.
func (s *Service) Reload(profiles []models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles = profiles
	s.rotation = NewRotation(len(profiles))

	s.logger.Info().Int("count", len(profiles)).Msg("Profiles reloaded")
}

// ReloadFromDir re-reads profile definitions from a directory and swaps them
// in via Reload.
func (s *Service) ReloadFromDir(dirPath string) (int, error) {
	loaded, err := LoadFromDir(dirPath, s.logger)
	if err != nil {
		return 0, err
	}

	s.Reload(loaded)
	return len(loaded), nil
}

// Assignments returns a copy of the session -> profile ledger.
func (s *Service) Assignments() map[string]models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Profile, len(s.ref))
	for id, p := range s.ref {
		out[id] = p
	}
	return out
}

// EvictIdle removes ledger entries not used within maxIdle and returns how
// many were evicted. The ledger otherwise grows without bound.
func (s *Service) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, last := range s.lastUsed {
		if last.Before(cutoff) {
			delete(s.ref, id)
			delete(s.lastUsed, id)
			evicted++
		}
	}

	if evicted > 0 {
		s.logger.Info().Int("evicted", evicted).Msg("Evicted idle profile assignments")
	}
	return evicted
}
