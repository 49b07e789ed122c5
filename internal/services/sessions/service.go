package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/common"
	"github.com/scrapeloop/sessiond/internal/interfaces"
	"github.com/scrapeloop/sessiond/internal/jar"
	"github.com/scrapeloop/sessiond/internal/models"
	"github.com/scrapeloop/sessiond/internal/services/profiles"
)

// Service manages per-session cookie jars. Sessions are created implicitly on
// first access; each session owns one jar and, when profile sync is enabled,
// one assigned profile.
type Service struct {
	mu   sync.RWMutex
	jars map[string]*jar.Jar

	profiles     *profiles.Service // nil when profile sync is disabled
	engine       interfaces.Engine
	storage      interfaces.SessionStorage // nil when persistence is disabled
	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService creates a session service. profileService may be nil when profile
// sync is disabled, and storage may be nil when persistence is disabled.
func NewService(profileService *profiles.Service, engine interfaces.Engine, storage interfaces.SessionStorage, eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		jars:         make(map[string]*jar.Jar),
		profiles:     profileService,
		engine:       engine,
		storage:      storage,
		eventService: eventService,
		logger:       logger,
	}
}

// Jar returns the session's cookie jar, creating the session on first access.
func (s *Service) Jar(sessionID string) *jar.Jar {
	s.mu.RLock()
	j, ok := s.jars[sessionID]
	s.mu.RUnlock()
	if ok {
		return j
	}

	s.mu.Lock()
	j, ok = s.jars[sessionID]
	if !ok {
		j = jar.New()
		s.jars[sessionID] = j
	}
	s.mu.Unlock()

	if !ok {
		s.onCreated(sessionID)
	}
	return j
}

// onCreated runs the implicit session setup: profile assignment and event
// publication.
func (s *Service) onCreated(sessionID string) {
	s.logger.Debug().Str("session_id", sessionID).Msg("Session created")

	if s.profiles != nil {
		if _, err := s.profiles.NewSession(sessionID); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to assign profile to new session")
		}
	}

	if s.eventService != nil {
		s.eventService.Publish(context.Background(), interfaces.Event{
			Type:      interfaces.EventSessionCreated,
			Timestamp: time.Now(),
			Payload:   map[string]interface{}{"session_id": sessionID},
		})
	}
}

// Create makes a session under a generated id and returns the id. Callers
// with their own ids use Jar directly; sessions are created implicitly there.
func (s *Service) Create() string {
	id := common.NewSessionID()
	s.Jar(id)
	return id
}

// Get returns the session's cookies flattened to Netscape-style strings
// ("name=value; expires=...; path=...; domain=..."). The view is read-only;
// it carries the same information as GetPairs in a different shape.
func (s *Service) Get(sessionID string) []string {
	cookies := s.Jar(sessionID).Flatten()

	out := make([]string, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, c.NetscapeString())
	}
	return out
}

// GetPairs returns the session's cookies flattened to single-entry
// name -> value maps.
func (s *Service) GetPairs(sessionID string) []map[string]string {
	cookies := s.Jar(sessionID).Flatten()

	out := make([]map[string]string, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, c.Pair())
	}
	return out
}

// GetProfile returns the profile assigned to the session. It returns
// ErrProfilesDisabled when profile sync is not enabled, and
// ErrSessionNotFound when the session id has no ledger entry.
func (s *Service) GetProfile(sessionID string) (models.Profile, error) {
	if s.profiles == nil {
		return models.Profile{}, fmt.Errorf("can't look up session profile: %w", interfaces.ErrProfilesDisabled)
	}
	return s.profiles.Assigned(sessionID)
}

// Clear empties the session's jar and flags it for renewal. When a renewal
// request is supplied it is dispatched through the engine to re-establish
// cookies, and the engine's scheduler is nudged once the download settles.
// Renewal failures are logged, not retried.
func (s *Service) Clear(ctx context.Context, sessionID string, renewal *models.Request) error {
	j := s.Jar(sessionID)
	j.MarkForRenewal()
	j.Clear()

	s.logger.Info().
		Str("session_id", sessionID).
		Bool("renewal_requested", renewal != nil).
		Msg("Session cleared")

	if s.eventService != nil {
		s.eventService.Publish(ctx, interfaces.Event{
			Type:      interfaces.EventSessionCleared,
			Timestamp: time.Now(),
			Payload:   map[string]interface{}{"session_id": sessionID},
		})
	}

	s.persist(ctx, sessionID)

	if renewal == nil {
		return nil
	}

	renewal.SessionID = sessionID
	renewal.DontFilter = true

	// The caller's context (an HTTP request context, for instance) may be
	// cancelled as soon as Clear returns; the renewal download must outlive it.
	renewCtx := context.WithoutCancel(ctx)

	common.SafeGo(s.logger, "sessionRenewal", func() {
		s.renew(renewCtx, sessionID, renewal)
	})

	return nil
}

// renew dispatches the renewal request. The scheduler nudge fires whether the
// download succeeded or not.
func (s *Service) renew(ctx context.Context, sessionID string, renewal *models.Request) {
	defer s.engine.ScheduleNext()

	resp, err := s.engine.Download(ctx, renewal)
	if err != nil {
		s.logger.Error().Err(err).
			Str("session_id", sessionID).
			Str("url", renewal.URL).
			Msg("Session renewal request failed")
		return
	}

	s.Jar(sessionID).RenewalDone()

	if renewal.Callback != nil {
		renewal.Callback(resp)
	}

	if s.eventService != nil {
		s.eventService.Publish(ctx, interfaces.Event{
			Type:      interfaces.EventSessionRenewed,
			Timestamp: time.Now(),
			Payload: map[string]interface{}{
				"session_id":    sessionID,
				"times_renewed": s.Jar(sessionID).TimesRenewed(),
			},
		})
	}

	s.persist(ctx, sessionID)
}

// List returns all known session ids, sorted.
func (s *Service) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.jars))
	for id := range s.jars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of known sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jars)
}

// persist writes the session snapshot when persistence is enabled.
func (s *Service) persist(ctx context.Context, sessionID string) {
	if s.storage == nil {
		return
	}

	j := s.Jar(sessionID)
	snapshot := &models.SessionSnapshot{
		ID:           sessionID,
		Cookies:      j.Flatten(),
		NeedsRenewal: j.NeedsRenewal(),
		TimesRenewed: j.TimesRenewed(),
	}

	if s.profiles != nil {
		if profile, err := s.profiles.Assigned(sessionID); err == nil {
			snapshot.ProfileName = profile.Name
		}
	}

	if err := s.storage.SaveSnapshot(ctx, snapshot); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to persist session snapshot")
	}
}

// PersistAll writes snapshots for every known session.
func (s *Service) PersistAll(ctx context.Context) {
	for _, id := range s.List() {
		s.persist(ctx, id)
	}
}

// Restore loads persisted session snapshots into fresh jars. Called once at
// startup, before the engine starts dispatching.
func (s *Service) Restore(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	snapshots, err := s.storage.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list session snapshots: %w", err)
	}

	s.mu.Lock()
	for _, snapshot := range snapshots {
		j := jar.New()
		j.Restore(snapshot.Cookies, snapshot.NeedsRenewal, snapshot.TimesRenewed)
		s.jars[snapshot.ID] = j
	}
	s.mu.Unlock()

	// Restored sessions re-enter rotation; the assignment may differ from the
	// profile recorded in the snapshot.
	if s.profiles != nil {
		for _, snapshot := range snapshots {
			if _, err := s.profiles.NewSession(snapshot.ID); err != nil {
				s.logger.Warn().Err(err).Str("session_id", snapshot.ID).Msg("Failed to assign profile to restored session")
			}
		}
	}

	if len(snapshots) > 0 {
		s.logger.Info().Int("count", len(snapshots)).Msg("Restored sessions from storage")
	}
	return nil
}
