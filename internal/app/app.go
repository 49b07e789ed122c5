package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/common"
	"github.com/scrapeloop/sessiond/internal/engine"
	"github.com/scrapeloop/sessiond/internal/handlers"
	"github.com/scrapeloop/sessiond/internal/interfaces"
	"github.com/scrapeloop/sessiond/internal/services/events"
	"github.com/scrapeloop/sessiond/internal/services/profiles"
	"github.com/scrapeloop/sessiond/internal/services/scheduler"
	"github.com/scrapeloop/sessiond/internal/services/sessions"
	badgerstorage "github.com/scrapeloop/sessiond/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DB             *badgerstorage.BadgerDB
	SessionStorage interfaces.SessionStorage

	EventService   interfaces.EventService
	ProfileService *profiles.Service // nil when profile sync is disabled
	SessionService *sessions.Service
	Engine         *engine.HTTPEngine
	Sweeper        *scheduler.Sweeper

	SessionHandler  *handlers.SessionHandler
	ProfilesHandler *handlers.ProfilesHandler
	StatusHandler   *handlers.StatusHandler
	WSHandler       *handlers.WebSocketHandler
}

// New creates and wires the application
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	a.EventService = events.NewService(logger)

	// Profile sync: load profiles from disk and build the rotation ledger
	if config.Profiles.Sync {
		loaded, err := profiles.LoadFromDir(config.Profiles.Dir, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		if len(loaded) == 0 {
			logger.Warn().Str("dir", config.Profiles.Dir).Msg("Profile sync enabled but no profiles loaded")
		}
		a.ProfileService = profiles.NewService(loaded, a.EventService, logger)
	}

	// Session persistence
	if config.Sessions.Persist {
		db, err := badgerstorage.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.DB = db
		a.SessionStorage = badgerstorage.NewSessionStorage(db, logger)
	}

	// OnScheduleNext stays unbound in the standalone service; it is a hook for
	// embedders that run their own request scheduler.
	a.Engine = engine.New(&config.Engine, logger)
	a.SessionService = sessions.NewService(a.ProfileService, a.Engine, a.SessionStorage, a.EventService, logger)

	// The engine resolves jars and profiles through the services it serves
	a.Engine.SetJarSource(a.SessionService)
	if a.ProfileService != nil {
		a.Engine.SetProfileApplier(a.ProfileService)
	}

	if err := a.SessionService.Restore(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Failed to restore persisted sessions")
	}

	// Idle-assignment eviction
	if a.ProfileService != nil && config.Sessions.SweepSchedule != "" {
		a.Sweeper = scheduler.NewSweeper(a.ProfileService, config.Sessions.MaxIdle, logger)
		if err := a.Sweeper.Start(config.Sessions.SweepSchedule); err != nil {
			return nil, fmt.Errorf("failed to start assignment sweeper: %w", err)
		}
	}

	// HTTP handlers
	a.SessionHandler = handlers.NewSessionHandler(a.SessionService, logger)
	if a.ProfileService != nil {
		a.ProfilesHandler = handlers.NewProfilesHandler(a.ProfileService, config.Profiles.Dir, logger)
		a.StatusHandler = handlers.NewStatusHandler(a.SessionService, a.ProfileService, logger)
	} else {
		a.ProfilesHandler = handlers.NewProfilesHandler(nil, "", logger)
		a.StatusHandler = handlers.NewStatusHandler(a.SessionService, nil, logger)
	}
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, logger, &config.WebSocket)

	logger.Info().
		Bool("profile_sync", a.ProfileService != nil).
		Bool("persistence", a.SessionStorage != nil).
		Msg("Application initialized")

	return a, nil
}

// Close shuts down application components in reverse dependency order
func (a *App) Close() {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}

	if a.SessionStorage != nil {
		a.SessionService.PersistAll(context.Background())
	}

	if a.EventService != nil {
		a.EventService.Close()
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
