package interfaces

import "errors"

var (
	// ErrSessionNotFound is returned when a session id has no ledger entry.
	ErrSessionNotFound = errors.New("session not found")

	// ErrProfilesDisabled is returned when a profile lookup is requested but
	// profile sync is not enabled in configuration.
	ErrProfilesDisabled = errors.New("profile sync is not enabled")

	// ErrNoProfiles is returned when rotation is asked for a fresh profile
	// but no profiles were loaded.
	ErrNoProfiles = errors.New("no profiles available")
)
