package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/scrapeloop/sessiond/internal/interfaces"
	"github.com/scrapeloop/sessiond/internal/models"
)

// SessionStorage implements the SessionStorage interface for Badger
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SessionStorage) SaveSnapshot(ctx context.Context, snapshot *models.SessionSnapshot) error {
	if snapshot.ID == "" {
		return fmt.Errorf("session id is required")
	}

	now := time.Now().Unix()
	if snapshot.CreatedAt == 0 {
		snapshot.CreatedAt = now
	}
	snapshot.UpdatedAt = now

	if err := s.db.Store().Upsert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to store session snapshot: %w", err)
	}
	return nil
}

func (s *SessionStorage) GetSnapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error) {
	var snapshot models.SessionSnapshot
	if err := s.db.Store().Get(sessionID, &snapshot); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("session snapshot not found: %s: %w", sessionID, interfaces.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *SessionStorage) ListSnapshots(ctx context.Context) ([]*models.SessionSnapshot, error) {
	var snapshots []models.SessionSnapshot
	if err := s.db.Store().Find(&snapshots, nil); err != nil {
		return nil, fmt.Errorf("failed to list session snapshots: %w", err)
	}

	result := make([]*models.SessionSnapshot, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}

func (s *SessionStorage) DeleteSnapshot(ctx context.Context, sessionID string) error {
	if err := s.db.Store().Delete(sessionID, &models.SessionSnapshot{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}
