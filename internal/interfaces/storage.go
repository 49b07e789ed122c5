package interfaces

import (
	"context"

	"github.com/scrapeloop/sessiond/internal/models"
)

// SessionStorage persists session snapshots.
type SessionStorage interface {
	SaveSnapshot(ctx context.Context, snapshot *models.SessionSnapshot) error
	GetSnapshot(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	ListSnapshots(ctx context.Context) ([]*models.SessionSnapshot, error)
	DeleteSnapshot(ctx context.Context, sessionID string) error
}
