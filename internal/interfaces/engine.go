package interfaces

import (
	"context"

	"github.com/scrapeloop/sessiond/internal/models"
)

// Engine is the download-and-schedule primitive of the scraping engine.
// Download dispatches a single request; ScheduleNext nudges the engine's
// scheduler after an out-of-band download (e.g. a session renewal) completes.
type Engine interface {
	Download(ctx context.Context, req *models.Request) (*models.Response, error)
	ScheduleNext()
}
