package interfaces

import (
	"context"

	"github.com/ternarybob/kapture/internal/models"
)

// SessionStorage persists authenticated browser session state between runs.
type SessionStorage interface {
	StoreSession(ctx context.Context, state *models.SessionState) error
	GetSessionByDomain(ctx context.Context, siteDomain string) (*models.SessionState, error)
	DeleteSession(ctx context.Context, id string) error
}

// ResultStorage persists per-target batch outcomes.
type ResultStorage interface {
	StoreResult(ctx context.Context, record *models.ResultRecord) error
	ListResultsByRun(ctx context.Context, runID string) ([]*models.ResultRecord, error)
}
