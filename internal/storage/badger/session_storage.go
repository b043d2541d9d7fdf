package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/interfaces"
	"github.com/ternarybob/kapture/internal/models"
	"github.com/timshannon/badgerhold/v4"
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

func (s *SessionStorage) StoreSession(ctx context.Context, state *models.SessionState) error {
	if state.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	if state.SiteDomain == "" {
		return fmt.Errorf("session site domain is required")
	}

	now := time.Now()
	if state.CapturedAt.IsZero() {
		state.CapturedAt = now
	}
	state.UpdatedAt = now

	if err := s.db.Store().Upsert(state.ID, state); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Debug().
		Str("site_domain", state.SiteDomain).
		Int("cookie_count", len(state.Cookies)).
		Msg("Session stored")
	return nil
}

// GetSessionByDomain returns the most recently updated session for a portal
// domain, or nil when none is stored.
func (s *SessionStorage) GetSessionByDomain(ctx context.Context, siteDomain string) (*models.SessionState, error) {
	var sessions []models.SessionState
	if err := s.db.Store().Find(&sessions, badgerhold.Where("SiteDomain").Eq(siteDomain)); err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	latest := &sessions[0]
	for i := range sessions[1:] {
		if sessions[i+1].UpdatedAt.After(latest.UpdatedAt) {
			latest = &sessions[i+1]
		}
	}
	return latest, nil
}

func (s *SessionStorage) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.SessionState{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
