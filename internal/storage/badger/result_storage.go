package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/interfaces"
	"github.com/ternarybob/kapture/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ResultStorage implements the ResultStorage interface for Badger
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResultStorage) StoreResult(ctx context.Context, record *models.ResultRecord) error {
	if record.ID == "" {
		return fmt.Errorf("result ID is required")
	}
	if record.RunID == "" {
		return fmt.Errorf("result run ID is required")
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// ListResultsByRun returns a run's results in input order.
func (s *ResultStorage) ListResultsByRun(ctx context.Context, runID string) ([]*models.ResultRecord, error) {
	var records []models.ResultRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("RunID").Eq(runID)); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Row != records[j].Row {
			return records[i].Row < records[j].Row
		}
		return records[i].StartedAt.Before(records[j].StartedAt)
	})

	result := make([]*models.ResultRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}
