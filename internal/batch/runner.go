// -----------------------------------------------------------------------
// Batch Runner
// Sequential capture over a target list: one shared session, per-target
// result records, CSV results log, and badgerhold persistence
// -----------------------------------------------------------------------

package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/kapture/internal/common"
	"github.com/ternarybob/kapture/internal/interfaces"
	"github.com/ternarybob/kapture/internal/models"
	"github.com/ternarybob/kapture/internal/pipeline"
	"golang.org/x/time/rate"
)

// TargetRunner captures a single target. Satisfied by *pipeline.Pipeline.
type TargetRunner interface {
	Run(ctx context.Context, target models.Target) *pipeline.Result
}

// Summary aggregates one batch run.
type Summary struct {
	RunID    string
	Total    int
	OK       int
	Thin     int
	Failed   int
	Skipped  int
	CSVPath  string
	Duration time.Duration
}

// Runner iterates a target list through the capture pipeline.
type Runner struct {
	pipeline  TargetRunner
	results   interfaces.ResultStorage // may be nil
	config    common.BatchConfig
	outputDir string
	logger    arbor.ILogger
}

// NewRunner creates a batch runner. results may be nil when persistence is
// not configured.
func NewRunner(p TargetRunner, results interfaces.ResultStorage, config common.BatchConfig, outputDir string, logger arbor.ILogger) *Runner {
	return &Runner{
		pipeline:  p,
		results:   results,
		config:    config,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Run captures every target in order. A fatal error (interactive login
// required) aborts the remaining targets; everything else is recorded and
// the run continues.
func (r *Runner) Run(ctx context.Context, targets []models.Target) (*Summary, error) {
	started := time.Now()
	summary := &Summary{
		RunID: uuid.NewString(),
		Total: len(targets),
	}

	r.logger.Info().
		Str("run_id", summary.RunID).
		Int("targets", len(targets)).
		Msg("Batch run started")

	// The limiter spaces targets out so the portal never sees a burst.
	var limiter *rate.Limiter
	if r.config.TargetDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(r.config.TargetDelay), 1)
	}

	var records []*models.ResultRecord
	aborted := false

	for i, target := range targets {
		if aborted {
			summary.Skipped = len(targets) - i
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				summary.Skipped = len(targets) - i
				break
			}
		}

		targetStart := time.Now()
		res := r.pipeline.Run(ctx, target)

		record := &models.ResultRecord{
			ID:        uuid.NewString(),
			RunID:     summary.RunID,
			TargetID:  target.ID,
			Row:       target.Row,
			InputURL:  target.SourceURL,
			UsedURL:   target.DirectURL,
			FinalURL:  res.FinalURL,
			Title:     res.Title,
			OutFiles:  res.OutFiles,
			Status:    res.Status,
			StartedAt: targetStart,
			Elapsed:   time.Since(targetStart),
		}
		if res.Err != nil {
			record.Error = res.Err.Error()
		}
		records = append(records, record)

		switch res.Status {
		case models.StatusOK:
			summary.OK++
		case models.StatusThinContent:
			summary.Thin++
		case models.StatusFailed:
			summary.Failed++
		}

		if r.results != nil {
			if err := r.results.StoreResult(ctx, record); err != nil {
				r.logger.Warn().Err(err).Str("target", target.ID).Msg("Failed to persist result record")
			}
		}

		if res.Err != nil && pipeline.IsFatal(res.Err) {
			r.logger.Error().
				Err(res.Err).
				Str("target", target.ID).
				Msg("Fatal error, aborting remaining targets")
			aborted = true
		}
	}

	summary.Duration = time.Since(started)

	if r.config.ResultsCSV && len(records) > 0 {
		path, err := r.writeResultsCSV(records)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Failed to write results CSV")
		} else {
			summary.CSVPath = path
		}
	}

	r.logger.Info().
		Str("run_id", summary.RunID).
		Int("ok", summary.OK).
		Int("thin", summary.Thin).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Dur("duration", summary.Duration).
		Msg("Batch run finished")

	if aborted {
		return summary, fmt.Errorf("batch aborted: %w", pipelineErr(records))
	}
	return summary, nil
}

func pipelineErr(records []*models.ResultRecord) error {
	last := records[len(records)-1]
	return fmt.Errorf("target %s: %s", last.TargetID, last.Error)
}

func (r *Runner) writeResultsCSV(records []*models.ResultRecord) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("results_%s.csv", common.Timestamp()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create results CSV: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"row", "target", "status", "title", "input_url", "used_url", "final_url", "elapsed_ms", "files", "error"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		line := []string{
			strconv.Itoa(rec.Row),
			rec.TargetID,
			string(rec.Status),
			rec.Title,
			rec.InputURL,
			rec.UsedURL,
			rec.FinalURL,
			strconv.FormatInt(rec.Elapsed.Milliseconds(), 10),
			strings.Join(rec.OutFiles, ";"),
			rec.Error,
		}
		if err := w.Write(line); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return path, nil
}
