package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/insight/internal/evaluation"
	"github.com/aristath/insight/internal/evaluation/workers"
	"github.com/aristath/insight/internal/events"
	"github.com/aristath/insight/internal/modules/reports"
)

// RequestFunc builds a fresh evaluation request for an entity. The
// nightly job asks it for current fundamentals before re-scoring.
type RequestFunc func(entityID string) (*evaluation.Request, error)

// ReevaluationJob re-scores every known entity and archives the new
// reports. Entities whose request cannot be built are skipped and
// counted as failures.
type ReevaluationJob struct {
	repo       *reports.Repository
	requestFor RequestFunc
	pool       *workers.WorkerPool
	bus        *events.Bus
	log        zerolog.Logger
}

// NewReevaluationJob creates the nightly re-evaluation job.
func NewReevaluationJob(repo *reports.Repository, requestFor RequestFunc, pool *workers.WorkerPool, bus *events.Bus, log zerolog.Logger) *ReevaluationJob {
	return &ReevaluationJob{
		repo:       repo,
		requestFor: requestFor,
		pool:       pool,
		bus:        bus,
		log:        log.With().Str("job", "reevaluation").Logger(),
	}
}

// Name returns the job name.
func (j *ReevaluationJob) Name() string {
	return "reevaluation"
}

// Run re-evaluates all known entities.
func (j *ReevaluationJob) Run() error {
	start := time.Now()

	entityIDs, err := j.repo.EntityIDs()
	if err != nil {
		return fmt.Errorf("failed to list entities for re-evaluation: %w", err)
	}
	if len(entityIDs) == 0 {
		j.log.Debug().Msg("No entities to re-evaluate")
		return nil
	}

	failures := 0
	requests := make([]evaluation.Request, 0, len(entityIDs))
	for _, entityID := range entityIDs {
		req, err := j.requestFor(entityID)
		if err != nil {
			j.log.Warn().Err(err).Str("entity_id", entityID).Msg("Skipping entity, request build failed")
			failures++
			continue
		}
		requests = append(requests, *req)
	}

	batch := j.pool.EvaluateBatch(requests, func(done, total int) {
		j.log.Debug().Int("done", done).Int("total", total).Msg("Re-evaluation progress")
	})

	scoreSum := 0.0
	scored := 0
	for i, report := range batch {
		if err := j.repo.Save(report, &requests[i]); err != nil {
			j.log.Error().Err(err).Str("entity_id", report.EntityID).Msg("Failed to archive report")
			failures++
			continue
		}
		if report.Composite.Score != nil {
			scoreSum += *report.Composite.Score
			scored++
		}
	}

	avgScore := 0.0
	if scored > 0 {
		avgScore = scoreSum / float64(scored)
	}

	if j.bus != nil {
		j.bus.Publish(events.BatchCompleted, "scheduler", events.ToMap(&events.BatchCompletedData{
			Entities:   len(entityIDs),
			DurationMS: time.Since(start).Milliseconds(),
			Failures:   failures,
			AvgScore:   avgScore,
		}))
	}

	j.log.Info().
		Int("entities", len(entityIDs)).
		Int("failures", failures).
		Dur("duration", time.Since(start)).
		Msg("Re-evaluation batch complete")

	return nil
}
