package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/insight/internal/database"
	"github.com/aristath/insight/internal/events"
	"github.com/aristath/insight/internal/modules/benchmarks"
	"github.com/aristath/insight/internal/modules/reports"
)

// DefaultReportRetention keeps five years of archived reports.
const DefaultReportRetention = 5 * 365 * 24 * time.Hour

// MaintenanceJob prunes the report archive, purges expired benchmark
// cache entries and truncates the WAL on both databases.
type MaintenanceJob struct {
	evaluationsDB *database.DB
	cacheDB       *database.DB
	repo          *reports.Repository
	cache         *benchmarks.Cache
	retention     time.Duration
	bus           *events.Bus
	log           zerolog.Logger
	now           func() time.Time
}

// NewMaintenanceJob creates the maintenance job. A non-positive
// retention falls back to DefaultReportRetention.
func NewMaintenanceJob(evaluationsDB, cacheDB *database.DB, repo *reports.Repository, cache *benchmarks.Cache, retention time.Duration, bus *events.Bus, log zerolog.Logger) *MaintenanceJob {
	if retention <= 0 {
		retention = DefaultReportRetention
	}
	return &MaintenanceJob{
		evaluationsDB: evaluationsDB,
		cacheDB:       cacheDB,
		repo:          repo,
		cache:         cache,
		retention:     retention,
		bus:           bus,
		log:           log.With().Str("job", "maintenance").Logger(),
		now:           time.Now,
	}
}

// Name returns the job name.
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run performs one maintenance pass.
func (j *MaintenanceJob) Run() error {
	pruned, err := j.repo.DeleteOlderThan(j.now().Add(-j.retention))
	if err != nil {
		return fmt.Errorf("failed to prune report archive: %w", err)
	}

	purged, err := j.cache.PurgeExpired()
	if err != nil {
		return fmt.Errorf("failed to purge benchmark cache: %w", err)
	}

	for _, db := range []*database.DB{j.evaluationsDB, j.cacheDB} {
		if db == nil {
			continue
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if j.bus != nil {
		j.bus.Publish(events.MaintenanceCompleted, "scheduler", events.ToMap(&events.MaintenanceCompletedData{
			ReportsPruned: pruned,
			CachePurged:   purged,
		}))
	}

	j.log.Info().
		Int64("reports_pruned", pruned).
		Int64("cache_purged", purged).
		Msg("Maintenance pass complete")

	return nil
}
