package scheduler

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/insight/internal/database"
	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/internal/evaluation"
	"github.com/aristath/insight/internal/evaluation/workers"
	"github.com/aristath/insight/internal/events"
	"github.com/aristath/insight/internal/modules/benchmarks"
	"github.com/aristath/insight/internal/modules/reports"
)

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())

	job := &countingJob{name: "counting"}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

func TestRunNow_PropagatesJobError(t *testing.T) {
	s := New(zerolog.Nop())

	job := &countingJob{name: "failing", err: fmt.Errorf("boom")}
	assert.Error(t, s.RunNow(job))
}

func TestAddJob_RejectsInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &countingJob{name: "bad"})
	assert.Error(t, err)
}

func TestAddJob_AcceptsStandardSchedules(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 3 * * *", &countingJob{name: "nightly"}))
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "hourly"}))
	require.NoError(t, s.AddJob("@every 30m", &countingJob{name: "interval"}))
}

func testDatabases(t *testing.T) (*database.DB, *database.DB) {
	t.Helper()

	dir := t.TempDir()

	evaluationsDB, err := database.New(database.Config{
		Path:    filepath.Join(dir, "evaluations.db"),
		Profile: database.ProfileArchive,
		Name:    "evaluations",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = evaluationsDB.Close() })
	require.NoError(t, evaluationsDB.Migrate())

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(dir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheDB.Close() })
	require.NoError(t, cacheDB.Migrate())

	return evaluationsDB, cacheDB
}

func seedReport(t *testing.T, repo *reports.Repository, entityID string) {
	t.Helper()

	evaluator := evaluation.New(zerolog.Nop())
	req := evaluation.Request{
		EntityID: entityID,
		Sector:   "industrials",
		Meta:     domain.EntityMeta{HistoryYears: 5, YearsSinceListing: 5, Volatility: domain.VolatilityLow},
	}
	report := evaluator.Evaluate(req)
	require.NoError(t, repo.Save(report, &req))
}

func TestReevaluationJob_RescoresAllEntities(t *testing.T) {
	evaluationsDB, _ := testDatabases(t)
	repo := reports.NewRepository(evaluationsDB.Conn(), zerolog.Nop())

	seedReport(t, repo, "ACME")
	seedReport(t, repo, "BETA")

	bus := events.NewBus(zerolog.Nop())
	var batchEvents []*events.Event
	bus.Subscribe(events.BatchCompleted, func(event *events.Event) {
		batchEvents = append(batchEvents, event)
	})

	var requested []string
	requestFor := func(entityID string) (*evaluation.Request, error) {
		requested = append(requested, entityID)
		return &evaluation.Request{
			EntityID: entityID,
			Sector:   "industrials",
			Meta:     domain.EntityMeta{HistoryYears: 5, YearsSinceListing: 5, Volatility: domain.VolatilityLow},
		}, nil
	}

	pool := workers.NewWorkerPool(2, evaluation.New(zerolog.Nop()))
	job := NewReevaluationJob(repo, requestFor, pool, bus, zerolog.Nop())

	before, err := repo.Count()
	require.NoError(t, err)

	require.NoError(t, job.Run())

	assert.ElementsMatch(t, []string{"ACME", "BETA"}, requested)

	after, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, before+2, after)

	require.Len(t, batchEvents, 1)
	assert.EqualValues(t, 2, batchEvents[0].Data["entities"])
	assert.EqualValues(t, 0, batchEvents[0].Data["failures"])
}

func TestReevaluationJob_CountsRequestFailures(t *testing.T) {
	evaluationsDB, _ := testDatabases(t)
	repo := reports.NewRepository(evaluationsDB.Conn(), zerolog.Nop())

	seedReport(t, repo, "ACME")
	seedReport(t, repo, "BETA")

	bus := events.NewBus(zerolog.Nop())
	var batchEvents []*events.Event
	bus.Subscribe(events.BatchCompleted, func(event *events.Event) {
		batchEvents = append(batchEvents, event)
	})

	requestFor := func(entityID string) (*evaluation.Request, error) {
		if entityID == "BETA" {
			return nil, fmt.Errorf("no fundamentals for %s", entityID)
		}
		return &evaluation.Request{
			EntityID: entityID,
			Sector:   "industrials",
			Meta:     domain.EntityMeta{HistoryYears: 5, YearsSinceListing: 5, Volatility: domain.VolatilityLow},
		}, nil
	}

	pool := workers.NewWorkerPool(2, evaluation.New(zerolog.Nop()))
	job := NewReevaluationJob(repo, requestFor, pool, bus, zerolog.Nop())

	require.NoError(t, job.Run())

	require.Len(t, batchEvents, 1)
	assert.EqualValues(t, 1, batchEvents[0].Data["failures"])
}

func TestReevaluationJob_NoEntitiesIsANoOp(t *testing.T) {
	evaluationsDB, _ := testDatabases(t)
	repo := reports.NewRepository(evaluationsDB.Conn(), zerolog.Nop())

	bus := events.NewBus(zerolog.Nop())
	var batchEvents []*events.Event
	bus.Subscribe(events.BatchCompleted, func(event *events.Event) {
		batchEvents = append(batchEvents, event)
	})

	pool := workers.NewWorkerPool(2, evaluation.New(zerolog.Nop()))
	job := NewReevaluationJob(repo, func(string) (*evaluation.Request, error) {
		t.Fatal("requestFor should not be called")
		return nil, nil
	}, pool, bus, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Empty(t, batchEvents)
}

func TestMaintenanceJob_PrunesAndPurges(t *testing.T) {
	evaluationsDB, cacheDB := testDatabases(t)
	repo := reports.NewRepository(evaluationsDB.Conn(), zerolog.Nop())
	cache := benchmarks.NewCache(cacheDB.Conn(), zerolog.Nop())

	seedReport(t, repo, "ACME")

	bus := events.NewBus(zerolog.Nop())
	var maintenanceEvents []*events.Event
	bus.Subscribe(events.MaintenanceCompleted, func(event *events.Event) {
		maintenanceEvents = append(maintenanceEvents, event)
	})

	job := NewMaintenanceJob(evaluationsDB, cacheDB, repo, cache, 30*24*time.Hour, bus, zerolog.Nop())

	require.NoError(t, job.Run())

	// Fresh report survives a 30 day retention window
	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, maintenanceEvents, 1)
	assert.EqualValues(t, 0, maintenanceEvents[0].Data["reports_pruned"])
}

func TestMaintenanceJob_DefaultsRetention(t *testing.T) {
	evaluationsDB, cacheDB := testDatabases(t)
	repo := reports.NewRepository(evaluationsDB.Conn(), zerolog.Nop())
	cache := benchmarks.NewCache(cacheDB.Conn(), zerolog.Nop())

	job := NewMaintenanceJob(evaluationsDB, cacheDB, repo, cache, 0, nil, zerolog.Nop())
	assert.Equal(t, DefaultReportRetention, job.retention)
}
