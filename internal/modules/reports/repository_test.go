package reports

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/insight/internal/database"
	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/internal/evaluation"
	"github.com/aristath/insight/internal/scoring/narrative"
)

func testRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "evaluations.db"),
		Profile: database.ProfileArchive,
		Name:    "evaluations",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	return NewRepository(db.Conn(), zerolog.Nop())
}

func testReport(id, entity string, generatedAt time.Time) *evaluation.Report {
	evaluator := evaluation.New(zerolog.Nop(),
		evaluation.WithIDFunc(func() string { return id }),
		evaluation.WithClock(func() time.Time { return generatedAt }),
	)
	return evaluator.Evaluate(evaluation.Request{
		EntityID: entity,
		Sector:   "industrials",
		AsOf:     generatedAt.AddDate(0, 0, -1),
		Meta:     domain.EntityMeta{HistoryYears: 5, YearsSinceListing: 5, Volatility: domain.VolatilityLow},
	})
}

func TestSaveAndGetByID(t *testing.T) {
	repo := testRepository(t)
	report := testReport("r1", "ACME", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, repo.Save(report, nil))

	loaded, err := repo.GetByID("r1")
	require.NoError(t, err)
	assert.Equal(t, report.EntityID, loaded.EntityID)
	assert.Equal(t, report.Composite.Category, loaded.Composite.Category)
	assert.Equal(t, report.GeneratedAt.Unix(), loaded.GeneratedAt.Unix())
}

func TestSave_RoundTripsNarratives(t *testing.T) {
	repo := testRepository(t)
	report := testReport("r1", "ACME", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	report.Narratives = []narrative.Anchor{
		{
			ID:           "structural-fragility",
			Label:        "Fundamentals flip between profit and loss",
			Tone:         domain.ToneNegative,
			Highlight:    []string{"repeated sign changes"},
			TemporalHint: narrative.HintPersistent,
			Dominance:    narrative.DominancePrimary,
		},
	}

	require.NoError(t, repo.Save(report, nil))

	loaded, err := repo.GetByID("r1")
	require.NoError(t, err)
	require.Len(t, loaded.Narratives, 1)
	assert.Equal(t, report.Narratives[0], loaded.Narratives[0])
}

func TestGetByID_NotFound(t *testing.T) {
	repo := testRepository(t)

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_DuplicateIDFails(t *testing.T) {
	repo := testRepository(t)
	report := testReport("r1", "ACME", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, repo.Save(report, nil))
	assert.Error(t, repo.Save(report, nil))
}

func TestGetLatestForEntity(t *testing.T) {
	repo := testRepository(t)

	older := testReport("r1", "ACME", time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	newer := testReport("r2", "ACME", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	other := testReport("r3", "OTHER", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(older, nil))
	require.NoError(t, repo.Save(newer, nil))
	require.NoError(t, repo.Save(other, nil))

	latest, err := repo.GetLatestForEntity("ACME")
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
}

func TestGetLatestRequest_RoundTripsSnapshot(t *testing.T) {
	repo := testRepository(t)

	report := testReport("r1", "ACME", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	seed := int64(42)
	req := &evaluation.Request{
		EntityID: "ACME",
		Sector:   "industrials",
		AsOf:     time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
		Meta:     domain.EntityMeta{HistoryYears: 5, YearsSinceListing: 5, Volatility: domain.VolatilityLow},
		Samples:  map[evaluation.Metric][]float64{evaluation.MetricROIC: {0.08, 0.12, 0.1}},
		Seed:     &seed,
	}
	require.NoError(t, repo.Save(report, req))

	loaded, err := repo.GetLatestRequest("ACME")
	require.NoError(t, err)
	assert.Equal(t, "ACME", loaded.EntityID)
	assert.Equal(t, "industrials", loaded.Sector)
	assert.Equal(t, req.Samples, loaded.Samples)
	require.NotNil(t, loaded.Seed)
	assert.Equal(t, seed, *loaded.Seed)
}

func TestGetLatestRequest_SkipsRowsWithoutSnapshot(t *testing.T) {
	repo := testRepository(t)

	withSnapshot := testReport("r1", "ACME", time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	req := &evaluation.Request{EntityID: "ACME", Sector: "industrials"}
	require.NoError(t, repo.Save(withSnapshot, req))

	newerWithout := testReport("r2", "ACME", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(newerWithout, nil))

	loaded, err := repo.GetLatestRequest("ACME")
	require.NoError(t, err)
	assert.Equal(t, "industrials", loaded.Sector)

	_, err = repo.GetLatestRequest("UNKNOWN")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRecent_NewestFirst(t *testing.T) {
	repo := testRepository(t)

	for i, id := range []string{"r1", "r2", "r3"} {
		report := testReport(id, "ACME", time.Date(2026, 7, 1+i, 10, 0, 0, 0, time.UTC))
		require.NoError(t, repo.Save(report, nil))
	}

	summaries, err := repo.ListRecent(2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "r3", summaries[0].ID)
	assert.Equal(t, "r2", summaries[1].ID)
	assert.Nil(t, summaries[0].Score, "pending composite stores a null score")
}

func TestListForEntity(t *testing.T) {
	repo := testRepository(t)

	require.NoError(t, repo.Save(testReport("r1", "ACME", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)), nil))
	require.NoError(t, repo.Save(testReport("r2", "OTHER", time.Date(2026, 7, 2, 10, 0, 0, 0, time.UTC)), nil))

	summaries, err := repo.ListForEntity("ACME", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "r1", summaries[0].ID)
}

func TestEntityIDs(t *testing.T) {
	repo := testRepository(t)

	require.NoError(t, repo.Save(testReport("r1", "BETA", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)), nil))
	require.NoError(t, repo.Save(testReport("r2", "ACME", time.Date(2026, 7, 2, 10, 0, 0, 0, time.UTC)), nil))
	require.NoError(t, repo.Save(testReport("r3", "ACME", time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC)), nil))

	ids, err := repo.EntityIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME", "BETA"}, ids)
}

func TestDeleteOlderThan(t *testing.T) {
	repo := testRepository(t)

	require.NoError(t, repo.Save(testReport("old", "ACME", time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)), nil))
	require.NoError(t, repo.Save(testReport("new", "ACME", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)), nil))

	deleted, err := repo.DeleteOlderThan(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.GetByID("old")
	assert.ErrorIs(t, err, ErrNotFound)
}
