package moat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/insight/internal/domain"
)

func steadyHistory(years int) []YearRecord {
	history := make([]YearRecord, 0, years)
	for i := 0; i < years; i++ {
		history = append(history, YearRecord{
			Year:            2019 + i,
			ROIC:            0.15,
			OperatingMargin: 0.20,
		})
	}
	return history
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	assert.Nil(t, Analyze(Input{History: nil}))
	assert.Nil(t, Analyze(Input{History: steadyHistory(2)}), "exactly 2 years must be absent")
}

func TestAnalyze_StatusByHistoryDepth(t *testing.T) {
	partial := Analyze(Input{History: steadyHistory(3), SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, partial)
	assert.Equal(t, StatusPartial, partial.Status)
	assert.Equal(t, PartialConfidence, partial.Confidence)
	assert.Equal(t, 3, partial.YearsUsed)

	computed := Analyze(Input{History: steadyHistory(5), SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, computed)
	assert.Equal(t, StatusComputed, computed.Status)
	assert.Equal(t, ComputedConfidence, computed.Confidence)
	assert.Equal(t, 5, computed.YearsUsed)
}

func TestAnalyze_CapsAtFiveMostRecentYears(t *testing.T) {
	history := steadyHistory(8)
	// Make the three oldest years terrible; they must not matter.
	history[0].ROIC = -0.50
	history[1].ROIC = -0.50
	history[2].ROIC = -0.50

	result := Analyze(Input{History: history, SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, result)
	assert.Equal(t, 5, result.YearsUsed)
	assert.Equal(t, 100.0, result.Pillars.Persistence, "only the recent window counts")
}

func TestAnalyze_PersistencePenalizesVolatileROIC(t *testing.T) {
	stable := Analyze(Input{History: steadyHistory(5), SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, stable)
	assert.Equal(t, 100.0, stable.Pillars.Persistence)

	volatile := []YearRecord{
		{Year: 2019, ROIC: 0.30, OperatingMargin: 0.20},
		{Year: 2020, ROIC: 0.12, OperatingMargin: 0.20},
		{Year: 2021, ROIC: 0.35, OperatingMargin: 0.20},
		{Year: 2022, ROIC: 0.11, OperatingMargin: 0.20},
		{Year: 2023, ROIC: 0.32, OperatingMargin: 0.20},
	}
	result := Analyze(Input{History: volatile, SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, result)
	assert.Less(t, result.Pillars.Persistence, 100.0, "volatile ROIC must be penalized")
	assert.GreaterOrEqual(t, result.Pillars.Persistence, 80.0, "penalty is capped at 20 points")
}

func TestCoherence_BoundaryExclusive(t *testing.T) {
	// revenueGrowth 0.051 with margin +0.001 -> High Quality Growth / 100.
	history := []YearRecord{
		{Year: 2021, ROIC: 0.15, OperatingMargin: 0.200, Revenue: domain.Float(1000)},
		{Year: 2022, ROIC: 0.15, OperatingMargin: 0.200, Revenue: domain.Float(1000)},
		{Year: 2023, ROIC: 0.15, OperatingMargin: 0.201, Revenue: domain.Float(1051)},
	}
	result := Analyze(Input{History: history, SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, result)
	assert.Equal(t, VerdictHighQualityGrowth, result.Coherence.Verdict)
	assert.Equal(t, 100.0, result.Coherence.Score)
	assert.True(t, result.Coherence.Applicable)

	// Exactly 5% growth and flat margin -> Neutral 50, not applicable.
	boundary := []YearRecord{
		{Year: 2021, ROIC: 0.15, OperatingMargin: 0.20, Revenue: domain.Float(1000)},
		{Year: 2022, ROIC: 0.15, OperatingMargin: 0.20, Revenue: domain.Float(1000)},
		{Year: 2023, ROIC: 0.15, OperatingMargin: 0.20, Revenue: domain.Float(1050)},
	}
	result = Analyze(Input{History: boundary, SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, result)
	assert.Equal(t, VerdictNeutral, result.Coherence.Verdict)
	assert.Equal(t, CoherenceScoreNotApplied, result.Coherence.Score)
	assert.False(t, result.Coherence.Applicable)
}

func TestCoherence_InefficientGrowthPenalizesMarginPillar(t *testing.T) {
	clean := []YearRecord{
		{Year: 2021, ROIC: 0.15, OperatingMargin: 0.20, Revenue: domain.Float(1000)},
		{Year: 2022, ROIC: 0.15, OperatingMargin: 0.20, Revenue: domain.Float(1000)},
		{Year: 2023, ROIC: 0.15, OperatingMargin: 0.20, Revenue: domain.Float(1020)},
	}
	inefficient := []YearRecord{
		{Year: 2021, ROIC: 0.15, OperatingMargin: 0.20, Revenue: domain.Float(1000)},
		{Year: 2022, ROIC: 0.15, OperatingMargin: 0.20, Revenue: domain.Float(1000)},
		{Year: 2023, ROIC: 0.15, OperatingMargin: 0.18, Revenue: domain.Float(1100)},
	}

	cleanResult := Analyze(Input{History: clean, SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	inefficientResult := Analyze(Input{History: inefficient, SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, cleanResult)
	require.NotNil(t, inefficientResult)

	assert.Equal(t, VerdictInefficientGrowth, inefficientResult.Coherence.Verdict)
	assert.Equal(t, CoherenceScoreInefficient, inefficientResult.Coherence.Score)
	assert.Less(t, inefficientResult.Pillars.MarginStability, cleanResult.Pillars.MarginStability)
}

func TestCapitalDiscipline_StagnationNeverRewarded(t *testing.T) {
	history := []YearRecord{
		{Year: 2021, ROIC: 0.10, OperatingMargin: 0.20, InvestedCapital: domain.Float(1000)},
		{Year: 2022, ROIC: 0.20, OperatingMargin: 0.20, InvestedCapital: domain.Float(1010)},
		{Year: 2023, ROIC: 0.30, OperatingMargin: 0.20, InvestedCapital: domain.Float(1030)},
	}

	result := Analyze(Input{History: history, SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, result)
	require.NotNil(t, result.Pillars.CapitalDiscipline)
	// Capital grew 3% (<= 5%): neutral band despite a 20-point ROIC gain.
	assert.Equal(t, CapitalScoreStagnant, *result.Pillars.CapitalDiscipline)
}

func TestCapitalDiscipline_Bands(t *testing.T) {
	build := func(oldROIC, newROIC float64) Input {
		return Input{
			History: []YearRecord{
				{Year: 2021, ROIC: oldROIC, OperatingMargin: 0.20, InvestedCapital: domain.Float(1000)},
				{Year: 2022, ROIC: (oldROIC + newROIC) / 2, OperatingMargin: 0.20, InvestedCapital: domain.Float(1100)},
				{Year: 2023, ROIC: newROIC, OperatingMargin: 0.20, InvestedCapital: domain.Float(1300)},
			},
			SectorMedianROIC:   0.10,
			SectorMedianMargin: 0.15,
		}
	}

	expanding := Analyze(build(0.10, 0.15))
	require.NotNil(t, expanding)
	assert.Equal(t, CapitalScoreExpanding, *expanding.Pillars.CapitalDiscipline)

	steady := Analyze(build(0.10, 0.11))
	require.NotNil(t, steady)
	assert.Equal(t, CapitalScoreSteady, *steady.Pillars.CapitalDiscipline)

	slipping := Analyze(build(0.10, 0.085))
	require.NotNil(t, slipping)
	assert.Equal(t, CapitalScoreSlipping, *slipping.Pillars.CapitalDiscipline)

	eroding := Analyze(build(0.10, 0.05))
	require.NotNil(t, eroding)
	assert.Equal(t, CapitalScoreEroding, *eroding.Pillars.CapitalDiscipline)
}

func TestAnalyze_WeightsShiftWithoutCapitalData(t *testing.T) {
	// Same years, no invested capital: 70/30 persistence/margin weighting.
	result := Analyze(Input{History: steadyHistory(5), SectorMedianROIC: 0.10, SectorMedianMargin: 0.15})
	require.NotNil(t, result)
	assert.Nil(t, result.Pillars.CapitalDiscipline)

	expected := result.Pillars.Persistence*WeightPersistenceNoCapital +
		result.Pillars.MarginStability*WeightMarginNoCapital
	assert.InDelta(t, expected, result.Score, 0.5)
}

func TestAnalyze_Idempotent(t *testing.T) {
	input := Input{History: steadyHistory(5), SectorMedianROIC: 0.10, SectorMedianMargin: 0.15}
	assert.Equal(t, Analyze(input), Analyze(input))
}
