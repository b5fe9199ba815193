package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/insight/internal/domain"
)

func TestClassify_FullStrengthEntity(t *testing.T) {
	result := Classify(domain.EntityMeta{
		HistoryYears:       12,
		YearsSinceListing:  8,
		Volatility:         domain.VolatilityLow,
		MissingCoreMetrics: 0,
	})

	assert.Equal(t, 100, result.ConfidencePercent)
	assert.Equal(t, LabelHigh, result.Label)
	assert.Equal(t, MaturityMature, result.Maturity)
}

func TestClassify_RecentListingNeverMature(t *testing.T) {
	// Long fundamentals history, but listed yesterday: confidence drops
	// below the Mature gate through the listing-age factor.
	result := Classify(domain.EntityMeta{
		HistoryYears:       10,
		YearsSinceListing:  0,
		Volatility:         domain.VolatilityLow,
		MissingCoreMetrics: 0,
	})

	assert.Equal(t, 40, result.ConfidencePercent)
	assert.Equal(t, LabelLow, result.Label)
	assert.Equal(t, MaturityEarlyStage, result.Maturity)
}

func TestClassify_ShortHistoryIsDevelopingNotMature(t *testing.T) {
	// Rich coverage, short life: Developing, never Mature.
	result := Classify(domain.EntityMeta{
		HistoryYears:       5,
		YearsSinceListing:  6,
		Volatility:         domain.VolatilityLow,
		MissingCoreMetrics: 0,
	})

	assert.Equal(t, 75, result.ConfidencePercent)
	assert.Equal(t, LabelMedium, result.Label)
	assert.Equal(t, MaturityDeveloping, result.Maturity)
}

func TestClassify_MissingMetricsAlwaysIncomplete(t *testing.T) {
	// Two missing core metrics override everything, even a 15-year history
	// with otherwise perfect factors.
	result := Classify(domain.EntityMeta{
		HistoryYears:       15,
		YearsSinceListing:  10,
		Volatility:         domain.VolatilityLow,
		MissingCoreMetrics: 2,
	})

	assert.Equal(t, MaturityIncomplete, result.Maturity)
	assert.Equal(t, 65, result.ConfidencePercent)
}

func TestClassify_Monotonicity(t *testing.T) {
	base := domain.EntityMeta{
		HistoryYears:       4,
		YearsSinceListing:  2,
		Volatility:         domain.VolatilityHigh,
		MissingCoreMetrics: 1,
	}
	baseline := Classify(base).ConfidencePercent

	// Improving any single input, holding the rest fixed, never decreases
	// the confidence percentage.
	for years := base.HistoryYears; years <= 15; years++ {
		meta := base
		meta.HistoryYears = years
		assert.GreaterOrEqual(t, Classify(meta).ConfidencePercent, baseline)
	}

	for listing := base.YearsSinceListing; listing <= 10; listing++ {
		meta := base
		meta.YearsSinceListing = listing
		assert.GreaterOrEqual(t, Classify(meta).ConfidencePercent, baseline)
	}

	for _, class := range []domain.VolatilityClass{domain.VolatilityHigh, domain.VolatilityMedium, domain.VolatilityLow} {
		meta := base
		meta.Volatility = class
		assert.GreaterOrEqual(t, Classify(meta).ConfidencePercent, baseline)
	}

	for missing := base.MissingCoreMetrics; missing >= 0; missing-- {
		meta := base
		meta.MissingCoreMetrics = missing
		assert.GreaterOrEqual(t, Classify(meta).ConfidencePercent, baseline)
	}
}

func TestClassify_LabelThresholds(t *testing.T) {
	// 0.90 * 1.00 * 1.00 * 1.00 = 90 -> High
	high := Classify(domain.EntityMeta{HistoryYears: 7, YearsSinceListing: 5, Volatility: domain.VolatilityLow})
	assert.Equal(t, LabelHigh, high.Label)

	// 0.75 * 0.85 * 0.85 * 1.00 = 54 -> Medium
	medium := Classify(domain.EntityMeta{HistoryYears: 5, YearsSinceListing: 3, Volatility: domain.VolatilityMedium})
	assert.Equal(t, 54, medium.ConfidencePercent)
	assert.Equal(t, LabelMedium, medium.Label)

	// 0.30 * 0.40 * 0.65 * 0.65 = 5 -> Low
	low := Classify(domain.EntityMeta{HistoryYears: 1, YearsSinceListing: 0, Volatility: domain.VolatilityHigh, MissingCoreMetrics: 3})
	assert.Equal(t, LabelLow, low.Label)
}
