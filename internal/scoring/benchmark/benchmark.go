// Package benchmark builds peer-relative statistical benchmarks from flat
// samples of metric values. A benchmark is constructed fresh per
// (sector, metric, period) and never mutated afterwards.
//
// Small samples get defensive estimators (median, trimmed mean, bootstrap
// uncertainty interval); adequate samples do not need them and omit the
// robust fields entirely.
package benchmark

import (
	"math/rand"
	"time"

	"github.com/aristath/insight/pkg/formulas"
)

// Confidence classifies benchmark reliability from sample size alone.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

const (
	// MinSampleSize is the smallest peer sample a benchmark can be built
	// from. Below this the result is absent, not an error.
	MinSampleSize = 3

	// MediumConfidenceSampleSize and HighConfidenceSampleSize are the
	// sample-size steps for the confidence classification.
	MediumConfidenceSampleSize = 10
	HighConfidenceSampleSize   = 20

	// TrimFraction is the per-tail fraction removed by the robust trimmed
	// mean on low-confidence samples.
	TrimFraction = 0.10

	// BootstrapResamples is the number of resamples-with-replacement drawn
	// for the low-confidence uncertainty interval.
	BootstrapResamples = 500
)

// UncertaintyRange is the [p5, p95] interval of the bootstrap resample
// means.
type UncertaintyRange struct {
	P5  float64 `json:"p5"`
	P95 float64 `json:"p95"`
}

// SectorBenchmark is a percentile/robustness profile of one metric across
// peers. Percentiles are always non-decreasing. The robust fields (Median,
// TrimmedMean, Uncertainty) are present only at low confidence.
type SectorBenchmark struct {
	P10        float64    `json:"p10"`
	P25        float64    `json:"p25"`
	P50        float64    `json:"p50"`
	P75        float64    `json:"p75"`
	P90        float64    `json:"p90"`
	SampleSize int        `json:"sample_size"`
	Confidence Confidence `json:"confidence"`

	Median      *float64          `json:"median"`
	TrimmedMean *float64          `json:"trimmed_mean"`
	Uncertainty *UncertaintyRange `json:"uncertainty_range"`
}

// Option configures benchmark construction.
type Option func(*builderOptions)

type builderOptions struct {
	rng *rand.Rand
}

// WithSeed makes the bootstrap resampling deterministic. Required when
// bit-exact reproducibility matters (tests, replayed evaluations).
func WithSeed(seed int64) Option {
	return func(o *builderOptions) {
		o.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand supplies a request-scoped random source. Two concurrent
// evaluations must never share one source.
func WithRand(rng *rand.Rand) Option {
	return func(o *builderOptions) {
		o.rng = rng
	}
}

// Build constructs a benchmark from a flat sample of peer values.
// Returns nil when the sample is too small to say anything (n < 3);
// an insufficient-data signal, not an error.
func Build(values []float64, opts ...Option) *SectorBenchmark {
	if len(values) < MinSampleSize {
		return nil
	}

	options := builderOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	sorted := formulas.SortedCopy(values)
	n := len(sorted)

	b := &SectorBenchmark{
		P10:        formulas.PercentileOfSorted(sorted, 0.10),
		P25:        formulas.PercentileOfSorted(sorted, 0.25),
		P50:        formulas.PercentileOfSorted(sorted, 0.50),
		P75:        formulas.PercentileOfSorted(sorted, 0.75),
		P90:        formulas.PercentileOfSorted(sorted, 0.90),
		SampleSize: n,
		Confidence: classifyConfidence(n),
	}

	// Robust estimators only make sense while the sample is small; with an
	// adequate sample the plain percentiles are trustworthy on their own.
	if b.Confidence == ConfidenceLow {
		median := b.P50
		trimmed := formulas.TrimmedMean(sorted, TrimFraction)
		interval := bootstrapInterval(sorted, options.rng)

		b.Median = &median
		b.TrimmedMean = &trimmed
		b.Uncertainty = &interval
	}

	return b
}

// classifyConfidence is a deterministic function of sample size only.
func classifyConfidence(n int) Confidence {
	switch {
	case n < MediumConfidenceSampleSize:
		return ConfidenceLow
	case n < HighConfidenceSampleSize:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// bootstrapInterval draws BootstrapResamples resamples-with-replacement of
// size n, records each resample's mean, and returns the [5th, 95th]
// percentile of those means.
func bootstrapInterval(sample []float64, rng *rand.Rand) UncertaintyRange {
	n := len(sample)
	means := make([]float64, BootstrapResamples)
	resample := make([]float64, n)

	for i := 0; i < BootstrapResamples; i++ {
		for j := 0; j < n; j++ {
			resample[j] = sample[rng.Intn(n)]
		}
		means[i] = formulas.Mean(resample)
	}

	sortedMeans := formulas.SortedCopy(means)
	return UncertaintyRange{
		P5:  formulas.PercentileOfSorted(sortedMeans, 0.05),
		P95: formulas.PercentileOfSorted(sortedMeans, 0.95),
	}
}
