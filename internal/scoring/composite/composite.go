// Package composite produces the 0-100 composite quality score (FGOS) with
// its per-dimension breakdown. Each fundamental dimension maps raw metric
// values onto sector benchmark percentile buckets, dampened according to
// benchmark confidence, and the overall score is a weighted mean over
// whichever dimensions are present.
package composite

import (
	"math"

	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/internal/scoring/benchmark"
	"github.com/aristath/insight/internal/scoring/confidence"
)

// Dimension identifies one fundamental scoring dimension.
type Dimension string

const (
	DimensionGrowth        Dimension = "growth"
	DimensionProfitability Dimension = "profitability"
	DimensionEfficiency    Dimension = "efficiency"
	DimensionSolvency      Dimension = "solvency"
	DimensionMoat          Dimension = "moat"
	DimensionSentiment     Dimension = "sentiment"
)

// Category buckets the composite score for display.
type Category string

const (
	CategoryHigh    Category = "High"
	CategoryMedium  Category = "Medium"
	CategoryLow     Category = "Low"
	CategoryPending Category = "Pending"
)

const (
	// Default dimension weights (renormalized over available dimensions).
	WeightGrowth        = 0.25
	WeightProfitability = 0.25
	WeightEfficiency    = 0.15
	WeightSolvency      = 0.15
	WeightMoat          = 0.10
	WeightSentiment     = 0.10

	// Percentile bucket values.
	BucketBottom = 10.0
	BucketLow    = 25.0
	BucketMid    = 50.0
	BucketHigh   = 75.0
	BucketTop    = 90.0

	// NeutralScore is the value low-confidence buckets are dampened toward.
	NeutralScore = 50.0

	// MediumConfidenceMultiplier is the flat damping applied to buckets
	// scored against medium-confidence benchmarks.
	MediumConfidenceMultiplier = 0.95

	// FullWeightSampleSize is the sample size at which a low-confidence
	// benchmark stops being dampened (weight = min(1, n/20)).
	FullWeightSampleSize = 20.0

	// Category thresholds on the rounded composite.
	HighCategoryThreshold   = 70.0
	MediumCategoryThreshold = 40.0
)

// MetricReading pairs one raw metric value with the benchmark it is scored
// against. A nil benchmark means the metric cannot be scored and is skipped.
type MetricReading struct {
	Metric    string
	Value     float64
	Benchmark *benchmark.SectorBenchmark
}

// Impact explains how benchmark confidence shaped a component's score.
// Present only when at least one constituent was scored against a
// low-confidence benchmark.
type Impact struct {
	RawPercentile       float64 `json:"raw_percentile"`
	EffectivePercentile float64 `json:"effective_percentile"`
	SampleSize          int     `json:"sample_size"`
	Weight              float64 `json:"weight"`
	LowConfidence       bool    `json:"low_confidence"`
}

// Component is one dimension's contribution to the composite.
type Component struct {
	Dimension Dimension `json:"dimension"`
	Score     *float64  `json:"score"`
	Impact    *Impact   `json:"impact"`
}

// Result is the full composite quality score record. Absent fields are nil,
// never zero.
type Result struct {
	Score             *float64                  `json:"score"`
	Category          Category                  `json:"category"`
	ConfidencePercent int                       `json:"confidence_percent"`
	ConfidenceLabel   confidence.Label          `json:"confidence_label"`
	MaturityStatus    confidence.MaturityStatus `json:"maturity_status"`
	Components        []Component               `json:"components"`
}

// Input carries everything one composite computation needs. Growth,
// profitability, efficiency and solvency are benchmark-scored readings;
// moat and sentiment arrive as ready 0-100 scores from their own engines
// (nil when those engines returned absent).
type Input struct {
	Growth        []MetricReading
	Profitability []MetricReading
	Efficiency    []MetricReading
	Solvency      []MetricReading
	Moat          *float64
	Sentiment     *float64
	Meta          domain.EntityMeta
	Distress      DistressIndicators
}

// Engine computes composite scores. Zero-value weights fall back to the
// package defaults; a nil brake means no final adjustment.
type Engine struct {
	weights map[Dimension]float64
	brake   Brake
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeights overrides the default dimension weights.
func WithWeights(weights map[Dimension]float64) Option {
	return func(e *Engine) {
		e.weights = weights
	}
}

// WithBrake installs the final quality-brake adjuster.
func WithBrake(b Brake) Option {
	return func(e *Engine) {
		e.brake = b
	}
}

// NewEngine creates a composite score engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights: DefaultWeights(),
		brake:   NopBrake{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultWeights returns the default dimension weights.
func DefaultWeights() map[Dimension]float64 {
	return map[Dimension]float64{
		DimensionGrowth:        WeightGrowth,
		DimensionProfitability: WeightProfitability,
		DimensionEfficiency:    WeightEfficiency,
		DimensionSolvency:      WeightSolvency,
		DimensionMoat:          WeightMoat,
		DimensionSentiment:     WeightSentiment,
	}
}

// dimensionOrder fixes the component output order (and the weighted-mean
// iteration order, keeping the computation reproducible).
var dimensionOrder = []Dimension{
	DimensionGrowth,
	DimensionProfitability,
	DimensionEfficiency,
	DimensionSolvency,
	DimensionMoat,
	DimensionSentiment,
}

// Compute produces the composite quality score for one entity. It is a pure
// function of its input: missing dimensions are excluded from the weighted
// mean rather than zeroing the composite, and a fully-absent input yields a
// Pending result, not an error.
func (e *Engine) Compute(input Input) Result {
	conf := confidence.Classify(input.Meta)

	components := []Component{
		scoreBenchmarkDimension(DimensionGrowth, input.Growth),
		scoreBenchmarkDimension(DimensionProfitability, input.Profitability),
		scoreBenchmarkDimension(DimensionEfficiency, input.Efficiency),
		scoreBenchmarkDimension(DimensionSolvency, input.Solvency),
		scoreDirectDimension(DimensionMoat, input.Moat),
		scoreDirectDimension(DimensionSentiment, input.Sentiment),
	}

	weightedSum := 0.0
	weightTotal := 0.0
	for i, dim := range dimensionOrder {
		component := components[i]
		if component.Score == nil {
			continue
		}
		weight := e.weights[dim]
		weightedSum += *component.Score * weight
		weightTotal += weight
	}

	if weightTotal == 0 {
		return Result{
			Category:          CategoryPending,
			ConfidencePercent: conf.ConfidencePercent,
			ConfidenceLabel:   conf.Label,
			MaturityStatus:    confidence.MaturityPending,
			Components:        components,
		}
	}

	raw := weightedSum / weightTotal
	braked := e.brake.Adjust(raw, input.Distress)
	// The brake may only lower the composite.
	if braked > raw {
		braked = raw
	}

	score := math.Round(math.Max(0, math.Min(100, braked)))

	return Result{
		Score:             &score,
		Category:          categoryFor(score),
		ConfidencePercent: conf.ConfidencePercent,
		ConfidenceLabel:   conf.Label,
		MaturityStatus:    conf.Maturity,
		Components:        components,
	}
}

// scoreBenchmarkDimension scores one dimension as the mean of its
// constituents' effective bucket values. Constituents without a usable
// benchmark are skipped; a dimension with no scoreable constituents is
// absent.
func scoreBenchmarkDimension(dim Dimension, readings []MetricReading) Component {
	sum := 0.0
	count := 0
	var impact *Impact

	for _, reading := range readings {
		if reading.Benchmark == nil {
			continue
		}
		raw := bucketFor(reading.Value, reading.Benchmark)
		effective, readingImpact := dampen(raw, reading.Benchmark)
		sum += effective
		count++

		// Surface the weakest benchmark behind the dimension: the
		// low-confidence constituent with the smallest sample.
		if readingImpact != nil {
			if impact == nil || readingImpact.SampleSize < impact.SampleSize {
				impact = readingImpact
			}
		}
	}

	if count == 0 {
		return Component{Dimension: dim}
	}

	score := sum / float64(count)
	return Component{Dimension: dim, Score: &score, Impact: impact}
}

// scoreDirectDimension wraps a ready 0-100 sub-engine score (moat,
// sentiment) as a component.
func scoreDirectDimension(dim Dimension, score *float64) Component {
	if score == nil {
		return Component{Dimension: dim}
	}
	v := *score
	return Component{Dimension: dim, Score: &v}
}

// bucketFor maps a raw value onto the benchmark's five percentile buckets.
func bucketFor(value float64, b *benchmark.SectorBenchmark) float64 {
	switch {
	case value <= b.P10:
		return BucketBottom
	case value <= b.P25:
		return BucketLow
	case value <= b.P50:
		return BucketMid
	case value <= b.P75:
		return BucketHigh
	default:
		return BucketTop
	}
}

// dampen applies the confidence-based adjustment to a raw bucket value.
// Low-confidence benchmarks pull the bucket toward neutral proportionally
// to sample size; medium confidence applies a flat multiplier; high
// confidence passes through.
func dampen(raw float64, b *benchmark.SectorBenchmark) (float64, *Impact) {
	switch b.Confidence {
	case benchmark.ConfidenceLow:
		weight := math.Min(1, float64(b.SampleSize)/FullWeightSampleSize)
		effective := raw*weight + NeutralScore*(1-weight)
		return effective, &Impact{
			RawPercentile:       raw,
			EffectivePercentile: effective,
			SampleSize:          b.SampleSize,
			Weight:              weight,
			LowConfidence:       true,
		}
	case benchmark.ConfidenceMedium:
		return raw * MediumConfidenceMultiplier, nil
	default:
		return raw, nil
	}
}

func categoryFor(score float64) Category {
	switch {
	case score >= HighCategoryThreshold:
		return CategoryHigh
	case score >= MediumCategoryThreshold:
		return CategoryMedium
	default:
		return CategoryLow
	}
}
