// Package confidence classifies how much an evaluation can be trusted,
// from entity metadata alone: history depth, listing age, metric
// volatility and data completeness.
package confidence

import (
	"math"

	"github.com/aristath/insight/internal/domain"
)

// Label buckets the confidence percentage for display.
type Label string

const (
	LabelLow    Label = "Low"
	LabelMedium Label = "Medium"
	LabelHigh   Label = "High"
)

// MaturityStatus is the lifecycle classification of evaluation reliability.
type MaturityStatus string

const (
	MaturityMature     MaturityStatus = "Mature"
	MaturityDeveloping MaturityStatus = "Developing"
	MaturityEarlyStage MaturityStatus = "Early-stage"
	MaturityIncomplete MaturityStatus = "Incomplete"
	MaturityPending    MaturityStatus = "pending"
)

const (
	// Label thresholds on the confidence percentage.
	HighLabelThreshold   = 80
	MediumLabelThreshold = 50

	// Maturity gates.
	MatureConfidenceThreshold = 80
	MatureHistoryYears        = 7
	IncompleteMissingMetrics  = 2
)

// Result is the classifier output.
type Result struct {
	ConfidencePercent int            `json:"confidence_percent"`
	Label             Label          `json:"confidence_label"`
	Maturity          MaturityStatus `json:"maturity_status"`
}

// Classify derives a confidence percentage and maturity status from entity
// metadata. Four independent multiplicative factors, each a step function
// of its input; the product is rounded to a percentage.
func Classify(meta domain.EntityMeta) Result {
	product := historyFactor(meta.HistoryYears) *
		listingAgeFactor(meta.YearsSinceListing) *
		volatilityFactor(meta.Volatility) *
		completenessFactor(meta.MissingCoreMetrics)

	percent := int(math.Round(100 * product))

	return Result{
		ConfidencePercent: percent,
		Label:             labelFor(percent),
		Maturity:          maturityFor(meta, percent),
	}
}

func historyFactor(years int) float64 {
	switch {
	case years >= 10:
		return 1.00
	case years >= 7:
		return 0.90
	case years >= 5:
		return 0.75
	case years >= 3:
		return 0.55
	default:
		return 0.30
	}
}

func listingAgeFactor(years int) float64 {
	switch {
	case years >= 5:
		return 1.00
	case years >= 3:
		return 0.85
	case years >= 1:
		return 0.60
	default:
		return 0.40
	}
}

func volatilityFactor(class domain.VolatilityClass) float64 {
	switch class {
	case domain.VolatilityLow:
		return 1.00
	case domain.VolatilityMedium:
		return 0.85
	case domain.VolatilityHigh:
		return 0.65
	default:
		// Unknown volatility is treated as MEDIUM rather than rejected.
		return 0.85
	}
}

func completenessFactor(missing int) float64 {
	switch {
	case missing <= 0:
		return 1.00
	case missing == 1:
		return 0.85
	default:
		return 0.65
	}
}

func labelFor(percent int) Label {
	switch {
	case percent >= HighLabelThreshold:
		return LabelHigh
	case percent >= MediumLabelThreshold:
		return LabelMedium
	default:
		return LabelLow
	}
}

// maturityFor applies the maturity precedence. The ordering is load-bearing:
// missing core metrics override everything, and a richly-covered but
// short-lived entity is Developing, never Mature.
func maturityFor(meta domain.EntityMeta, percent int) MaturityStatus {
	if meta.MissingCoreMetrics >= IncompleteMissingMetrics {
		return MaturityIncomplete
	}
	if percent >= MatureConfidenceThreshold && meta.HistoryYears >= MatureHistoryYears {
		return MaturityMature
	}
	if percent >= MediumLabelThreshold {
		return MaturityDeveloping
	}
	return MaturityEarlyStage
}
