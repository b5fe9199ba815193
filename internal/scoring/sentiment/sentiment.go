// Package sentiment detects valuation-regime shifts across time horizons.
// Current multiples are compared against their own historical anchor; the
// signed deviation sets the score and a re-rating-intensity suppression
// keeps unusually large moves from pinning the score to an extreme.
package sentiment

import (
	"math"

	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/pkg/formulas"
)

// Status reflects how much horizon history backed the analysis.
type Status string

const (
	StatusPartial  Status = "partial"
	StatusComputed Status = "computed"
)

// Band classifies the valuation regime.
type Band string

const (
	BandPessimistic Band = "pessimistic"
	BandNeutral     Band = "neutral"
	BandOptimistic  Band = "optimistic"
)

const (
	PartialConfidence  = 50.0
	ComputedConfidence = 80.0

	// DeviationBand clamps the average relative deviation to a fixed
	// signed band before it is mapped to a score.
	DeviationBand = 0.5

	// Re-rating intensity: deviation magnitude beyond IntensityThreshold
	// progressively suppresses the score's displacement from neutral,
	// down to MaxSuppression of it at the edge of the band.
	IntensityThreshold = 0.25
	MaxSuppression     = 0.5

	// NeutralScore is the regime midpoint.
	NeutralScore = 50.0

	// Band thresholds on the final score.
	OptimisticThreshold  = 60.0
	PessimisticThreshold = 40.0
)

// Result is the sentiment engine output.
type Result struct {
	Score      float64 `json:"score"`
	Band       Band    `json:"band"`
	Status     Status  `json:"status"`
	Confidence float64 `json:"confidence"`
	Deviation  float64 `json:"deviation"`
}

// Analyze derives the valuation regime from multi-horizon multiples.
// Returns nil (pending) when there is no current data or no 1y-ago data to
// anchor against.
func Analyze(history domain.MultiplesHistory) *Result {
	if history.Current == nil || history.OneYearAgo == nil {
		return nil
	}

	status := StatusPartial
	conf := PartialConfidence
	if history.ThreeYearsAgo != nil || history.FiveYearsAgo != nil {
		status = StatusComputed
		conf = ComputedConfidence
	}

	deviation, ok := averageDeviation(history)
	if !ok {
		return nil
	}

	deviation = formulas.Clamp(deviation, -DeviationBand, DeviationBand)
	score := NeutralScore + suppressedDisplacement(deviation)
	score = math.Round(formulas.Clamp(score, 0, 100))

	return &Result{
		Score:      score,
		Band:       bandFor(score),
		Status:     status,
		Confidence: conf,
		Deviation:  deviation,
	}
}

// averageDeviation computes the mean signed relative deviation of current
// multiples against their historical anchors. A multiple participates only
// when it has a current value and a positive anchor.
func averageDeviation(history domain.MultiplesHistory) (float64, bool) {
	accessors := []func(*domain.ValuationMultiples) *float64{
		func(m *domain.ValuationMultiples) *float64 { return m.PE },
		func(m *domain.ValuationMultiples) *float64 { return m.EVEBITDA },
		func(m *domain.ValuationMultiples) *float64 { return m.PFCF },
		func(m *domain.ValuationMultiples) *float64 { return m.PS },
	}

	sum := 0.0
	count := 0
	for _, access := range accessors {
		current := access(history.Current)
		if current == nil {
			continue
		}
		anchor, ok := historicalAnchor(history, access)
		if !ok || anchor <= 0 {
			continue
		}
		sum += (*current - anchor) / anchor
		count++
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// historicalAnchor is the mean of the multiple's available historical
// horizons (1y, 3y, 5y).
func historicalAnchor(history domain.MultiplesHistory, access func(*domain.ValuationMultiples) *float64) (float64, bool) {
	sum := 0.0
	count := 0
	for _, horizon := range []*domain.ValuationMultiples{history.OneYearAgo, history.ThreeYearsAgo, history.FiveYearsAgo} {
		if horizon == nil {
			continue
		}
		if v := access(horizon); v != nil {
			sum += *v
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// suppressedDisplacement converts the clamped deviation into a score
// displacement from neutral. Past the intensity threshold the displacement
// is progressively compressed: the larger the re-rating, the less the
// score is allowed to chase it.
func suppressedDisplacement(deviation float64) float64 {
	displacement := deviation * 100

	excess := math.Abs(deviation) - IntensityThreshold
	if excess <= 0 {
		return displacement
	}

	intensity := math.Min(1, excess/(DeviationBand-IntensityThreshold))
	return displacement * (1 - MaxSuppression*intensity)
}

func bandFor(score float64) Band {
	switch {
	case score >= OptimisticThreshold:
		return BandOptimistic
	case score <= PessimisticThreshold:
		return BandPessimistic
	default:
		return BandNeutral
	}
}
