// Package moat analyzes competitive durability from multi-year
// (ROIC, margin) history against sector benchmarks. Three weighted pillars
// (persistence, margin stability, capital discipline) plus a growth
// coherence check produce a 0-100 durability score.
package moat

import (
	"math"
	"sort"

	"github.com/aristath/insight/pkg/formulas"
)

// Status reflects how much history backed the analysis.
type Status string

const (
	StatusPartial  Status = "partial"
	StatusComputed Status = "computed"
)

// CoherenceVerdict classifies the relationship between revenue growth and
// operating-margin change.
type CoherenceVerdict string

const (
	VerdictHighQualityGrowth CoherenceVerdict = "High Quality Growth"
	VerdictInefficientGrowth CoherenceVerdict = "Inefficient Growth"
	VerdictNeutral           CoherenceVerdict = "Neutral"
)

const (
	// MinYears is the minimum paired history; below this the analysis is
	// absent. ComputedYears is where the analysis stops being partial, and
	// MaxYears caps the window to the most recent years.
	MinYears      = 3
	ComputedYears = 5
	MaxYears      = 5

	PartialConfidence  = 50.0
	ComputedConfidence = 80.0

	// Pillar weights. Without capital-discipline data the persistence and
	// margin pillars are reweighted 70/30.
	WeightPersistence          = 0.50
	WeightMarginStability      = 0.30
	WeightCapitalDiscipline    = 0.20
	WeightPersistenceNoCapital = 0.70
	WeightMarginNoCapital      = 0.30

	// Persistence volatility penalty: ROIC standard deviation above
	// VolatilityPenaltyThreshold is penalized at VolatilityPenaltyScale
	// points per unit of excess, capped at VolatilityPenaltyCap. The scale
	// is a policy constant with no cited derivation; it is kept overridable
	// here rather than re-derived.
	VolatilityPenaltyThreshold = 0.05
	VolatilityPenaltyCap       = 20.0
	VolatilityPenaltyScale     = 400.0

	// Margin stability constants.
	MarginLevelScale        = 50.0
	MarginStabilityScale    = 200.0
	InefficientGrowthFactor = 0.6

	// Coherence thresholds. Growth must strictly exceed
	// CoherenceGrowthThreshold for the check to apply.
	CoherenceGrowthThreshold  = 0.05
	CoherenceMarginDropLimit  = -0.01
	CoherenceScoreHighQuality = 100.0
	CoherenceScoreInefficient = 30.0
	CoherenceScoreMixed       = 70.0
	CoherenceScoreNotApplied  = 50.0

	// Capital discipline bands. Capital growth at or below
	// CapitalStagnationThreshold always scores the neutral band:
	// stagnation is not rewarded regardless of ROIC.
	CapitalStagnationThreshold = 0.05
	ROICImprovementThreshold   = 0.02
	ROICDeclineLimit           = -0.02
	CapitalScoreExpanding      = 100.0
	CapitalScoreSteady         = 80.0
	CapitalScoreSlipping       = 60.0
	CapitalScoreEroding        = 30.0
	CapitalScoreStagnant       = 50.0
)

// YearRecord is one fiscal year's paired durability inputs. ROIC and
// operating margin are required for a year to count; revenue and invested
// capital are optional extras for the coherence and capital pillars.
type YearRecord struct {
	Year            int
	ROIC            float64
	OperatingMargin float64
	Revenue         *float64
	InvestedCapital *float64
}

// Input carries the analysis inputs. Sector medians come from the
// benchmark's p50 or from sector defaults when no benchmark could be built.
type Input struct {
	History            []YearRecord
	SectorMedianROIC   float64
	SectorMedianMargin float64
}

// Pillars is the per-pillar breakdown. CapitalDiscipline is nil when the
// history carries no usable invested-capital data.
type Pillars struct {
	Persistence       float64  `json:"persistence"`
	MarginStability   float64  `json:"margin_stability"`
	CapitalDiscipline *float64 `json:"capital_discipline"`
}

// Coherence is the growth/margin coherence check result.
type Coherence struct {
	Verdict    CoherenceVerdict `json:"verdict"`
	Score      float64          `json:"score"`
	Applicable bool             `json:"applicable"`
}

// Result is the durability analysis output.
type Result struct {
	Score      float64   `json:"score"`
	Status     Status    `json:"status"`
	Confidence float64   `json:"confidence"`
	YearsUsed  int       `json:"years_used"`
	Pillars    Pillars   `json:"pillars"`
	Coherence  Coherence `json:"coherence"`
}

// Analyze scores competitive durability. Returns nil when fewer than three
// years of paired history exist; insufficient data, not an error.
func Analyze(input Input) *Result {
	history := recentYears(input.History)
	if len(history) < MinYears {
		return nil
	}

	status := StatusPartial
	conf := PartialConfidence
	if len(history) >= ComputedYears {
		status = StatusComputed
		conf = ComputedConfidence
	}

	coherence := coherenceCheck(history)
	persistence := persistenceScore(history, input.SectorMedianROIC)
	margin := marginStabilityScore(history, input.SectorMedianMargin, coherence.Verdict)
	capital := capitalDisciplineScore(history)

	var score float64
	pillars := Pillars{
		Persistence:       persistence,
		MarginStability:   margin,
		CapitalDiscipline: capital,
	}
	if capital != nil {
		score = persistence*WeightPersistence +
			margin*WeightMarginStability +
			*capital*WeightCapitalDiscipline
	} else {
		score = persistence*WeightPersistenceNoCapital +
			margin*WeightMarginNoCapital
	}

	return &Result{
		Score:      math.Round(formulas.Clamp(score, 0, 100)),
		Status:     status,
		Confidence: conf,
		YearsUsed:  len(history),
		Pillars:    pillars,
		Coherence:  coherence,
	}
}

// recentYears sorts a copy of the history chronologically and keeps the
// most recent MaxYears entries.
func recentYears(history []YearRecord) []YearRecord {
	sorted := make([]YearRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Year < sorted[j].Year
	})
	if len(sorted) > MaxYears {
		sorted = sorted[len(sorted)-MaxYears:]
	}
	return sorted
}

// persistenceScore is the primary pillar: the share of analyzed years with
// ROIC above the sector median, penalized when ROIC is volatile.
func persistenceScore(history []YearRecord, sectorMedianROIC float64) float64 {
	above := 0
	roics := make([]float64, len(history))
	for i, year := range history {
		roics[i] = year.ROIC
		if year.ROIC > sectorMedianROIC {
			above++
		}
	}

	base := 100 * float64(above) / float64(len(history))

	stdDev := formulas.StdDev(roics)
	if stdDev > VolatilityPenaltyThreshold {
		penalty := math.Min(VolatilityPenaltyCap, (stdDev-VolatilityPenaltyThreshold)*VolatilityPenaltyScale)
		base -= penalty
	}

	return formulas.Clamp(base, 0, 100)
}

// marginStabilityScore is the secondary pillar: the average of a level
// score (margin vs sector median) and a stability score (inverse of margin
// dispersion), penalized when growth is incoherent with margins.
func marginStabilityScore(history []YearRecord, sectorMedianMargin float64, verdict CoherenceVerdict) float64 {
	margins := make([]float64, len(history))
	for i, year := range history {
		margins[i] = year.OperatingMargin
	}

	level := CoherenceScoreNotApplied
	if sectorMedianMargin > 0 {
		level = math.Min(100, formulas.Mean(margins)/sectorMedianMargin*MarginLevelScale)
	}

	stability := math.Max(0, 100-formulas.StdDev(margins)*MarginStabilityScale)

	score := (level + stability) / 2
	if verdict == VerdictInefficientGrowth {
		score *= InefficientGrowthFactor
	}

	return formulas.Clamp(score, 0, 100)
}

// coherenceCheck compares latest-vs-prior-year revenue growth against the
// operating-margin change. The growth threshold is exclusive: exactly 5%
// growth does not trigger the check.
func coherenceCheck(history []YearRecord) Coherence {
	notApplicable := Coherence{
		Verdict:    VerdictNeutral,
		Score:      CoherenceScoreNotApplied,
		Applicable: false,
	}

	if len(history) < 2 {
		return notApplicable
	}

	latest := history[len(history)-1]
	prior := history[len(history)-2]
	if latest.Revenue == nil || prior.Revenue == nil || *prior.Revenue <= 0 {
		return notApplicable
	}

	growth := (*latest.Revenue - *prior.Revenue) / *prior.Revenue
	if growth <= CoherenceGrowthThreshold {
		return notApplicable
	}

	marginChange := latest.OperatingMargin - prior.OperatingMargin
	switch {
	case marginChange >= 0:
		return Coherence{Verdict: VerdictHighQualityGrowth, Score: CoherenceScoreHighQuality, Applicable: true}
	case marginChange <= CoherenceMarginDropLimit:
		return Coherence{Verdict: VerdictInefficientGrowth, Score: CoherenceScoreInefficient, Applicable: true}
	default:
		return Coherence{Verdict: VerdictNeutral, Score: CoherenceScoreMixed, Applicable: true}
	}
}

// capitalDisciplineScore is the tertiary, optional pillar: the oldest and
// newest invested-capital observations across at least three years of
// capital data, banded against the ROIC change over the same span.
func capitalDisciplineScore(history []YearRecord) *float64 {
	withCapital := make([]YearRecord, 0, len(history))
	for _, year := range history {
		if year.InvestedCapital != nil {
			withCapital = append(withCapital, year)
		}
	}
	if len(withCapital) < MinYears {
		return nil
	}

	oldest := withCapital[0]
	newest := withCapital[len(withCapital)-1]
	if *oldest.InvestedCapital <= 0 {
		return nil
	}

	capitalGrowth := (*newest.InvestedCapital - *oldest.InvestedCapital) / *oldest.InvestedCapital
	roicChange := newest.ROIC - oldest.ROIC

	score := bandCapitalScore(capitalGrowth, roicChange)
	return &score
}

func bandCapitalScore(capitalGrowth, roicChange float64) float64 {
	if capitalGrowth <= CapitalStagnationThreshold {
		return CapitalScoreStagnant
	}
	switch {
	case roicChange >= ROICImprovementThreshold:
		return CapitalScoreExpanding
	case roicChange >= 0:
		return CapitalScoreSteady
	case roicChange >= ROICDeclineLimit:
		return CapitalScoreSlipping
	default:
		return CapitalScoreEroding
	}
}
