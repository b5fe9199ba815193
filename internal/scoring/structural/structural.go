// Package structural evaluates multi-year structural patterns in an
// entity's fiscal series: fragility (sign instability), episodic spikes,
// and structurally persistent profitability or cash generation. At most
// three signals are returned, priority-ordered.
package structural

import (
	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/pkg/formulas"
)

// Kind identifies one structural signal.
type Kind string

const (
	KindStructuralProfitability Kind = "structural_profitability"
	KindStructuralCashGen       Kind = "structural_cash_generation"
	KindEpisodicPerformance     Kind = "episodic_performance"
	KindStructuralFragility     Kind = "structural_fragility"
)

const (
	// MaxSignals bounds the output.
	MaxSignals = 3

	// Fragility: at least FragilityMinFlips positive/negative sign flips
	// across a series of at least FragilityMinPoints values.
	FragilityMinFlips  = 2
	FragilityMinPoints = 4

	// Episodic: dispersion at or above EpisodicCVThreshold with exactly
	// one or two years strictly above mean + EpisodicSpikeFactor*stddev.
	// The CV threshold is a policy constant, kept overridable rather than
	// re-derived.
	EpisodicCVThreshold = 0.3
	EpisodicSpikeFactor = 0.5
	EpisodicMinSpikes   = 1
	EpisodicMaxSpikes   = 2

	// Structural profitability: at least ProfitabilityMinPositive of the
	// last ProfitabilityWindow ROIC years positive, with no collapse (the
	// latest value at least CollapseRatio of the window mean).
	ProfitabilityWindow      = 5
	ProfitabilityMinPositive = 4
	CollapseRatio            = 0.5

	// Structural cash generation: at least CashGenMinPositive of the last
	// CashGenWindow free-cash-flow years positive.
	CashGenWindow      = 4
	CashGenMinPositive = 3

	// MinSeriesYears is the minimum chronological depth for any series to
	// participate at all.
	MinSeriesYears = 3
)

// Signal is one detected structural pattern. Strength is an optional
// magnitude whose meaning depends on the kind (flip count, dispersion,
// positive-year share).
type Signal struct {
	Kind     Kind     `json:"kind"`
	Strength *float64 `json:"strength"`
}

// Evaluate detects structural signals from an entity's fiscal history.
// Only fiscal-year rows with non-missing values participate; the input is
// explicitly sorted and never trusted to arrive ordered. Fragility
// suppresses episodic performance (mutually exclusive by priority).
func Evaluate(rows []domain.FiscalRow) []Signal {
	fiscalYears := domain.FiscalYearRows(rows)

	roic := seriesOf(fiscalYears, func(m domain.FiscalMetrics) *float64 { return m.ROIC })
	fcf := seriesOf(fiscalYears, func(m domain.FiscalMetrics) *float64 { return m.FreeCashFlow })
	margin := seriesOf(fiscalYears, func(m domain.FiscalMetrics) *float64 { return m.OperatingMargin })
	allSeries := [][]float64{roic, fcf, margin}

	signals := make([]Signal, 0, MaxSignals)

	fragile, flipStrength := detectFragility(allSeries)
	if fragile {
		signals = append(signals, Signal{Kind: KindStructuralFragility, Strength: &flipStrength})
	}

	if !fragile {
		if episodic, cv := detectEpisodic(allSeries); episodic {
			signals = append(signals, Signal{Kind: KindEpisodicPerformance, Strength: &cv})
		}
	}

	if ok, strength := detectStructuralProfitability(roic); ok {
		signals = append(signals, Signal{Kind: KindStructuralProfitability, Strength: &strength})
	}

	if ok, strength := detectStructuralCashGen(fcf); ok {
		signals = append(signals, Signal{Kind: KindStructuralCashGen, Strength: &strength})
	}

	if len(signals) > MaxSignals {
		signals = signals[:MaxSignals]
	}
	return signals
}

// seriesOf extracts the non-missing values of one metric, chronologically
// ascending.
func seriesOf(rows []domain.FiscalRow, access func(domain.FiscalMetrics) *float64) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v := access(row.Metrics); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// detectFragility looks for repeated positive/negative flips in any
// series. Returns the highest flip count found as strength.
func detectFragility(allSeries [][]float64) (bool, float64) {
	maxFlips := 0
	for _, series := range allSeries {
		if len(series) < FragilityMinPoints {
			continue
		}
		flips := signFlips(series)
		if flips > maxFlips {
			maxFlips = flips
		}
	}
	return maxFlips >= FragilityMinFlips, float64(maxFlips)
}

// signFlips counts positive<->negative transitions, tracking the last
// non-zero sign so zeros do not mask a flip.
func signFlips(series []float64) int {
	flips := 0
	lastSign := 0
	for _, v := range series {
		sign := 0
		if v > 0 {
			sign = 1
		} else if v < 0 {
			sign = -1
		}
		if sign == 0 {
			continue
		}
		if lastSign != 0 && sign != lastSign {
			flips++
		}
		lastSign = sign
	}
	return flips
}

// detectEpisodic looks for a dispersed series where performance is
// concentrated in one or two spike years.
func detectEpisodic(allSeries [][]float64) (bool, float64) {
	for _, series := range allSeries {
		if len(series) < MinSeriesYears {
			continue
		}
		cv := formulas.CoefficientOfVariation(series)
		if cv < EpisodicCVThreshold {
			continue
		}

		threshold := formulas.Mean(series) + EpisodicSpikeFactor*formulas.StdDev(series)
		spikes := 0
		for _, v := range series {
			if v > threshold {
				spikes++
			}
		}
		if spikes >= EpisodicMinSpikes && spikes <= EpisodicMaxSpikes {
			return true, cv
		}
	}
	return false, 0
}

// detectStructuralProfitability checks the last up-to-5 ROIC years for
// persistent positivity without a latest-year collapse.
func detectStructuralProfitability(roic []float64) (bool, float64) {
	if len(roic) < ProfitabilityMinPositive {
		return false, 0
	}
	window := lastN(roic, ProfitabilityWindow)

	positives := 0
	for _, v := range window {
		if v > 0 {
			positives++
		}
	}
	if positives < ProfitabilityMinPositive {
		return false, 0
	}

	mean := formulas.Mean(window)
	latest := window[len(window)-1]
	if mean > 0 && latest < CollapseRatio*mean {
		return false, 0
	}

	return true, float64(positives) / float64(len(window))
}

// detectStructuralCashGen checks the last up-to-4 free-cash-flow years.
func detectStructuralCashGen(fcf []float64) (bool, float64) {
	if len(fcf) < CashGenMinPositive {
		return false, 0
	}
	window := lastN(fcf, CashGenWindow)

	positives := 0
	for _, v := range window {
		if v > 0 {
			positives++
		}
	}
	if positives < CashGenMinPositive {
		return false, 0
	}

	return true, float64(positives) / float64(len(window))
}

func lastN(series []float64, n int) []float64 {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}
