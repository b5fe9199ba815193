// Package narrative maps quantitative signals onto a fixed catalog of
// qualitative narrative anchors and resolves precedence among co-active
// anchors. The catalog is a closed set of tagged signal kinds with an
// exhaustive mapping, not a string-keyed runtime registry.
package narrative

import "github.com/aristath/insight/internal/domain"

// SignalKind enumerates every signal the producing engines can emit.
type SignalKind string

const (
	SignalExceptionalQuality  SignalKind = "exceptional_quality"
	SignalWeakQuality         SignalKind = "weak_quality"
	SignalDurableMoat         SignalKind = "durable_moat"
	SignalInefficientGrowth   SignalKind = "inefficient_growth"
	SignalDemandingValuation  SignalKind = "demanding_valuation"
	SignalDepressedValuation  SignalKind = "depressed_valuation"
	SignalStructuralProfit    SignalKind = "structural_profitability"
	SignalStructuralCashGen   SignalKind = "structural_cash_generation"
	SignalEpisodicPerformance SignalKind = "episodic_performance"
	SignalStructuralFragility SignalKind = "structural_fragility"
	SignalReliableDividend    SignalKind = "reliable_dividend"
	SignalStrainedPayout      SignalKind = "strained_payout"
)

// Source identifies which engine produced a signal.
type Source string

const (
	SourceQuality    Source = "quality"
	SourceMoat       Source = "moat"
	SourceSentiment  Source = "sentiment"
	SourceStructural Source = "structural"
	SourceDividend   Source = "dividend"
)

// Signal is one typed signal handed to the mapping step.
type Signal struct {
	Kind   SignalKind
	Source Source
}

// TemporalHint qualifies how durable the pattern behind an anchor is.
type TemporalHint string

const (
	HintRecent     TemporalHint = "recent"
	HintPersistent TemporalHint = "persistent"
	HintFading     TemporalHint = "fading"
)

// Dominance marks the resolver's selection. Assigned only by Resolve,
// never by the mapping step.
type Dominance string

const (
	DominancePrimary   Dominance = "primary"
	DominanceSecondary Dominance = "secondary"
)

// Anchor is a stateless narrative value object created fresh from a signal
// mapping.
type Anchor struct {
	ID           string       `json:"id"`
	Label        string       `json:"label"`
	Tone         domain.Tone  `json:"tone"`
	Highlight    []string     `json:"highlight"`
	TemporalHint TemporalHint `json:"temporal_hint"`
	Dominance    Dominance    `json:"dominance"`
}

// anchorFor is the fixed signal-to-anchor catalog. Tone, highlights and
// temporal hint are static per signal kind.
func anchorFor(kind SignalKind) (Anchor, bool) {
	switch kind {
	case SignalExceptionalQuality:
		return Anchor{
			ID:           "exceptional-quality",
			Label:        "Consistently strong fundamental quality",
			Tone:         domain.TonePositive,
			Highlight:    []string{"composite quality in the top tier of the sector"},
			TemporalHint: HintPersistent,
		}, true
	case SignalWeakQuality:
		return Anchor{
			ID:           "weak-quality",
			Label:        "Fundamental quality lags the sector",
			Tone:         domain.ToneWarning,
			Highlight:    []string{"composite quality in the lower tier of the sector"},
			TemporalHint: HintRecent,
		}, true
	case SignalDurableMoat:
		return Anchor{
			ID:           "durable-quality-moat",
			Label:        "Durable competitive position",
			Tone:         domain.TonePositive,
			Highlight:    []string{"returns persistently above the sector median", "stable operating margins"},
			TemporalHint: HintPersistent,
		}, true
	case SignalInefficientGrowth:
		return Anchor{
			ID:           "inefficient-growth-pressure",
			Label:        "Growth is eroding margins",
			Tone:         domain.ToneWarning,
			Highlight:    []string{"revenue expansion paired with margin contraction"},
			TemporalHint: HintRecent,
		}, true
	case SignalDemandingValuation:
		return Anchor{
			ID:           "demanding-valuation",
			Label:        "Valuation has re-rated upward",
			Tone:         domain.ToneWarning,
			Highlight:    []string{"multiples well above their historical anchor"},
			TemporalHint: HintRecent,
		}, true
	case SignalDepressedValuation:
		return Anchor{
			ID:           "depressed-valuation",
			Label:        "Valuation sits below its historical range",
			Tone:         domain.ToneNeutral,
			Highlight:    []string{"multiples below their historical anchor"},
			TemporalHint: HintRecent,
		}, true
	case SignalStructuralProfit:
		return Anchor{
			ID:           "structural-profitability",
			Label:        "Profitability is structural, not cyclical",
			Tone:         domain.TonePositive,
			Highlight:    []string{"positive returns on capital in nearly every recent year"},
			TemporalHint: HintPersistent,
		}, true
	case SignalStructuralCashGen:
		return Anchor{
			ID:           "structural-cash-generation",
			Label:        "Reliable free cash flow generation",
			Tone:         domain.TonePositive,
			Highlight:    []string{"positive free cash flow in most recent years"},
			TemporalHint: HintPersistent,
		}, true
	case SignalEpisodicPerformance:
		return Anchor{
			ID:           "episodic-performance",
			Label:        "Results concentrated in isolated spike years",
			Tone:         domain.ToneWarning,
			Highlight:    []string{"performance driven by one or two outlier years"},
			TemporalHint: HintFading,
		}, true
	case SignalStructuralFragility:
		return Anchor{
			ID:           "structural-fragility",
			Label:        "Fundamentals flip between profit and loss",
			Tone:         domain.ToneNegative,
			Highlight:    []string{"repeated sign changes across core metrics"},
			TemporalHint: HintPersistent,
		}, true
	case SignalReliableDividend:
		return Anchor{
			ID:           "reliable-dividend-income",
			Label:        "Dividend looks well covered",
			Tone:         domain.TonePositive,
			Highlight:    []string{"meaningful yield with a sustainable payout ratio"},
			TemporalHint: HintPersistent,
		}, true
	case SignalStrainedPayout:
		return Anchor{
			ID:           "strained-payout",
			Label:        "Dividend exceeds what earnings cover",
			Tone:         domain.ToneWarning,
			Highlight:    []string{"payout ratio above earnings"},
			TemporalHint: HintRecent,
		}, true
	default:
		return Anchor{}, false
	}
}
