package evaluation

import (
	"github.com/aristath/insight/internal/domain"
	"github.com/aristath/insight/internal/scoring/composite"
	"github.com/aristath/insight/internal/scoring/moat"
	"github.com/aristath/insight/internal/scoring/narrative"
	"github.com/aristath/insight/internal/scoring/sentiment"
	"github.com/aristath/insight/internal/scoring/structural"
)

// Thresholds for turning engine outputs into narrative signals.
const (
	// StrongMoatScore is the durability score at which the moat counts as
	// a durable competitive position.
	StrongMoatScore = 70.0

	// Dividend signal thresholds on the latest fiscal year.
	PayoutStrainThreshold    = 1.0
	SustainablePayoutCeiling = 0.8
	MeaningfulYieldFloor     = 0.02
)

// deriveSignals translates engine outputs into the typed signals the
// narrative mapper consumes. Order matters: it decides which anchors
// survive per-source truncation and breaks full precedence ties.
func deriveSignals(
	comp composite.Result,
	moatResult *moat.Result,
	sentimentResult *sentiment.Result,
	structuralSignals []structural.Signal,
	latest *domain.FiscalRow,
) []narrative.Signal {
	signals := make([]narrative.Signal, 0, 8)

	switch comp.Category {
	case composite.CategoryHigh:
		signals = append(signals, narrative.Signal{Kind: narrative.SignalExceptionalQuality, Source: narrative.SourceQuality})
	case composite.CategoryLow:
		signals = append(signals, narrative.Signal{Kind: narrative.SignalWeakQuality, Source: narrative.SourceQuality})
	}

	if moatResult != nil {
		if moatResult.Score >= StrongMoatScore {
			signals = append(signals, narrative.Signal{Kind: narrative.SignalDurableMoat, Source: narrative.SourceMoat})
		}
		if moatResult.Coherence.Applicable && moatResult.Coherence.Verdict == moat.VerdictInefficientGrowth {
			signals = append(signals, narrative.Signal{Kind: narrative.SignalInefficientGrowth, Source: narrative.SourceMoat})
		}
	}

	if sentimentResult != nil {
		switch sentimentResult.Band {
		case sentiment.BandOptimistic:
			signals = append(signals, narrative.Signal{Kind: narrative.SignalDemandingValuation, Source: narrative.SourceSentiment})
		case sentiment.BandPessimistic:
			signals = append(signals, narrative.Signal{Kind: narrative.SignalDepressedValuation, Source: narrative.SourceSentiment})
		}
	}

	for _, sig := range structuralSignals {
		if kind, ok := structuralSignalKind(sig.Kind); ok {
			signals = append(signals, narrative.Signal{Kind: kind, Source: narrative.SourceStructural})
		}
	}

	if kind, ok := dividendSignalKind(latest); ok {
		signals = append(signals, narrative.Signal{Kind: kind, Source: narrative.SourceDividend})
	}

	return signals
}

func structuralSignalKind(kind structural.Kind) (narrative.SignalKind, bool) {
	switch kind {
	case structural.KindStructuralProfitability:
		return narrative.SignalStructuralProfit, true
	case structural.KindStructuralCashGen:
		return narrative.SignalStructuralCashGen, true
	case structural.KindEpisodicPerformance:
		return narrative.SignalEpisodicPerformance, true
	case structural.KindStructuralFragility:
		return narrative.SignalStructuralFragility, true
	default:
		return "", false
	}
}

// dividendSignalKind inspects the latest fiscal year's payout. Strain wins
// over reliability; a covered dividend needs both a sustainable payout and
// a meaningful yield.
func dividendSignalKind(latest *domain.FiscalRow) (narrative.SignalKind, bool) {
	if latest == nil {
		return "", false
	}
	m := latest.Metrics
	if m.PayoutRatio == nil {
		return "", false
	}
	if *m.PayoutRatio > PayoutStrainThreshold {
		return narrative.SignalStrainedPayout, true
	}
	if *m.PayoutRatio > 0 && *m.PayoutRatio <= SustainablePayoutCeiling &&
		m.DividendYield != nil && *m.DividendYield >= MeaningfulYieldFloor {
		return narrative.SignalReliableDividend, true
	}
	return "", false
}
