// Package contrast derives bounded decision labels from an entity's active
// narrative ids and produces peer-relative contrast statements. Everything
// here works on presence or absence of narrative ids, never on scores. The
// decision catalog is a closed set of typed kinds evaluated with exhaustive
// switches, not a runtime predicate registry.
package contrast

import (
	"sort"

	"github.com/aristath/insight/internal/domain"
)

// MaxDecisionAnchors bounds the decision labels returned per entity.
const MaxDecisionAnchors = 2

// MaxContrasts bounds the peer contrast statements returned per pair.
const MaxContrasts = 3

// DecisionAnchor is a user-facing actionable label.
type DecisionAnchor struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Tone  domain.Tone `json:"tone"`
}

// Dimension names the axis a peer contrast statement speaks to.
type Dimension string

const (
	DimensionRisk      Dimension = "risk"
	DimensionQuality   Dimension = "quality"
	DimensionValuation Dimension = "valuation"
	DimensionDividend  Dimension = "dividend"
	DimensionMixed     Dimension = "mixed"
)

// PeerContrast is one presence/absence asymmetry between two entities.
type PeerContrast struct {
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	Tone      domain.Tone `json:"tone"`
	Dimension Dimension   `json:"dimension"`
}

// Profile is one independently-evaluated entity as the contrast engine
// sees it.
type Profile struct {
	NarrativeIDs []string
	Decisions    []DecisionAnchor
}

type idSet map[string]bool

func newIDSet(ids []string) idSet {
	set := make(idSet, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func decisionIDSet(decisions []DecisionAnchor) idSet {
	set := make(idSet, len(decisions))
	for _, d := range decisions {
		set[d.ID] = true
	}
	return set
}

func (s idSet) hasAny(ids ...string) bool {
	for _, id := range ids {
		if s[id] {
			return true
		}
	}
	return false
}

// Narrative id groups the decision and contrast predicates test against.
var (
	qualityIDs  = []string{"exceptional-quality", "durable-quality-moat", "structural-profitability", "structural-cash-generation"}
	riskIDs     = []string{"structural-fragility", "inefficient-growth-pressure", "strained-payout"}
	mixedIDs    = []string{"episodic-performance", "inefficient-growth-pressure", "weak-quality"}
	dividendIDs = []string{"reliable-dividend-income"}
)

type decisionKind int

const (
	decisionQualityCompounder decisionKind = iota
	decisionQualityAtAPrice
	decisionValueOpportunity
	decisionIncomeAnchor
	decisionCautionWarranted
	decisionWatchlist
)

// decisionOrder fixes evaluation order so equal-tone anchors keep a
// deterministic sequence.
var decisionOrder = [...]decisionKind{
	decisionQualityCompounder,
	decisionQualityAtAPrice,
	decisionValueOpportunity,
	decisionIncomeAnchor,
	decisionCautionWarranted,
	decisionWatchlist,
}

func (k decisionKind) matches(active idSet) bool {
	switch k {
	case decisionQualityCompounder:
		return active.hasAny(qualityIDs...) &&
			!active["structural-fragility"] &&
			!active["demanding-valuation"]
	case decisionQualityAtAPrice:
		return active.hasAny(qualityIDs...) && active["demanding-valuation"]
	case decisionValueOpportunity:
		return active["depressed-valuation"] && !active["structural-fragility"]
	case decisionIncomeAnchor:
		return active["reliable-dividend-income"] && !active["strained-payout"]
	case decisionCautionWarranted:
		return active["structural-fragility"] || active["strained-payout"]
	case decisionWatchlist:
		return active.hasAny(mixedIDs...)
	default:
		return false
	}
}

func (k decisionKind) anchor() DecisionAnchor {
	switch k {
	case decisionQualityCompounder:
		return DecisionAnchor{
			ID:    "quality-compounder",
			Label: "Durable quality without obvious red flags",
			Tone:  domain.TonePositive,
		}
	case decisionQualityAtAPrice:
		return DecisionAnchor{
			ID:    "quality-at-a-price",
			Label: "Strong business at a demanding price",
			Tone:  domain.ToneWarning,
		}
	case decisionValueOpportunity:
		return DecisionAnchor{
			ID:    "value-opportunity",
			Label: "Out-of-favor valuation with intact fundamentals",
			Tone:  domain.TonePositive,
		}
	case decisionIncomeAnchor:
		return DecisionAnchor{
			ID:    "income-anchor",
			Label: "Covered dividend supports an income case",
			Tone:  domain.TonePositive,
		}
	case decisionCautionWarranted:
		return DecisionAnchor{
			ID:    "caution-warranted",
			Label: "Structural warning signs call for caution",
			Tone:  domain.ToneWarning,
		}
	case decisionWatchlist:
		return DecisionAnchor{
			ID:    "watchlist",
			Label: "Mixed evidence, wait for confirmation",
			Tone:  domain.ToneNeutral,
		}
	default:
		return DecisionAnchor{}
	}
}

// Positive labels lead, then warnings, then neutral observations.
func decisionTonePriority(tone domain.Tone) int {
	switch tone {
	case domain.TonePositive:
		return 0
	case domain.ToneWarning:
		return 1
	default:
		return 2
	}
}

// EvaluateDecisions runs the fixed decision catalog against the active
// narrative id set. Matching anchors are sorted by tone priority and
// truncated to MaxDecisionAnchors.
func EvaluateDecisions(activeIDs []string) []DecisionAnchor {
	active := newIDSet(activeIDs)

	matched := make([]DecisionAnchor, 0, len(decisionOrder))
	for _, kind := range decisionOrder {
		if kind.matches(active) {
			matched = append(matched, kind.anchor())
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return decisionTonePriority(matched[i].Tone) < decisionTonePriority(matched[j].Tone)
	})

	if len(matched) > MaxDecisionAnchors {
		matched = matched[:MaxDecisionAnchors]
	}
	return matched
}

// ComparePeers emits presence/absence asymmetry statements between a
// subject and one peer, walking a fixed dimension order: risk, quality,
// valuation, then up to two dividend contrasts, then a mixed-signals
// fallback when nothing else fired. Output never exceeds MaxContrasts
// and never contains a numeric comparison.
func ComparePeers(subject, peer Profile) []PeerContrast {
	subjectIDs := newIDSet(subject.NarrativeIDs)
	peerIDs := newIDSet(peer.NarrativeIDs)
	subjectDecisions := decisionIDSet(subject.Decisions)
	peerDecisions := decisionIDSet(peer.Decisions)

	contrasts := make([]PeerContrast, 0, MaxContrasts)
	add := func(c PeerContrast) {
		if len(contrasts) < MaxContrasts {
			contrasts = append(contrasts, c)
		}
	}

	// Risk markers on one side only. A caution decision counts as a risk
	// marker even when the underlying narrative set differs.
	subjectRisk := subjectIDs.hasAny(riskIDs...) || subjectDecisions["caution-warranted"]
	peerRisk := peerIDs.hasAny(riskIDs...) || peerDecisions["caution-warranted"]
	switch {
	case subjectRisk && !peerRisk:
		add(PeerContrast{
			ID:        "risk-subject-only",
			Text:      "The subject carries structural risk markers the peer does not show",
			Tone:      domain.ToneWarning,
			Dimension: DimensionRisk,
		})
	case peerRisk && !subjectRisk:
		add(PeerContrast{
			ID:        "risk-peer-only",
			Text:      "The peer shows structural risk markers absent from the subject",
			Tone:      domain.TonePositive,
			Dimension: DimensionRisk,
		})
	}

	subjectQuality := subjectIDs.hasAny(qualityIDs...) || subjectDecisions["quality-compounder"]
	peerQuality := peerIDs.hasAny(qualityIDs...) || peerDecisions["quality-compounder"]
	switch {
	case subjectQuality && !peerQuality:
		add(PeerContrast{
			ID:        "quality-subject-only",
			Text:      "The subject holds quality markers the peer lacks",
			Tone:      domain.TonePositive,
			Dimension: DimensionQuality,
		})
	case peerQuality && !subjectQuality:
		add(PeerContrast{
			ID:        "quality-peer-only",
			Text:      "The peer holds quality markers the subject lacks",
			Tone:      domain.ToneNeutral,
			Dimension: DimensionQuality,
		})
	}

	subjectDemanding := subjectIDs["demanding-valuation"]
	peerDemanding := peerIDs["demanding-valuation"]
	switch {
	case subjectDemanding && !peerDemanding:
		add(PeerContrast{
			ID:        "valuation-subject-demanding",
			Text:      "The subject trades on a demanding valuation while the peer does not",
			Tone:      domain.ToneWarning,
			Dimension: DimensionValuation,
		})
	case peerDemanding && !subjectDemanding:
		add(PeerContrast{
			ID:        "valuation-peer-demanding",
			Text:      "The peer trades on a demanding valuation while the subject does not",
			Tone:      domain.TonePositive,
			Dimension: DimensionValuation,
		})
	}

	// Up to two dividend-related contrasts: coverage, then payout strain.
	subjectDividend := subjectIDs.hasAny(dividendIDs...) || subjectDecisions["income-anchor"]
	peerDividend := peerIDs.hasAny(dividendIDs...) || peerDecisions["income-anchor"]
	switch {
	case subjectDividend && !peerDividend:
		add(PeerContrast{
			ID:        "dividend-subject-only",
			Text:      "The subject offers a covered dividend the peer does not",
			Tone:      domain.TonePositive,
			Dimension: DimensionDividend,
		})
	case peerDividend && !subjectDividend:
		add(PeerContrast{
			ID:        "dividend-peer-only",
			Text:      "The peer offers a covered dividend the subject does not",
			Tone:      domain.ToneNeutral,
			Dimension: DimensionDividend,
		})
	}
	subjectStrained := subjectIDs["strained-payout"]
	peerStrained := peerIDs["strained-payout"]
	switch {
	case subjectStrained && !peerStrained:
		add(PeerContrast{
			ID:        "payout-subject-strained",
			Text:      "The subject's payout looks strained while the peer's does not",
			Tone:      domain.ToneWarning,
			Dimension: DimensionDividend,
		})
	case peerStrained && !subjectStrained:
		add(PeerContrast{
			ID:        "payout-peer-strained",
			Text:      "The peer's payout looks strained while the subject's does not",
			Tone:      domain.TonePositive,
			Dimension: DimensionDividend,
		})
	}

	if len(contrasts) == 0 && (len(subject.NarrativeIDs) > 0 || len(peer.NarrativeIDs) > 0) {
		add(PeerContrast{
			ID:        "mixed-signals",
			Text:      "Both profiles show similar signal sets with no material contrast",
			Tone:      domain.ToneNeutral,
			Dimension: DimensionMixed,
		})
	}

	return contrasts
}
