package narrative

import (
	"sort"
	"strings"

	"github.com/aristath/insight/internal/domain"
)

// MaxAnchorsPerSource caps how many anchors one producing engine may
// contribute. Input order decides which survive the cap.
const MaxAnchorsPerSource = 2

// MapSignals converts typed signals into narrative anchors. Anchors are
// de-duplicated by id across the whole batch, and each source contributes
// at most MaxAnchorsPerSource anchors. Unknown signal kinds are dropped.
// Dominance is left unset; Resolve assigns it.
func MapSignals(signals []Signal) []Anchor {
	anchors := make([]Anchor, 0, len(signals))
	seen := make(map[string]bool, len(signals))
	perSource := make(map[Source]int, 4)

	for _, sig := range signals {
		anchor, ok := anchorFor(sig.Kind)
		if !ok {
			continue
		}
		if seen[anchor.ID] {
			continue
		}
		if perSource[sig.Source] >= MaxAnchorsPerSource {
			continue
		}
		seen[anchor.ID] = true
		perSource[sig.Source]++
		anchors = append(anchors, anchor)
	}

	return anchors
}

// Temporal precedence ranks. A pattern proven durable outranks a recent
// one, which outranks a fading one.
func temporalRank(hint TemporalHint) int {
	switch hint {
	case HintPersistent:
		return 4
	case HintRecent:
		return 3
	case HintFading:
		return 2
	default:
		return 1
	}
}

// domainGroups orders anchor-id substring groups from most to least
// decision-relevant. The first group containing a matching substring wins.
var domainGroups = [][]string{
	{"structural", "episodic"},
	{"risk", "leverage", "debt", "pressure", "fragility", "solvency", "demanding-valuation"},
	{"cash", "fcf"},
	{"profitability", "margin", "roe", "roic", "quality"},
	{"growth", "revenue", "cagr", "valuation"},
	{"dividend", "income", "yield", "payout"},
}

// DomainRank scores an anchor id by the highest-priority substring group
// it matches. Higher is more decision-relevant; zero means no group
// matched.
func DomainRank(id string) int {
	for i, group := range domainGroups {
		for _, sub := range group {
			if strings.Contains(id, sub) {
				return len(domainGroups) - i
			}
		}
	}
	return 0
}

// Negative findings demand attention before positive ones.
func toneRank(tone domain.Tone) int {
	switch tone {
	case domain.ToneNegative:
		return 4
	case domain.ToneWarning:
		return 3
	case domain.TonePositive:
		return 2
	default:
		return 1
	}
}

// Resolve orders anchors by precedence and marks exactly one primary.
// Precedence is lexicographic: temporal hint rank, then domain rank of
// the anchor id, then tone rank. The sort is stable, so anchors tied on
// all three keys keep their input order. The input slice is not mutated;
// an empty input yields an empty result.
func Resolve(anchors []Anchor) []Anchor {
	if len(anchors) == 0 {
		return nil
	}

	resolved := make([]Anchor, len(anchors))
	copy(resolved, anchors)

	sort.SliceStable(resolved, func(i, j int) bool {
		ti, tj := temporalRank(resolved[i].TemporalHint), temporalRank(resolved[j].TemporalHint)
		if ti != tj {
			return ti > tj
		}
		di, dj := DomainRank(resolved[i].ID), DomainRank(resolved[j].ID)
		if di != dj {
			return di > dj
		}
		return toneRank(resolved[i].Tone) > toneRank(resolved[j].Tone)
	})

	resolved[0].Dominance = DominancePrimary
	for i := 1; i < len(resolved); i++ {
		resolved[i].Dominance = DominanceSecondary
	}

	return resolved
}
