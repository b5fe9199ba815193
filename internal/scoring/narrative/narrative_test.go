package narrative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/insight/internal/domain"
)

func TestMapSignals_CatalogLookup(t *testing.T) {
	anchors := MapSignals([]Signal{
		{Kind: SignalDurableMoat, Source: SourceMoat},
	})

	require.Len(t, anchors, 1)
	assert.Equal(t, "durable-quality-moat", anchors[0].ID)
	assert.Equal(t, domain.TonePositive, anchors[0].Tone)
	assert.Equal(t, HintPersistent, anchors[0].TemporalHint)
	assert.NotEmpty(t, anchors[0].Highlight)
	assert.Empty(t, anchors[0].Dominance, "mapping must not assign dominance")
}

func TestMapSignals_DeduplicatesByID(t *testing.T) {
	anchors := MapSignals([]Signal{
		{Kind: SignalDemandingValuation, Source: SourceSentiment},
		{Kind: SignalDemandingValuation, Source: SourceSentiment},
	})

	assert.Len(t, anchors, 1)
}

func TestMapSignals_CapsAnchorsPerSource(t *testing.T) {
	anchors := MapSignals([]Signal{
		{Kind: SignalStructuralFragility, Source: SourceStructural},
		{Kind: SignalEpisodicPerformance, Source: SourceStructural},
		{Kind: SignalStructuralCashGen, Source: SourceStructural},
	})

	require.Len(t, anchors, 2, "third anchor from the same source must be dropped")
	assert.Equal(t, "structural-fragility", anchors[0].ID)
	assert.Equal(t, "episodic-performance", anchors[1].ID)
}

func TestMapSignals_CapIsPerSource(t *testing.T) {
	anchors := MapSignals([]Signal{
		{Kind: SignalStructuralFragility, Source: SourceStructural},
		{Kind: SignalEpisodicPerformance, Source: SourceStructural},
		{Kind: SignalDemandingValuation, Source: SourceSentiment},
	})

	assert.Len(t, anchors, 3)
}

func TestMapSignals_DropsUnknownKind(t *testing.T) {
	anchors := MapSignals([]Signal{
		{Kind: SignalKind("made_up"), Source: SourceQuality},
	})

	assert.Empty(t, anchors)
}

func TestDomainRank(t *testing.T) {
	cases := []struct {
		id   string
		rank int
	}{
		{"structural-fragility", 6},
		{"episodic-performance", 6},
		{"demanding-valuation", 5},
		{"inefficient-growth-pressure", 5},
		{"free-cash-conversion", 4},
		{"exceptional-quality", 3},
		{"depressed-valuation", 2},
		{"reliable-dividend-income", 1},
		{"momentum", 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.rank, DomainRank(tc.id), "id %q", tc.id)
	}
}

func TestResolve_PersistentBeatsRecentRegardlessOfOrder(t *testing.T) {
	moat, ok := anchorFor(SignalDurableMoat)
	require.True(t, ok)
	valuation, ok := anchorFor(SignalDemandingValuation)
	require.True(t, ok)

	// demanding-valuation has the higher domain rank, but the moat anchor
	// carries a persistent hint and temporal rank is compared first.
	for _, input := range [][]Anchor{
		{moat, valuation},
		{valuation, moat},
	} {
		resolved := Resolve(input)
		require.Len(t, resolved, 2)
		assert.Equal(t, "durable-quality-moat", resolved[0].ID)
		assert.Equal(t, DominancePrimary, resolved[0].Dominance)
		assert.Equal(t, DominanceSecondary, resolved[1].Dominance)
	}
}

func TestResolve_DomainRankBreaksTemporalTie(t *testing.T) {
	quality, ok := anchorFor(SignalExceptionalQuality)
	require.True(t, ok)
	fragility, ok := anchorFor(SignalStructuralFragility)
	require.True(t, ok)

	// Both persistent; structural outranks quality on domain.
	resolved := Resolve([]Anchor{quality, fragility})
	require.Len(t, resolved, 2)
	assert.Equal(t, "structural-fragility", resolved[0].ID)
}

func TestResolve_ToneBreaksDomainTie(t *testing.T) {
	profit, ok := anchorFor(SignalStructuralProfit)
	require.True(t, ok)
	fragility, ok := anchorFor(SignalStructuralFragility)
	require.True(t, ok)

	// Same hint, same domain group; negative tone outranks positive.
	resolved := Resolve([]Anchor{profit, fragility})
	require.Len(t, resolved, 2)
	assert.Equal(t, "structural-fragility", resolved[0].ID)
	assert.Equal(t, "structural-profitability", resolved[1].ID)
}

func TestResolve_FullTieKeepsInputOrder(t *testing.T) {
	a := Anchor{ID: "structural-alpha", Tone: domain.TonePositive, TemporalHint: HintPersistent}
	b := Anchor{ID: "structural-beta", Tone: domain.TonePositive, TemporalHint: HintPersistent}

	resolved := Resolve([]Anchor{a, b})
	require.Len(t, resolved, 2)
	assert.Equal(t, "structural-alpha", resolved[0].ID)
	assert.Equal(t, "structural-beta", resolved[1].ID)

	resolved = Resolve([]Anchor{b, a})
	assert.Equal(t, "structural-beta", resolved[0].ID)
}

func TestResolve_SingleAnchorIsPrimary(t *testing.T) {
	anchor, ok := anchorFor(SignalDepressedValuation)
	require.True(t, ok)

	resolved := Resolve([]Anchor{anchor})
	require.Len(t, resolved, 1)
	assert.Equal(t, DominancePrimary, resolved[0].Dominance)
}

func TestResolve_EmptyInput(t *testing.T) {
	assert.Nil(t, Resolve(nil))
	assert.Empty(t, Resolve([]Anchor{}))
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	moat, _ := anchorFor(SignalDurableMoat)
	valuation, _ := anchorFor(SignalDemandingValuation)
	input := []Anchor{valuation, moat}

	Resolve(input)

	assert.Equal(t, "demanding-valuation", input[0].ID)
	assert.Empty(t, input[0].Dominance)
}
